package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardTableName(t *testing.T) {
	// The shard name format feeds generated DDL; any casing or format
	// drift must fail loudly here rather than create stray tables.
	assert.Equal(t, "station_realdata_2023", ShardTableName(2023))
	assert.Equal(t, "station_realdata_1970", ShardTableName(1970))
	assert.Equal(t, "station_realdata_2030", ShardTableName(2030))
}
