package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileNameGrammars(t *testing.T) {
	c := NewCycle(2023, 9, 15, 12)

	assert.Equal(t, "NMF_TRN_OSTZSS_CSDT_2023091512_168h_SS_staSurge.txt", StationSurgeFileName(c))
	assert.Equal(t, "NMF_TRN_OSTZSS_CSDT_2023091512_168h_SS_maxSurge.txt", MaxSurgeFileName(c, "txt"))
	assert.Equal(t, "NMF_TRN_OSTZSS_CSDT_2023091512_168h_SS_maxSurge.nc", MaxSurgeFileName(c, "nc"))
	assert.Equal(t, "nwp_high_res_wind_2023091512.nc", WindFileName(c))
}

func TestFileNameCycleRoundTrip(t *testing.T) {
	// Constructing a name from a cycle and re-extracting the embedded token
	// must recover the identical instant, for every grammar.
	c := NewCycle(2024, 1, 2, 0)

	for _, name := range []string{
		StationSurgeFileName(c),
		MaxSurgeFileName(c, "txt"),
		WindFileName(c),
	} {
		a, err := NewSurgeArtifact(StagedFile{Root: "/data", RelativePath: c.RelativePath(), Name: name})
		require.NoError(t, err, name)
		assert.Equal(t, c, a.CycleStart(), name)
	}
}

func TestNewSurgeArtifactDerivedNames(t *testing.T) {
	// Suffixed derivative names keep the stamp at the same token position.
	a, err := NewSurgeArtifact(StagedFile{Name: "nwp_high_res_wind_2023091600_output.nc"})
	require.NoError(t, err)
	assert.Equal(t, NewCycle(2023, 9, 16, 0), a.CycleStart())
}

func TestNewSurgeArtifactRejectsMalformedNames(t *testing.T) {
	t.Run("too few tokens", func(t *testing.T) {
		_, err := NewSurgeArtifact(StagedFile{Name: "surge.txt"})
		assert.Error(t, err)
	})

	t.Run("non-numeric stamp", func(t *testing.T) {
		_, err := NewSurgeArtifact(StagedFile{Name: "NMF_TRN_OSTZSS_CSDT_notastamp_168h_SS_staSurge.txt"})
		assert.Error(t, err)
	})
}

func TestStagedFilePaths(t *testing.T) {
	f := StagedFile{Root: "/data/local", RelativePath: "2023/09", Name: "nwp_high_res_wind_2023091600.nc"}

	assert.Equal(t, filepath.Join("/data/local", "2023/09", "nwp_high_res_wind_2023091600.nc"), f.FullPath())
	assert.Equal(t, "nwp_high_res_wind_2023091600", f.BaseName())
	assert.Equal(t, ".nc", f.Ext())
}
