package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of one pipeline invocation. Numeric
// values are shared with the read-side API and must not change.
type TaskStatus int

const (
	TaskSuccess TaskStatus = 1001
	TaskFail    TaskStatus = 1002
	TaskWaiting TaskStatus = 1003
	TaskHangup  TaskStatus = 1004
	TaskRunning TaskStatus = 1005
)

// TaskType identifies which product family a task ingested.
type TaskType int

const (
	TaskTypeStation  TaskType = 1101
	TaskTypeCoverage TaskType = 1102
)

// JobStep tags one completed pipeline stage in the audit ledger. Value
// 1201 is retired; staging subsumed the separate download stage.
type JobStep int

const (
	StepStageStation  JobStep = 1202
	StepStageCoverage JobStep = 1203
	StepReadStation   JobStep = 1204
	StepStoreStation  JobStep = 1205
	StepStandardize   JobStep = 1206
	StepConvertGrid   JobStep = 1207
	StepConvertImage  JobStep = 1208
	StepStoreCoverage JobStep = 1209
	StepRetrieveWind  JobStep = 1210
	StepSplitWind     JobStep = 1211
	StepRasterizeWind JobStep = 1212
)

// CoverageType determines which downstream consumer reads an artifact row:
// grids feed the vector sampler, images feed the image server.
type CoverageType int

const (
	CoverageSourceGrid    CoverageType = 2101 // raw max-surge text grid
	CoverageConvertedGrid CoverageType = 2102 // canonical NetCDF grid
	CoverageConvertedTif  CoverageType = 2103 // max-surge single-band image
	CoverageWindSource    CoverageType = 2104 // raw wind field as retrieved
	CoverageWindSplit     CoverageType = 2105 // bbox-cropped wind field
	CoverageWindTif       CoverageType = 2106 // per-timestep wind image
)

// NoParent marks an artifact row with no lineage parent.
const NoParent int64 = -1

// Task is one pipeline invocation, identified by a short random key that is
// threaded through every stage call.
type Task struct {
	ID        string
	Name      string
	Status    TaskStatus
	Type      TaskType
	Timestamp int64
	Result    string
}

// NewTaskKey generates the 8-character task identifier.
func NewTaskKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// StationSurgeRecord is one station's surge value at one forecast hour.
// Rows live in the year shard of their issue cycle.
type StationSurgeRecord struct {
	StationCode string
	Surge       float64
	TaskID      string
	ForecastTs  int64
	IssueTs     int64
	ForecastDt  time.Time
	IssueDt     time.Time
}

// CoverageArtifactRecord is the provenance row for one physical derived
// file. ParentID links a derivative back to the artifact it was produced
// from, forming a lineage chain.
type CoverageArtifactRecord struct {
	ID           int64
	TaskID       string
	RelativePath string
	FileName     string
	FileExt      string
	Type         CoverageType
	ForecastTs   int64
	ForecastDt   time.Time
	IssueTs      int64
	IssueDt      time.Time
	ParentID     int64
}

// ArtifactRef is the published identity of a registered coverage artifact.
type ArtifactRef struct {
	ID       int64        `json:"id"`
	Type     CoverageType `json:"type"`
	FileName string       `json:"file_name"`
}

// ArtifactEvent is the notification emitted after a family run registers
// coverage artifacts.
type ArtifactEvent struct {
	TaskID    string        `json:"task_id"`
	Family    string        `json:"family"`
	Cycle     time.Time     `json:"cycle"`
	Artifacts []ArtifactRef `json:"artifacts"`
}
