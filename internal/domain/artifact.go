package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Source file name grammars. The cycle stamp sits at a fixed underscore-
// separated position; SurgeArtifact parses it once at construction so the
// position dependency lives in exactly one place.
const (
	surgeNamePrefix   = "NMF_TRN_OSTZSS_CSDT"
	surgeNameDuration = "168h_SS"
	windNamePrefix    = "nwp_high_res_wind"

	// Kind suffixes for the surge grammar.
	KindStationSurge = "staSurge"
	KindMaxSurge     = "maxSurge"
)

// StationSurgeFileName builds the station report name for a cycle.
func StationSurgeFileName(c Cycle) string {
	return fmt.Sprintf("%s_%s_%s_%s.txt", surgeNamePrefix, c.Stamp(), surgeNameDuration, KindStationSurge)
}

// MaxSurgeFileName builds the max-surge field name for a cycle with the
// given extension ("txt", "nc" or "tif").
func MaxSurgeFileName(c Cycle, ext string) string {
	return fmt.Sprintf("%s_%s_%s_%s.%s", surgeNamePrefix, c.Stamp(), surgeNameDuration, KindMaxSurge, ext)
}

// WindFileName builds the wind-field source name for a cycle.
func WindFileName(c Cycle) string {
	return fmt.Sprintf("%s_%s.nc", windNamePrefix, c.Stamp())
}

// StagedFile locates a file under a managed storage root. RelativePath is
// always the owning cycle's "{year}/{month}" directory. A StagedFile is
// never mutated after creation.
type StagedFile struct {
	Root         string
	RelativePath string
	Name         string
}

// FullPath joins root, relative path and file name.
func (f StagedFile) FullPath() string {
	return filepath.Join(f.Root, f.RelativePath, f.Name)
}

// BaseName returns the file name without its extension.
func (f StagedFile) BaseName() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Ext returns the file extension including the leading dot.
func (f StagedFile) Ext() string {
	return filepath.Ext(f.Name)
}

// SurgeArtifact is a staged file whose name follows one of the recognized
// grammars. The embedded cycle token is recovered at construction time;
// the parsing is position-dependent by design of the upstream system, so a
// renamed file is an error, not something to recover from.
type SurgeArtifact struct {
	StagedFile
	cycleStart Cycle
}

// NewSurgeArtifact wraps a staged file, extracting the cycle stamp from the
// underscore-delimited name. Both the NMF surge grammar (token index 4) and
// the nwp wind grammar (token index 4) place the stamp after four fixed
// tokens.
func NewSurgeArtifact(f StagedFile) (SurgeArtifact, error) {
	tokens := strings.Split(f.BaseName(), "_")
	if len(tokens) < 5 {
		return SurgeArtifact{}, fmt.Errorf("artifact name %q: too few tokens for cycle stamp", f.Name)
	}
	stamp := tokens[4]
	cycle, err := ParseCycleStamp(stamp)
	if err != nil {
		return SurgeArtifact{}, fmt.Errorf("artifact name %q: %w", f.Name, err)
	}
	return SurgeArtifact{StagedFile: f, cycleStart: cycle}, nil
}

// CycleStart is the issue cycle embedded in the artifact's name.
func (a SurgeArtifact) CycleStart() Cycle {
	return a.cycleStart
}
