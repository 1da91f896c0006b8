package organize

import (
	"path/filepath"
	"strings"

	"github.com/forPelevin/syncsieve/internal/types"
)

const (
	AcceptedDir = "accepted"
	RejectedDir = "rejected"
	OutputsDir  = "syncnet_outputs"
)

// preservedKinds are the artifacts kept under syncnet_outputs/<ref>.
var preservedKinds = map[types.ArtifactKind]bool{
	types.ArtifactCroppedFace:   true,
	types.ArtifactVisualization: true,
	types.ArtifactOffsets:       true,
	types.ArtifactAnalysis:      true,
}

// Partition copies accepted and rejected jobs into outDir/accepted and
// outDir/rejected. Each job's source files are named <prefix>_<name> (or just
// <name> without a prefix) and its preserved outputs land under
// <partition>/syncnet_outputs/<ref>. Jobs in any other state are skipped.
func Partition(jobs []types.Job, outDir, prefix string) []CopyResult {
	outputsRoot := filepath.Join(outDir, OutputsDir)
	var out []CopyResult
	for _, job := range jobs {
		var part string
		switch job.State {
		case types.StateAccepted:
			part = filepath.Join(outDir, AcceptedDir)
		case types.StateRejected:
			part = filepath.Join(outDir, RejectedDir)
		default:
			continue
		}

		for _, a := range job.Artifacts {
			var dst string
			switch {
			case a.Kind == types.ArtifactSource:
				dst = filepath.Join(part, PrefixedName(prefix, filepath.Base(a.Path)))
			case preservedKinds[a.Kind]:
				dst = filepath.Join(part, OutputsDir, preservedRel(outputsRoot, job.Reference, a.Path))
			default:
				continue
			}
			out = append(out, CopyResult{Kind: a.Kind, Src: a.Path, Dst: dst, Err: CopyFile(a.Path, dst)})
		}
	}
	return out
}

// PrefixedName joins prefix and name with an underscore.
func PrefixedName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

func preservedRel(root, ref, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Join(ref, filepath.Base(path))
	}
	return rel
}
