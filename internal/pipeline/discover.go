package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forPelevin/syncsieve/internal/types"
)

// VideoExtensions are matched case-insensitively.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

// Discover lists the video files directly inside dir, sorted by name. Each
// asset's Name is its file stem, made unique when two files share a stem.
func Discover(dir string) ([]types.VideoAsset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if VideoExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no video files in %s: %w", dir, types.ErrNoInputs)
	}
	sort.Strings(files)

	used := map[string]bool{}
	out := make([]types.VideoAsset, 0, len(files))
	for _, f := range files {
		name := uniqueName(f, used)
		used[name] = true
		out = append(out, types.VideoAsset{Path: filepath.Join(dir, f), Name: name})
	}
	return out, nil
}

// uniqueName is the stem of file, or stem_<ext>, stem_<ext>_2, ... when an
// earlier file already took it.
func uniqueName(file string, used map[string]bool) string {
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)
	if !used[stem] {
		return stem
	}
	base := stem + "_" + strings.TrimPrefix(strings.ToLower(ext), ".")
	name := base
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	return name
}
