package quality

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forPelevin/syncsieve/internal/types"
)

type Preset struct {
	MinConfidence float64
	MaxAbsOffset  int
	Description   string
}

// Presets maps a preset name to its thresholds. Build it once with
// DefaultPresets and pass it to whoever resolves names.
type Presets map[string]Preset

func DefaultPresets() Presets {
	return Presets{
		"strict": {
			MinConfidence: 6.0,
			MaxAbsOffset:  2,
			Description:   "Only the highest quality chunks (publication ready)",
		},
		"high": {
			MinConfidence: 4.0,
			MaxAbsOffset:  5,
			Description:   "Good sync, suitable for training data",
		},
		"medium": {
			MinConfidence: 2.5,
			MaxAbsOffset:  8,
			Description:   "Balanced filtering",
		},
		"relaxed": {
			MinConfidence: 1.5,
			MaxAbsOffset:  12,
			Description:   "Keep most usable chunks",
		},
		"none": {
			MinConfidence: 0.0,
			MaxAbsOffset:  50,
			Description:   "Keep every chunk with a detected face",
		},
	}
}

// Resolve returns the thresholds for name.
func (p Presets) Resolve(name string) (types.Thresholds, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	pr, ok := p[key]
	if !ok {
		return types.Thresholds{}, fmt.Errorf("%w: unknown preset %q (available: %s)",
			types.ErrConfiguration, name, strings.Join(p.Names(), ", "))
	}
	return types.Thresholds{
		Preset:        key,
		MinConfidence: pr.MinConfidence,
		MaxAbsOffset:  pr.MaxAbsOffset,
	}, nil
}

// Names lists presets from strictest to most permissive.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := p[names[i]], p[names[j]]
		if a.MinConfidence != b.MinConfidence {
			return a.MinConfidence > b.MinConfidence
		}
		if a.MaxAbsOffset != b.MaxAbsOffset {
			return a.MaxAbsOffset < b.MaxAbsOffset
		}
		return names[i] < names[j]
	})
	return names
}
