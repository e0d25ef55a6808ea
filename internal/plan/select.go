package plan

import (
	"fmt"

	"stitcher/internal/manifest"
	"stitcher/internal/services"
)

// Sentinel heights for Select. Zero asks for the lowest rung and a negative
// value for the highest, matching an unset CLI flag.
const (
	HeightLowest  = 0
	HeightHighest = -1
)

// Select picks a variant from an ascending ladder. An exact match always
// wins. Otherwise the greatest height not exceeding the request is used;
// if every rung is above the request the lowest one is the fallback. With
// force set, anything but an exact match is an error.
func Select(ladder []manifest.StreamVariant, requested int, force bool) (manifest.StreamVariant, error) {
	if len(ladder) == 0 {
		return manifest.StreamVariant{}, services.Wrap(services.ErrResolutionUnavailable, "plan", "select", "empty resolution ladder", nil)
	}
	if requested < 0 {
		return ladder[len(ladder)-1], nil
	}
	if requested == 0 {
		return ladder[0], nil
	}

	best := -1
	for i, variant := range ladder {
		if variant.Height == requested {
			return variant, nil
		}
		if variant.Height < requested {
			best = i
		}
	}
	if force {
		return manifest.StreamVariant{}, services.Wrap(services.ErrResolutionUnavailable, "plan", "select",
			fmt.Sprintf("%dp not offered and exact resolution required", requested), nil)
	}
	if best >= 0 {
		return ladder[best], nil
	}
	return ladder[0], nil
}
