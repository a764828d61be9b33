package scale

import (
	"fmt"
	"strconv"
)

// Tier is the sampling resolution requested from the imagery service.
type Tier string

// Resolution tiers. The zero Tier leaves the choice to the service.
const (
	Coarse Tier = "coarse"
	Fine   Tier = "fine"
)

// Sampling scales in metres per pixel sent as the service's scale parameter.
const (
	CoarseMeters = 60
	FineMeters   = 30
)

// Meters returns the service scale value, or 0 for the zero Tier.
func (t Tier) Meters() int {
	switch t {
	case Coarse:
		return CoarseMeters
	case Fine:
		return FineMeters
	default:
		return 0
	}
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	if t == "" {
		return "default"
	}
	return string(t)
}

// ParseTier accepts a tier name or its scale value in metres.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "":
		return "", nil
	case string(Coarse), strconv.Itoa(CoarseMeters):
		return Coarse, nil
	case string(Fine), strconv.Itoa(FineMeters):
		return Fine, nil
	default:
		return "", fmt.Errorf("unknown resolution tier %q", s)
	}
}

// ForZoom returns the tier for a zoom level given the fine threshold.
func ForZoom(zoom, threshold float64) Tier {
	if zoom >= threshold {
		return Fine
	}
	return Coarse
}
