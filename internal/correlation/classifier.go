package correlation

import (
	"strings"

	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

// ClassifyPair determines why two legs might move together, using only the
// legs' structured fields
func ClassifyPair(a, b types.Leg, cfg Config) types.CorrelationType {
	if samePlayer(a, b) {
		if bothEventsKnown(a, b) && !sameEvent(a, b) {
			// Same player across different games shares only form, which the
			// heuristics treat as independent
			return types.CorrelationUnrelated
		}
		return types.CorrelationSamePlayer
	}

	if bothEventsKnown(a, b) && sameEvent(a, b) {
		if cfg.PaceProps[normalize(a.PropType)] && cfg.PaceProps[normalize(b.PropType)] {
			return types.CorrelationSameGamePace
		}
		return types.CorrelationSameGameOther
	}

	return types.CorrelationUnrelated
}

func samePlayer(a, b types.Leg) bool {
	if a.PlayerName == "" || b.PlayerName == "" {
		return false
	}
	return strings.EqualFold(normalize(a.PlayerName), normalize(b.PlayerName))
}

func bothEventsKnown(a, b types.Leg) bool {
	return a.EventID != "" && b.EventID != ""
}

func sameEvent(a, b types.Leg) bool {
	return a.EventID == b.EventID
}

// opposingSides reports whether exactly one of the two legs is an under
func opposingSides(a, b types.Leg) bool {
	sideA := normalize(a.Side)
	sideB := normalize(b.Side)
	if sideA == "" || sideB == "" {
		return false
	}
	return sideA != sideB
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
