package feed

import "hud/models"

const (
	// DefaultBlendWeight is used when the request does not specify a mix ratio.
	DefaultBlendWeight = 0.7

	// DefaultPopularity stands in when a source wrote no popularity signal.
	DefaultPopularity = 0.5

	focusMatchScore = 0.7
	focusMissScore  = 0.4
)

// FocusScore returns the topic-match heuristic: items carrying at least one
// focus topic score higher than untagged ones.
func FocusScore(topics []string) float64 {
	if len(topics) > 0 {
		return focusMatchScore
	}
	return focusMissScore
}

// Popularity reads the popularity signal from item metadata, falling back to
// the default when absent.
func Popularity(md models.ItemMetadata) float64 {
	if md.Popularity != nil {
		return *md.Popularity
	}
	return DefaultPopularity
}

// Blend computes the weighted relevance score. Pure and total; weight must be
// validated at the request boundary, never clamped here.
func Blend(weight, focusScore, popularity float64) float64 {
	return weight*focusScore + (1-weight)*popularity
}

// ValidWeight reports whether a blend weight is inside [0, 1].
func ValidWeight(weight float64) bool {
	return weight >= 0 && weight <= 1
}
