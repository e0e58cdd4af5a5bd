package source

import "strings"

// keywordFamilies is the fixed set of biographical keyword families used to
// compute snippet confidence: one shared implementation across every
// source rather than per-source weights, per the documented single-weight
// policy.
var keywordFamilies = map[string][]string{
	"childhood": {"childhood", "born in", "grew up", "raised in", "as a child", "young boy", "young girl"},
	"family":    {"married", "wife", "husband", "children", "son", "daughter", "parents", "family"},
	"education": {"graduated", "university", "college", "school", "studied", "degree"},
	"early_life": {"before becoming", "early career", "first role", "began acting", "debut",
		"started out", "early years"},
	"career":        {"starred in", "appeared in", "known for", "career spanned", "won an award", "nominated", "filmography"},
	"marriage":      {"divorced", "engaged", "wedding", "marriage", "spouse"},
	"illness_death": {"died", "death", "cause of death", "passed away", "illness", "diagnosed", "hospice", "cancer"},
}

// confidenceIncrement is the fixed per-family weight: 0.12 per distinct
// matched family, clamped to 0.95.
const (
	confidenceIncrement = 0.12
	confidenceCap       = 0.95
)

// CalculateBiographicalConfidence scores how biographically relevant text
// is: a shared, source-agnostic implementation of the per-snippet
// confidence the base lookup flow uses ahead of the orchestrator's
// early-stop threshold.
func CalculateBiographicalConfidence(text string) float64 {
	lower := strings.ToLower(text)

	var matched int
	for _, phrases := range keywordFamilies {
		for _, phrase := range phrases {
			if strings.Contains(lower, phrase) {
				matched++
				break
			}
		}
	}

	score := float64(matched) * confidenceIncrement
	if score > confidenceCap {
		score = confidenceCap
	}
	return score
}
