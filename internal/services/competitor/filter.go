package competitor

import (
	"strings"

	"github.com/ternarybob/copyscope/internal/models"
)

// goodScoreThreshold is the score at or above which a competitor record may
// ship with zero weaknesses.
const goodScoreThreshold = 70

// contradictionPair maps strength keywords to the weakness keywords they
// invalidate. When an accepted strength matches the left side, any
// candidate weakness matching the right side is dropped so we never present
// directly conflicting claims.
type contradictionPair struct {
	strengthKeys []string
	weaknessKeys []string
}

var contradictionPairs = []contradictionPair{
	{
		strengthKeys: []string{"specific proof", "concrete proof", "quantified", "specific number", "hard data", "case stud"},
		weaknessKeys: []string{"lacks proof", "no proof", "unsubstantiated", "vague claim", "no evidence", "lacks evidence"},
	},
	{
		strengthKeys: []string{"testimonial", "customer review", "social proof"},
		weaknessKeys: []string{"no testimonial", "lacks social proof", "no customer voice", "no review"},
	},
	{
		strengthKeys: []string{"clear headline", "clear value proposition", "clear positioning"},
		weaknessKeys: []string{"unclear headline", "confusing headline", "unclear value", "vague headline", "unclear positioning"},
	},
	{
		strengthKeys: []string{"guarantee", "risk reversal"},
		weaknessKeys: []string{"no guarantee", "lacks guarantee", "no risk reversal"},
	},
	{
		strengthKeys: []string{"differentiat", "unique"},
		weaknessKeys: []string{"undifferentiated", "generic positioning", "no differentiation", "lacks differentiation"},
	},
}

// FilterContradictions drops weaknesses whose keyword set semantically
// contradicts an accepted strength. Unrelated weaknesses pass through
// unchanged, preserving order.
func FilterContradictions(strengths, weaknesses []models.QuotedPoint) []models.QuotedPoint {
	if len(strengths) == 0 || len(weaknesses) == 0 {
		return weaknesses
	}

	var kept []models.QuotedPoint
	for _, weakness := range weaknesses {
		if contradictsAny(weakness, strengths) {
			continue
		}
		kept = append(kept, weakness)
	}
	return kept
}

func contradictsAny(weakness models.QuotedPoint, strengths []models.QuotedPoint) bool {
	weaknessText := strings.ToLower(weakness.Text)

	for _, pair := range contradictionPairs {
		if !matchesAny(weaknessText, pair.weaknessKeys) {
			continue
		}
		for _, strength := range strengths {
			if matchesAny(strings.ToLower(strength.Text), pair.strengthKeys) {
				return true
			}
		}
	}
	return false
}

func matchesAny(text string, keys []string) bool {
	for _, key := range keys {
		if strings.Contains(text, key) {
			return true
		}
	}
	return false
}

// ApplyWeaknessFloor enforces the floor rule: a competitor scoring below
// the good threshold must never ship with zero weaknesses. When filtering
// emptied the list, a severity-scaled generic weakness is synthesized.
func ApplyWeaknessFloor(score int, weaknesses []models.QuotedPoint) []models.QuotedPoint {
	if len(weaknesses) > 0 || score >= goodScoreThreshold {
		return weaknesses
	}

	var text string
	switch {
	case score < 40:
		text = "Messaging is largely undifferentiated commodity language with little concrete evidence to support its claims."
	case score < 55:
		text = "Key claims lack the specific proof points that would make them credible to a skeptical visitor."
	default:
		text = "Messaging is serviceable but leans on generic phrasing where sharper, more specific language would stand out."
	}

	return []models.QuotedPoint{{Text: text}}
}
