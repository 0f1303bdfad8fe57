package competitor

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/copyscope/internal/models"
)

// Heuristic scorer: a rule-based producer with the same output shape as the
// AI path, used when the crawl succeeded but the reasoning call did not.

const (
	heuristicBaseScore   = 55
	commodityPenaltyCap  = 20
	proofRewardCap       = 30
	commodityPenaltyEach = 5
	proofRewardEach      = 6
	maxHeuristicEvidence = 3
)

// commodityPatterns match filler phrases that signal undifferentiated copy.
var commodityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bworld[- ]class\b`),
	regexp.MustCompile(`(?i)\bindustry[- ]leading\b`),
	regexp.MustCompile(`(?i)\bbest[- ]in[- ]class\b`),
	regexp.MustCompile(`(?i)\bcutting[- ]edge\b`),
	regexp.MustCompile(`(?i)\bone[- ]stop shop\b`),
	regexp.MustCompile(`(?i)\bsolutions? for all your\b`),
	regexp.MustCompile(`(?i)\bquality (?:service|products?|work)\b`),
	regexp.MustCompile(`(?i)\bcustomer[- ](?:focused|centric)\b`),
	regexp.MustCompile(`(?i)\bexceed(?:s|ing)? expectations\b`),
}

// proofPattern pairs a detector with the strength text it supports.
type proofPattern struct {
	pattern *regexp.Regexp
	label   string
}

var proofPatterns = []proofPattern{
	{regexp.MustCompile(`(?i)\b(?:ISO|SOC ?2|HIPAA|PCI[- ]DSS|certified|accredited|licensed)\b`), "Displays certifications or accreditations as specific proof"},
	{regexp.MustCompile(`(?i)\b(?:since|established|founded|est\.?) (?:in )?(19|20)\d{2}\b`), "Anchors credibility with its founding year"},
	{regexp.MustCompile(`(?i)\b\d{1,3}(?:,\d{3})*\+? (?:customers?|clients?|projects?|installations?|users?|reviews?)\b`), "Quantifies track record with concrete numbers"},
	{regexp.MustCompile(`(?i)(?:\d+(?:\.\d+)?%|\$\d[\d,]*(?:\.\d+)?[kmb]?)\s`), "Backs claims with quantified outcomes"},
	{regexp.MustCompile(`(?i)\b(?:testimonial|"[^"]{20,}"\s*[-—–]\s*\w)`), "Includes customer testimonials"},
	{regexp.MustCompile(`(?i)\b(?:money[- ]back|satisfaction) guarantee|\bguaranteed\b`), "Offers an explicit guarantee"},
}

// scoreHeuristically produces a bounded competitor record from page text
// alone. The same contradiction filter and weakness floor apply as on the
// AI path.
func scoreHeuristically(domain, headline, content string) *models.CompetitorRecord {
	score := heuristicBaseScore

	penalty := 0
	var weaknesses []models.QuotedPoint
	for _, pattern := range commodityPatterns {
		match := pattern.FindString(content)
		if match == "" {
			continue
		}
		penalty += commodityPenaltyEach
		if len(weaknesses) < maxHeuristicEvidence {
			weaknesses = append(weaknesses, models.QuotedPoint{
				Text:  fmt.Sprintf("Leans on commodity phrasing (%q) instead of specific claims", strings.TrimSpace(match)),
				Quote: strings.TrimSpace(match),
			})
		}
	}
	if penalty > commodityPenaltyCap {
		penalty = commodityPenaltyCap
	}

	reward := 0
	var strengths []models.QuotedPoint
	for _, proof := range proofPatterns {
		match := proof.pattern.FindString(content)
		if match == "" {
			continue
		}
		reward += proofRewardEach
		if len(strengths) < maxHeuristicEvidence {
			strengths = append(strengths, models.QuotedPoint{
				Text:  proof.label,
				Quote: strings.TrimSpace(match),
			})
		}
	}
	if reward > proofRewardCap {
		reward = proofRewardCap
	}

	score = score - penalty + reward
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	weaknesses = FilterContradictions(strengths, weaknesses)
	weaknesses = ApplyWeaknessFloor(score, weaknesses)

	return &models.CompetitorRecord{
		Domain:     domain,
		Score:      score,
		Strengths:  strengths,
		Weaknesses: weaknesses,
		Headline:   headline,
		Source:     models.CompetitorSourceHeuristic,
		AnalyzedAt: time.Now().UTC(),
	}
}
