package patterns

import (
	"math"
	"regexp"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

const (
	vagueVerbWeight = 0.3
	absoluteWeight  = 0.2
	penaltyScale    = 10.0
)

type matcher struct {
	lemma string
	re    *regexp.Regexp
}

// Validator scans generated text for vague verbs and unsupported absolutes.
type Validator struct {
	vague     []matcher
	absolutes []matcher
}

// NewValidator compiles the lexicon into whole-word matchers. Verbs also match a trailing
// "s" (third person / plural) but never a longer word: "improvement" is not "improve".
func NewValidator(lex Lexicon) *Validator {
	v := &Validator{}
	for _, lemma := range normalise(lex.VagueVerbs) {
		v.vague = append(v.vague, matcher{
			lemma: lemma,
			re:    regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(lemma) + `s?\b`),
		})
	}
	for _, word := range normalise(lex.UnsupportedAbsolutes) {
		v.absolutes = append(v.absolutes, matcher{
			lemma: word,
			re:    regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`),
		})
	}
	return v
}

// Detect reports every distinct banned word found in text, in lexicon order.
func (v *Validator) Detect(text string) models.BannedPatternReport {
	report := models.BannedPatternReport{
		VagueVerbs:           matches(v.vague, text),
		UnsupportedAbsolutes: matches(v.absolutes, text),
	}
	report.HasViolations = len(report.VagueVerbs) > 0 || len(report.UnsupportedAbsolutes) > 0
	report.Penalty = penalty(len(report.VagueVerbs), len(report.UnsupportedAbsolutes))
	return report
}

// Penalty returns the banned-pattern penalty of text in [0,1].
func (v *Validator) Penalty(text string) float64 {
	return v.Detect(text).Penalty
}

func matches(ms []matcher, text string) []string {
	found := []string{}
	if text == "" {
		return found
	}
	for _, m := range ms {
		if m.re.MatchString(text) {
			found = append(found, m.lemma)
		}
	}
	return found
}

func penalty(vague, absolutes int) float64 {
	if vague == 0 && absolutes == 0 {
		return 0
	}
	raw := (vagueVerbWeight*float64(vague) + absoluteWeight*float64(absolutes)) / penaltyScale
	return math.Min(1.0, raw)
}
