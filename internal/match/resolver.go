// Package match resolves free-text entity names against the payee and
// payment-method registries. Payees use a strict similarity score; payment
// methods use a deliberately looser containment heuristic. The two are
// separate algorithms and must stay that way.
package match

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ndavila/comprobantes-bot/internal/model"
)

// DefaultThreshold is the minimum similarity accepted for a payee match.
const DefaultThreshold = 0.65

// Method records how a resolved value was obtained. It flows into the audit
// trail of the committed record.
type Method string

const (
	MethodFuzzy  Method = "fuzzy_match"
	MethodManual Method = "manual_selection"
	MethodNew    Method = "newly_created"
)

// Match is a resolved registry name with its confidence and provenance.
type Match struct {
	Name   string
	Score  float64
	Method Method
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize case-folds, strips diacritics and trims surrounding whitespace.
func Normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(strings.ToLower(out))
}

// Similarity returns an edit-distance ratio in [0,1] between the normalized
// forms of a and b. Identical normalized strings score 1.0 and the metric is
// symmetric.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	dist := levenshtein.ComputeDistance(na, nb)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	return 1 - float64(dist)/float64(longest)
}

// Resolve scores query against every payee name and returns the best
// candidate at or above threshold, or nil when none qualifies. Ties are
// broken by registry order: the first candidate encountered wins.
func Resolve(query string, payees []model.Payee, threshold float64) *Match {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	var best *Match
	for _, p := range payees {
		score := Similarity(query, p.Name)
		if score < threshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &Match{Name: p.Name, Score: score, Method: MethodFuzzy}
		}
	}
	return best
}

// LooseMethodMatch finds a payment method whose name contains the guess, or
// is contained by it, case-insensitively. This is the cheap pre-resolution
// used before falling back to the enumerated-choice prompt.
func LooseMethodMatch(guess string, methods []model.PaymentMethod) *model.PaymentMethod {
	g := strings.ToLower(strings.TrimSpace(guess))
	if g == "" {
		return nil
	}
	for i := range methods {
		name := strings.ToLower(methods[i].Name)
		if strings.Contains(name, g) || strings.Contains(g, name) {
			return &methods[i]
		}
	}
	return nil
}
