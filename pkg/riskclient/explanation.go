package riskclient

import (
	"sort"
	"strconv"

	"github.com/synaptica-ai/oncorisk/pkg/form"
)

// Explanation maps a feature label to its signed contribution to a verdict.
// Labels usually match catalog field names but derived features may appear.
type Explanation map[string]float64

// Contribution is one explanation entry ready for display.
type Contribution struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Formatted renders the value with the fixed four-decimal precision used on screen.
func (c Contribution) Formatted() string {
	return FormatContribution(c.Value)
}

func FormatContribution(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Ordered lists contributions in catalog order, followed by labels unknown to
// the catalog in alphabetical order.
func (e Explanation) Ordered(catalog *form.Catalog) []Contribution {
	out := make([]Contribution, 0, len(e))
	for label, value := range e {
		out = append(out, Contribution{Label: label, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		pi, iKnown := catalog.Position(form.FieldName(out[i].Label))
		pj, jKnown := catalog.Position(form.FieldName(out[j].Label))
		switch {
		case iKnown && jKnown:
			return pi < pj
		case iKnown != jKnown:
			return iKnown
		default:
			return out[i].Label < out[j].Label
		}
	})
	return out
}

func (e Explanation) Clone() Explanation {
	if e == nil {
		return nil
	}
	out := make(Explanation, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// ExplainResult pairs an explanation with its suggestion; they are always produced together.
type ExplainResult struct {
	Explanation Explanation `json:"explanation"`
	Suggestion  string      `json:"suggestion"`
}
