package session

import (
	"fmt"
	"time"

	"github.com/synaptica-ai/oncorisk/pkg/form"
	"github.com/synaptica-ai/oncorisk/pkg/riskclient"
)

// Snapshot is the persistable state of a session. Pending requests and the
// last failure are not persisted.
type Snapshot struct {
	ID             string                 `json:"id"`
	Fields         map[string]string      `json:"fields"`
	Revision       uint64                 `json:"revision"`
	Verdict        *riskclient.Verdict    `json:"verdict"`
	Explanation    riskclient.Explanation `json:"explanation,omitempty"`
	Suggestion     string                 `json:"suggestion,omitempty"`
	HasExplanation bool                   `json:"has_explanation"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		ID:             c.id,
		Fields:         c.form.Serialize(),
		Revision:       c.form.Revision(),
		Explanation:    c.explanation.Clone(),
		Suggestion:     c.suggestion,
		HasExplanation: c.hasExplanation,
		UpdatedAt:      c.updatedAt,
	}
	if c.verdict != nil {
		v := *c.verdict
		snap.Verdict = &v
	}
	return snap
}

// Restore rebuilds a controller from a snapshot. An explanation without a
// verdict is dropped so a restored session never shows a stale explanation.
func Restore(snap Snapshot, predictor Predictor, explainer Explainer, opts ...Option) (*Controller, error) {
	c := New(snap.ID, predictor, explainer, opts...)

	state, err := form.Restore(c.opts.Catalog, snap.Fields, snap.Revision)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to restore session %s: %w", snap.ID, err)
	}
	c.form = state

	if snap.Verdict != nil {
		v := *snap.Verdict
		c.verdict = &v
		if snap.HasExplanation {
			c.explanation = snap.Explanation.Clone()
			c.suggestion = snap.Suggestion
			c.hasExplanation = true
		}
	}
	if !snap.UpdatedAt.IsZero() {
		c.updatedAt = snap.UpdatedAt
	}
	return c, nil
}
