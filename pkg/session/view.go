package session

import (
	"github.com/synaptica-ai/oncorisk/pkg/riskclient"
)

// View is the renderable state of a session. It is a copy; later changes to
// the session do not affect it.
type View struct {
	SessionID     string             `json:"session_id"`
	State         string             `json:"state"`
	Fields        []FieldView        `json:"fields"`
	Verdict       *VerdictView       `json:"verdict,omitempty"`
	Contributions []ContributionView `json:"contributions,omitempty"`
	Suggestion    string             `json:"suggestion,omitempty"`
	CanExplain    bool               `json:"can_explain"`
	Pending       int                `json:"pending"`
	LastError     string             `json:"last_error,omitempty"`
}

type FieldView struct {
	Name  string `json:"name"`
	Help  string `json:"help,omitempty"`
	Value string `json:"value"`
}

type VerdictView struct {
	HighRisk bool   `json:"high_risk"`
	Label    string `json:"label"`
}

type ContributionView struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.stateLocked()
	v := View{
		SessionID:  c.id,
		State:      state.String(),
		CanExplain: c.verdict != nil,
		Pending:    c.pending,
	}

	for _, f := range c.opts.Catalog.Fields() {
		v.Fields = append(v.Fields, FieldView{Name: string(f.Name), Help: f.Help, Value: c.form.Value(f.Name)})
	}

	if c.verdict != nil {
		v.Verdict = &VerdictView{HighRisk: c.verdict.HighRisk, Label: c.verdict.Label()}
	}

	if c.hasExplanation {
		for _, contribution := range c.explanation.Ordered(c.opts.Catalog) {
			v.Contributions = append(v.Contributions, ContributionView{
				Label:   contribution.Label,
				Value:   contribution.Value,
				Display: contribution.Formatted(),
			})
		}
		v.Suggestion = c.suggestion
	}

	if c.lastErr != nil {
		v.LastError = c.lastErr.Error()
	}
	return v
}

// Verdict returns the current verdict, or nil when the session is Idle.
func (c *Controller) Verdict() *riskclient.Verdict {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.verdict == nil {
		return nil
	}
	v := *c.verdict
	return &v
}

// Explanation returns the current explanation and suggestion. ok is false
// unless the session is Explained.
func (c *Controller) Explanation() (explanation riskclient.Explanation, suggestion string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasExplanation {
		return nil, "", false
	}
	return c.explanation.Clone(), c.suggestion, true
}

// Fields returns the serialized form.
func (c *Controller) Fields() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.Serialize()
}

func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
