package riskclient

import (
	"context"
	"errors"

	"github.com/synaptica-ai/oncorisk/pkg/form"
)

type explainResponse struct {
	Explanation map[string]float64 `json:"explanation"`
	Suggestion  *string            `json:"suggestion"`
}

// Explain sends the field mapping merged with the verdict to the explain
// endpoint. A nil verdict is refused with ErrInvalidState before any I/O.
func (c *Client) Explain(ctx context.Context, snapshot form.Snapshot, verdict *Verdict) (ExplainResult, error) {
	if verdict == nil {
		return ExplainResult{}, ErrInvalidState
	}

	values := snapshot.Values()
	payload := make(map[string]interface{}, len(values)+1)
	for name, value := range values {
		payload[name] = value
	}
	payload["prediction"] = *verdict

	var resp explainResponse
	if err := c.post(ctx, "explain", explainPath, payload, &resp); err != nil {
		return ExplainResult{}, err
	}

	var missing error
	switch {
	case resp.Explanation == nil:
		missing = errors.New("response has no explanation")
	case resp.Suggestion == nil:
		missing = errors.New("response has no suggestion")
	}
	if missing != nil {
		return ExplainResult{}, &RequestError{Op: "explain", URL: c.baseURL + explainPath, Err: missing}
	}

	return ExplainResult{
		Explanation: Explanation(resp.Explanation),
		Suggestion:  *resp.Suggestion,
	}, nil
}
