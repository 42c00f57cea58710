package riskclient

import (
	"context"
	"errors"

	"github.com/synaptica-ai/oncorisk/pkg/form"
)

type predictResponse struct {
	Prediction *Verdict `json:"prediction"`
}

// Predict sends the full field mapping to the predict endpoint and returns the verdict.
func (c *Client) Predict(ctx context.Context, snapshot form.Snapshot) (Verdict, error) {
	var resp predictResponse
	if err := c.post(ctx, "predict", predictPath, snapshot.Values(), &resp); err != nil {
		return Verdict{}, err
	}
	if resp.Prediction == nil {
		return Verdict{}, &RequestError{
			Op:  "predict",
			URL: c.baseURL + predictPath,
			Err: errors.New("response has no prediction"),
		}
	}
	return *resp.Prediction, nil
}
