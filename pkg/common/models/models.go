package models

import "time"

// Event is the envelope of every message on the assessment events topic.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // assessment.predicted, assessment.explained, ...
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
