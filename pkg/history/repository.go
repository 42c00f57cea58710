// Package history stores explained assessments for later review.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
	"github.com/synaptica-ai/oncorisk/pkg/session"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AssessmentRecord is one explained assessment: the form it was computed
// from, the verdict, and the explanation that was shown.
type AssessmentRecord struct {
	ID          uuid.UUID         `gorm:"primaryKey;column:id"`
	SessionID   string            `gorm:"column:session_id;index"`
	Revision    uint64            `gorm:"column:revision"`
	Fields      datatypes.JSONMap `gorm:"column:fields"`
	HighRisk    bool              `gorm:"column:high_risk"`
	Verdict     string            `gorm:"column:verdict"`
	Explanation datatypes.JSONMap `gorm:"column:explanation"`
	Suggestion  string            `gorm:"column:suggestion"`
	CreatedAt   time.Time         `gorm:"column:created_at;index"`
}

func (AssessmentRecord) TableName() string {
	return "assessment_records"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&AssessmentRecord{})
}

// Record stores the explained assessment carried by event.
func (r *Repository) Record(ctx context.Context, event session.Event) error {
	record := AssessmentRecord{
		ID:          uuid.New(),
		SessionID:   event.SessionID,
		Revision:    event.Revision,
		Fields:      datatypes.JSONMap{},
		Explanation: datatypes.JSONMap{},
		Suggestion:  event.Suggestion,
		CreatedAt:   event.At,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	for name, value := range event.Fields {
		record.Fields[name] = value
	}
	for label, value := range event.Explanation {
		record.Explanation[label] = value
	}
	if event.Verdict != nil {
		record.HighRisk = event.Verdict.HighRisk
		record.Verdict = event.Verdict.Label()
	}
	return r.db.WithContext(ctx).Create(&record).Error
}

// Recent returns the most recent records up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]AssessmentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []AssessmentRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// Observe records every applied explanation. Failures are logged only.
func (r *Repository) Observe(ctx context.Context, event session.Event) {
	if event.Type != session.EventExplained {
		return
	}
	if err := r.Record(ctx, event); err != nil {
		logger.WithField("session_id", event.SessionID).WithError(err).Error("Failed to record assessment history")
	}
}
