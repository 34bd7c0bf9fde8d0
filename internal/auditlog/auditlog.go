// Package auditlog persists one structured record per turn (the
// TurnState snapshot plus the plan verdict) so the session lifecycle
// across turns can be reconstructed when debugging a conversation. It is
// an observability trail of orchestrator decisions, not the booking
// store; bookings live behind the execution backend.
package auditlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// TurnAuditRecord is one row per turn.
type TurnAuditRecord struct {
	ID             string `gorm:"type:uuid;primary_key" json:"id"`
	TurnID         string `gorm:"index;type:varchar(64);not null" json:"turnId"`
	UserID         string `gorm:"index;type:varchar(255);not null" json:"userId"`
	Domain         string `gorm:"type:varchar(32);not null" json:"domain"`
	Intent         string `gorm:"type:varchar(64);not null" json:"intent"`
	Status         string `gorm:"type:varchar(32);not null" json:"status"`
	DecisionReason string `gorm:"type:varchar(64)" json:"decisionReason,omitempty"`
	ActionName     string `gorm:"type:varchar(64)" json:"actionName,omitempty"`
	TurnState      string `gorm:"type:jsonb" json:"turnState"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// BeforeCreate sets a UUID for the record ID.
func (r *TurnAuditRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// TableName explicitly sets the table name.
func (TurnAuditRecord) TableName() string {
	return "turn_audit_records"
}

// Repository writes and reads turn audit records.
type Repository struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewRepository creates an audit log repository.
func NewRepository(db *gorm.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log}
}

// Record writes one row for a completed turn. Audit failures are logged
// and swallowed: losing a trail row must never fail the turn itself.
func (r *Repository) Record(turnID, userID string, d domain.Domain, turn *domain.TurnState, actionName string) {
	if r == nil || r.db == nil {
		return
	}
	snapshot, err := json.Marshal(turn)
	if err != nil {
		r.logger.Error("failed to encode turn state for audit", "turn_id", turnID, "error", err)
		return
	}
	rec := TurnAuditRecord{
		TurnID:         turnID,
		UserID:         userID,
		Domain:         string(d),
		Intent:         string(turn.Intent),
		Status:         string(turn.Status),
		DecisionReason: turn.DecisionReason,
		ActionName:     actionName,
		TurnState:      string(snapshot),
	}
	if err := r.db.Create(&rec).Error; err != nil {
		r.logger.Error("failed to persist turn audit record", "turn_id", turnID, "user_id", userID, "error", err)
	}
}

// ListByUser returns the most recent records for a conversation, newest
// first.
func (r *Repository) ListByUser(userID string, d domain.Domain, limit int) ([]TurnAuditRecord, error) {
	var records []TurnAuditRecord
	err := r.db.
		Where("user_id = ? AND domain = ?", userID, string(d)).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	return records, nil
}

// PruneOlderThan deletes records past the retention horizon. Returns how
// many rows were removed.
func (r *Repository) PruneOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&TurnAuditRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune audit records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Connect connects to the PostgreSQL database backing the audit log.
func Connect(host string, port int, user, password, name, sslMode string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create uuid extension: %w", err)
	}

	if err := db.AutoMigrate(&TurnAuditRecord{}); err != nil {
		return fmt.Errorf("failed to run auto-migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createIndexes creates additional indexes for common query patterns
func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_turn_audit_user_domain ON turn_audit_records(user_id, domain)",
		"CREATE INDEX IF NOT EXISTS idx_turn_audit_status_created ON turn_audit_records(status, created_at)",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
