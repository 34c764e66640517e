package audit

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// AuditRepository interface defines audit log database operations
type AuditRepository interface {
	Create(entry *models.AuditEntry) error
	ListByFarm(farmID string, limit, offset int) ([]*models.AuditEntry, error)
	ListByActor(actor string, limit, offset int) ([]*models.AuditEntry, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
	DeleteAll() (int64, error)
	Count() (int64, error)
}

// auditRepository implements AuditRepository interface
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Create appends a new audit entry
func (r *auditRepository) Create(entry *models.AuditEntry) error {
	if entry == nil {
		return errors.New("audit entry cannot be nil")
	}
	return r.db.Create(entry).Error
}

// ListByFarm retrieves audit entries for a farm, newest first
func (r *auditRepository) ListByFarm(farmID string, limit, offset int) ([]*models.AuditEntry, error) {
	if farmID == "" {
		return nil, errors.New("farmID cannot be empty")
	}

	var entries []*models.AuditEntry
	err := r.db.Where("farm_id = ?", farmID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	return entries, err
}

// ListByActor retrieves audit entries recorded for an actor, newest first
func (r *auditRepository) ListByActor(actor string, limit, offset int) ([]*models.AuditEntry, error) {
	if actor == "" {
		return nil, errors.New("actor cannot be empty")
	}

	var entries []*models.AuditEntry
	err := r.db.Where("actor = ?", actor).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	return entries, err
}

// DeleteOlderThan removes entries created before the cutoff and returns the
// number removed
func (r *auditRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&models.AuditEntry{})
	return res.RowsAffected, res.Error
}

// DeleteAll removes every audit entry. Used by the storage free-space path.
func (r *auditRepository) DeleteAll() (int64, error) {
	res := r.db.Where("1 = 1").Delete(&models.AuditEntry{})
	return res.RowsAffected, res.Error
}

// Count returns the total number of retained entries
func (r *auditRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.AuditEntry{}).Count(&count).Error
	return count, err
}
