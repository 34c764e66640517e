package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// RetentionWindow is how long audit entries are kept. Entries older than
// this are pruned on every write so the log cannot grow without bound.
const RetentionWindow = 90 * 24 * time.Hour

// Service interface defines audit log business logic
type Service interface {
	Record(farmID, action, actor string, details map[string]interface{}) error
	EntriesForFarm(farmID string, limit, offset int) ([]*models.AuditEntry, error)
	EntriesForActor(actor string, limit, offset int) ([]*models.AuditEntry, error)
	Purge() error
}

type service struct {
	repo AuditRepository
	log  *logrus.Logger
	now  func() time.Time
}

// NewService creates a new audit service
func NewService(repo AuditRepository, log *logrus.Logger) Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Record appends an immutable audit entry and prunes entries that have
// aged out of the retention window.
func (s *service) Record(farmID, action, actor string, details map[string]interface{}) error {
	if farmID == "" {
		return errors.New("farmID cannot be empty")
	}
	if action == "" {
		return errors.New("action cannot be empty")
	}

	pruned, err := s.repo.DeleteOlderThan(s.now().Add(-RetentionWindow))
	if err != nil {
		return fmt.Errorf("failed to prune audit log: %w", err)
	}
	if pruned > 0 {
		s.log.WithFields(logrus.Fields{
			"pruned": pruned,
			"farmID": farmID,
		}).Debug("Pruned expired audit entries")
	}

	payload := "{}"
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		payload = string(raw)
	}

	entry := &models.AuditEntry{
		EntryID: uuid.New().String(),
		FarmID:  farmID,
		Action:  action,
		Actor:   actor,
		Details: payload,
	}
	if err := s.repo.Create(entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// EntriesForFarm returns the audit trail of a single farm, newest first
func (s *service) EntriesForFarm(farmID string, limit, offset int) ([]*models.AuditEntry, error) {
	if farmID == "" {
		return nil, errors.New("farmID cannot be empty")
	}
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByFarm(farmID, limit, offset)
}

// EntriesForActor returns all entries recorded for one actor, newest first
func (s *service) EntriesForActor(actor string, limit, offset int) ([]*models.AuditEntry, error) {
	if actor == "" {
		return nil, errors.New("actor cannot be empty")
	}
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByActor(actor, limit, offset)
}

// Purge drops the entire audit log. It backs the storage free-space hook:
// when a write hits a full disk the log is sacrificed before retrying.
func (s *service) Purge() error {
	dropped, err := s.repo.DeleteAll()
	if err != nil {
		return fmt.Errorf("failed to purge audit log: %w", err)
	}
	s.log.WithField("dropped", dropped).Warn("Purged audit log to free storage")
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
