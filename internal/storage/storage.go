package storage

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StorageError marks a persistence write that failed even after the
// free-space retry. Callers treat it as fatal to the originating operation.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Open connects to the configured database
func Open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case DriverPostgres:
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case DriverSQLite:
		return gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Migrate creates or updates the schema for all models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Token{},
		&models.Balance{},
		&models.Farm{},
		&models.Position{},
		&models.AuditEntry{},
	)
}

// IsQuotaExceeded reports whether the error is a storage-capacity failure:
// SQLITE_FULL surfaces as "database or disk is full", postgres disk_full as
// SQLSTATE 53100.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database or disk is full") ||
		strings.Contains(msg, "SQLSTATE 53100")
}

// Persist runs a write, retrying exactly once after freeing space when the
// failure is a capacity error. Any remaining failure is returned as a
// *StorageError; business-rule failures never reach this path.
func Persist(freeSpace func() error, write func() error) error {
	err := write()
	if err == nil {
		return nil
	}
	if IsQuotaExceeded(err) && freeSpace != nil {
		logrus.WithError(err).Warn("Storage quota exceeded, pruning audit log and retrying write")
		if pruneErr := freeSpace(); pruneErr != nil {
			logrus.WithError(pruneErr).Error("Failed to free storage space")
		} else if err = write(); err == nil {
			return nil
		}
	}
	return &StorageError{Err: err}
}
