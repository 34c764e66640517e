package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FarmStatus represents the lifecycle status of a farm
type FarmStatus string

const (
	FarmStatusActive FarmStatus = "active"
	FarmStatusPaused FarmStatus = "paused"
	FarmStatusClosed FarmStatus = "closed"
)

// String returns the string representation of the status
func (s FarmStatus) String() string {
	return string(s)
}

// Valid reports whether the status is one of the known lifecycle states
func (s FarmStatus) Valid() bool {
	switch s {
	case FarmStatusActive, FarmStatusPaused, FarmStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle transition s -> to is allowed.
// Closed is terminal.
func (s FarmStatus) CanTransitionTo(to FarmStatus) bool {
	switch s {
	case FarmStatusActive:
		return to == FarmStatusPaused || to == FarmStatusClosed
	case FarmStatusPaused:
		return to == FarmStatusActive || to == FarmStatusClosed
	}
	return false
}

// Farm represents a reward-distribution campaign tied to one launchpad token.
// Users stake StakingToken to earn RewardToken at RewardRate per staked unit
// per second, funded by the creator's reward pool deposits.
type Farm struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	FarmID         string     `json:"farm_id" gorm:"uniqueIndex;not null;size:36"`
	OwnerTokenID   string     `json:"owner_token_id" gorm:"not null;size:66;index"`
	StakingTokenID string     `json:"staking_token_id" gorm:"not null;size:66"`
	RewardTokenID  string     `json:"reward_token_id" gorm:"not null;size:66"`
	Creator        string     `json:"creator" gorm:"not null;size:42;index"`
	Description    string     `json:"description" gorm:"size:500"`
	Status         FarmStatus `json:"status" gorm:"not null;size:10;index"`

	// Reward configuration
	RewardRate decimal.Decimal `json:"reward_rate" gorm:"type:decimal(36,18);not null"` // reward units per staked unit per second
	Duration   int64           `json:"duration" gorm:"not null;default:0"`              // seconds, 0 = unbounded
	LockPeriod int64           `json:"lock_period" gorm:"not null;default:0"`           // seconds, 0 = no lock
	MinStake   decimal.Decimal `json:"min_stake" gorm:"type:decimal(36,18)"`
	MaxStake   decimal.Decimal `json:"max_stake" gorm:"type:decimal(36,18)"` // 0 = no maximum
	ExpiresAt  *time.Time      `json:"expires_at"`

	// Reward pool accounting
	TotalDeposited   decimal.Decimal `json:"total_deposited" gorm:"type:decimal(36,18)"`
	AvailableRewards decimal.Decimal `json:"available_rewards" gorm:"type:decimal(36,18)"`
	TotalDistributed decimal.Decimal `json:"total_distributed" gorm:"type:decimal(36,18)"`
	LastCalculatedAt time.Time       `json:"last_calculated_at"`

	// Aggregate statistics
	TotalStaked    decimal.Decimal `json:"total_staked" gorm:"type:decimal(36,18)"`
	UniqueStakers  int             `json:"unique_stakers" gorm:"default:0"`
	CurrentAPY     decimal.Decimal `json:"current_apy" gorm:"type:decimal(36,18)"` // percent
	StatsUpdatedAt time.Time       `json:"stats_updated_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for Farm model
func (Farm) TableName() string {
	return "farms"
}

// BeforeCreate hook to validate farm data
func (f *Farm) BeforeCreate(tx *gorm.DB) error {
	if f.FarmID == "" || f.OwnerTokenID == "" || f.StakingTokenID == "" || f.RewardTokenID == "" {
		return gorm.ErrInvalidData
	}
	if !f.Status.Valid() {
		return gorm.ErrInvalidData
	}
	return nil
}

// Expired reports whether the farm's reward window has ended at the given time
func (f *Farm) Expired(now time.Time) bool {
	return f.ExpiresAt != nil && now.After(*f.ExpiresAt)
}

// Position represents one user's stake in one farm. A user holds at most one
// position per farm; repeat stakes merge into it. Fully unstaked positions are
// deleted, never retained, so rows are removed with hard deletes.
type Position struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	PositionID         string          `json:"position_id" gorm:"uniqueIndex;not null;size:36"`
	FarmID             string          `json:"farm_id" gorm:"not null;size:36;index:idx_positions_farm_user,unique"`
	UserAddress        string          `json:"user_address" gorm:"not null;size:42;index:idx_positions_farm_user,unique;index"`
	StakedAmount       decimal.Decimal `json:"staked_amount" gorm:"type:decimal(36,18);not null"`
	StakedAt           time.Time       `json:"staked_at"`
	LastHarvestAt      time.Time       `json:"last_harvest_at"`
	AccumulatedRewards decimal.Decimal `json:"accumulated_rewards" gorm:"type:decimal(36,18)"`
	IsLocked           bool            `json:"is_locked" gorm:"default:false"`
	LockExpiresAt      *time.Time      `json:"lock_expires_at"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName returns the table name for Position model
func (Position) TableName() string {
	return "positions"
}

// BeforeCreate hook to validate position data
func (p *Position) BeforeCreate(tx *gorm.DB) error {
	if p.PositionID == "" || p.FarmID == "" || p.UserAddress == "" {
		return gorm.ErrInvalidData
	}
	if p.StakedAmount.IsZero() || p.StakedAmount.IsNegative() {
		return gorm.ErrInvalidData
	}
	return nil
}

// Locked reports whether the position is still inside its lock period
func (p *Position) Locked(now time.Time) bool {
	return p.IsLocked && p.LockExpiresAt != nil && p.LockExpiresAt.After(now)
}

// AuditEntry is an append-only record of a farm operation. Entries are pruned
// past the retention window on every write and never updated in place.
type AuditEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	EntryID   string    `json:"entry_id" gorm:"uniqueIndex;not null;size:36"`
	FarmID    string    `json:"farm_id" gorm:"not null;size:36;index"`
	Action    string    `json:"action" gorm:"not null;size:40;index"`
	Actor     string    `json:"actor" gorm:"not null;size:42;index"`
	Details   string    `json:"details" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the table name for AuditEntry model
func (AuditEntry) TableName() string {
	return "farm_audit_log"
}

// BeforeCreate hook to validate audit data
func (a *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if a.EntryID == "" || a.Action == "" {
		return gorm.ErrInvalidData
	}
	return nil
}

// Token represents a launchpad token known to the ledger
type Token struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	TokenID     string          `json:"token_id" gorm:"uniqueIndex;not null;size:66"`
	Symbol      string          `json:"symbol" gorm:"not null;size:20;index"`
	Name        string          `json:"name" gorm:"not null;size:100"`
	Decimals    uint8           `json:"decimals" gorm:"not null;default:18"`
	Creator     string          `json:"creator" gorm:"not null;size:42;index"`
	TotalSupply decimal.Decimal `json:"total_supply" gorm:"type:decimal(36,18)"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(36,18)"`
	Tags        pq.StringArray  `json:"tags" gorm:"type:text[]"`
	IsActive    bool            `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for Token model
func (Token) TableName() string {
	return "tokens"
}

// BeforeCreate hook to validate token data
func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.TokenID == "" || t.Symbol == "" || t.Name == "" {
		return gorm.ErrInvalidData
	}
	return nil
}

// Balance is one user's holding of one token
type Balance struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserAddress string          `json:"user_address" gorm:"not null;size:42;uniqueIndex:idx_balances_user_token"`
	TokenID     string          `json:"token_id" gorm:"not null;size:66;uniqueIndex:idx_balances_user_token"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(36,18);not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName returns the table name for Balance model
func (Balance) TableName() string {
	return "balances"
}
