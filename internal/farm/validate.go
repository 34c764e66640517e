package farm

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Farm configuration bounds.
const (
	// MinDurationSeconds is the shortest non-zero farm duration (1 hour)
	MinDurationSeconds int64 = 3600
	// MaxDurationSeconds is the longest farm duration (365 days)
	MaxDurationSeconds int64 = 31_536_000

	secondsPerDay = 86_400
	daysPerYear   = 365
)

var (
	// MaxRewardRate caps reward units per staked unit per second
	MaxRewardRate = decimal.RequireFromString("0.001")
	// MaxAPYPercent caps the annualized yield a farm may advertise
	MaxAPYPercent = decimal.NewFromInt(10_000_000)

	annualizer = decimal.NewFromInt(secondsPerDay * daysPerYear * 100)
)

// Config is the tunable part of a farm. Duration and LockPeriod are in
// seconds; zero Duration means unbounded, zero MaxStake means uncapped.
type Config struct {
	RewardRate decimal.Decimal `json:"reward_rate"`
	Duration   int64           `json:"duration"`
	LockPeriod int64           `json:"lock_period"`
	MinStake   decimal.Decimal `json:"min_stake"`
	MaxStake   decimal.Decimal `json:"max_stake"`
}

// ConfigPatch is a partial config update; nil fields keep their current
// values.
type ConfigPatch struct {
	RewardRate *decimal.Decimal `json:"reward_rate"`
	Duration   *int64           `json:"duration"`
	LockPeriod *int64           `json:"lock_period"`
	MinStake   *decimal.Decimal `json:"min_stake"`
	MaxStake   *decimal.Decimal `json:"max_stake"`
}

// Apply merges the patch over an existing config and returns the result
func (p ConfigPatch) Apply(base Config) Config {
	merged := base
	if p.RewardRate != nil {
		merged.RewardRate = *p.RewardRate
	}
	if p.Duration != nil {
		merged.Duration = *p.Duration
	}
	if p.LockPeriod != nil {
		merged.LockPeriod = *p.LockPeriod
	}
	if p.MinStake != nil {
		merged.MinStake = *p.MinStake
	}
	if p.MaxStake != nil {
		merged.MaxStake = *p.MaxStake
	}
	return merged
}

// ValidationResult lists every rule the config violated
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Err converts an invalid result into a *ValidationError, nil when valid
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Violations: r.Errors}
}

// Validate checks a complete farm configuration against the bounds above.
// All violations are collected rather than failing on the first.
func Validate(cfg Config) ValidationResult {
	var violations []string

	if !cfg.RewardRate.IsPositive() {
		violations = append(violations, "reward rate must be greater than 0")
	} else if cfg.RewardRate.GreaterThan(MaxRewardRate) {
		violations = append(violations, fmt.Sprintf("reward rate must not exceed %s", MaxRewardRate.String()))
	}

	if impliedAPY := cfg.RewardRate.Mul(annualizer); impliedAPY.GreaterThan(MaxAPYPercent) {
		violations = append(violations, fmt.Sprintf("implied APY %s%% exceeds the %s%% ceiling",
			impliedAPY.String(), MaxAPYPercent.String()))
	}

	switch {
	case cfg.Duration < 0:
		violations = append(violations, "duration must not be negative")
	case cfg.Duration > 0 && cfg.Duration < MinDurationSeconds:
		violations = append(violations, fmt.Sprintf("duration must be at least %d seconds", MinDurationSeconds))
	case cfg.Duration > MaxDurationSeconds:
		violations = append(violations, fmt.Sprintf("duration must not exceed %d seconds", MaxDurationSeconds))
	}

	if cfg.Duration > 0 && cfg.LockPeriod > cfg.Duration {
		violations = append(violations, "lock period must not exceed farm duration")
	}
	if cfg.LockPeriod < 0 {
		violations = append(violations, "lock period must not be negative")
	}

	if cfg.MinStake.IsNegative() {
		violations = append(violations, "min stake must not be negative")
	}
	if cfg.MaxStake.IsPositive() && cfg.MaxStake.LessThan(cfg.MinStake) {
		violations = append(violations, "max stake must be greater than or equal to min stake")
	}

	return ValidationResult{Valid: len(violations) == 0, Errors: violations}
}
