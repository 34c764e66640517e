package farm

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/audit"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/metrics"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/storage"
)

// Ledger is the external token ledger the farm subsystem debits and
// credits. Supplied at construction so a real wallet backend can replace
// the in-repo implementation without touching farm logic.
type Ledger interface {
	GetToken(tokenID string) (*models.Token, error)
	BalanceOf(userAddress, tokenID string) (decimal.Decimal, error)
	Debit(userAddress, tokenID string, amount decimal.Decimal) error
	Credit(userAddress, tokenID string, amount decimal.Decimal) error
}

// Notifier receives entity updates for fan-out to websocket subscribers
type Notifier interface {
	FarmUpdated(farm *models.Farm)
	PositionUpdated(position *models.Position)
}

type noopNotifier struct{}

func (noopNotifier) FarmUpdated(*models.Farm)         {}
func (noopNotifier) PositionUpdated(*models.Position) {}

// CreateFarmRequest carries everything needed to open a new farm
type CreateFarmRequest struct {
	Creator        string
	OwnerTokenID   string
	StakingTokenID string
	RewardTokenID  string
	Config         Config
	InitialDeposit decimal.Decimal
	Description    string
}

// UnstakeResult reports what an unstake returned to the user
type UnstakeResult struct {
	Principal decimal.Decimal `json:"principal"`
	Rewards   decimal.Decimal `json:"rewards"`
	Removed   bool            `json:"removed"`
}

// SweepReport summarizes one reward sweep pass
type SweepReport struct {
	FarmsSwept       int
	PositionsUpdated int
	AutoPaused       []string
}

// Service interface defines farm business logic
type Service interface {
	// Registry
	CreateFarm(req CreateFarmRequest) (*models.Farm, error)
	UpdateFarmConfig(farmID, actor string, patch ConfigPatch) (*models.Farm, error)
	PauseFarm(farmID, actor string) (*models.Farm, error)
	ResumeFarm(farmID, actor string) (*models.Farm, error)
	DepositRewards(farmID, actor string, amount decimal.Decimal) (*models.Farm, error)
	CloseFarm(farmID, actor string) (decimal.Decimal, error)

	// Reads
	GetFarm(farmID string) (*models.Farm, error)
	ListFarms(status models.FarmStatus, limit, offset int) ([]*models.Farm, error)
	FarmsByCreator(creator string) ([]*models.Farm, error)
	Leaderboard(limit int) ([]*models.Farm, error)

	// Positions
	Stake(farmID, userAddress string, amount decimal.Decimal) (*models.Position, error)
	Unstake(farmID, userAddress string, amount decimal.Decimal) (*UnstakeResult, error)
	Harvest(farmID, userAddress string) (decimal.Decimal, error)
	PendingRewards(farmID, userAddress string) (decimal.Decimal, error)
	GetPosition(farmID, userAddress string) (*models.Position, error)
	FarmPositions(farmID string) ([]*models.Position, error)
	UserPositions(userAddress string) ([]*models.Position, error)

	// Background sweeps
	SweepRewards() (SweepReport, error)
	RecomputeStats() (int, error)
}

// service implements Service. The mutex serializes every mutation and
// sweep pass so each runs to completion against a consistent snapshot.
type service struct {
	farms     FarmRepository
	positions PositionRepository
	ledger    Ledger
	auditor   audit.Service
	cache     *LeaderboardCache
	notifier  Notifier
	log       *logrus.Logger
	now       func() time.Time
	mu        sync.Mutex
}

// NewService creates a new farm service. cache and notifier may be nil.
func NewService(farms FarmRepository, positions PositionRepository, ledger Ledger,
	auditor audit.Service, cache *LeaderboardCache, notifier Notifier, log *logrus.Logger) Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		farms:     farms,
		positions: positions,
		ledger:    ledger,
		auditor:   auditor,
		cache:     cache,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// persist runs a write under the storage failure contract: one attempt,
// then an audit-log purge and a single retry on capacity errors.
func (s *service) persist(write func() error) error {
	return storage.Persist(s.auditor.Purge, write)
}

func (s *service) recordOp(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.FarmOperationsTotal.WithLabelValues(operation, status).Inc()
}

// CreateFarm opens a new reward farm. The caller must be the creator of
// the owner token and hold enough reward tokens to cover the initial
// deposit.
func (s *service) CreateFarm(req CreateFarmRequest) (farm *models.Farm, err error) {
	defer func() { s.recordOp("create_farm", err) }()

	if req.Creator == "" {
		return nil, errors.New("creator cannot be empty")
	}
	if req.OwnerTokenID == "" || req.StakingTokenID == "" || req.RewardTokenID == "" {
		return nil, errors.New("ownerTokenID, stakingTokenID and rewardTokenID cannot be empty")
	}
	if req.InitialDeposit.IsNegative() {
		return nil, errors.New("initial deposit cannot be negative")
	}

	ownerToken, err := s.ledger.GetToken(req.OwnerTokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up owner token: %w", err)
	}
	if ownerToken == nil || !strings.EqualFold(ownerToken.Creator, req.Creator) {
		return nil, &AccessError{Actor: req.Creator}
	}

	if verr := Validate(req.Config).Err(); verr != nil {
		return nil, verr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.ledger.BalanceOf(req.Creator, req.RewardTokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to read reward-token balance: %w", err)
	}
	if balance.LessThan(req.InitialDeposit) {
		return nil, NewStateError(CodeInsufficientBalance,
			"reward-token balance %s does not cover initial deposit %s",
			balance.String(), req.InitialDeposit.String())
	}

	if req.InitialDeposit.IsPositive() {
		if err := s.ledger.Debit(req.Creator, req.RewardTokenID, req.InitialDeposit); err != nil {
			return nil, fmt.Errorf("failed to debit initial deposit: %w", err)
		}
	}

	now := s.now()
	farm = &models.Farm{
		FarmID:           uuid.New().String(),
		OwnerTokenID:     req.OwnerTokenID,
		StakingTokenID:   req.StakingTokenID,
		RewardTokenID:    req.RewardTokenID,
		Creator:          req.Creator,
		Description:      req.Description,
		Status:           models.FarmStatusActive,
		RewardRate:       req.Config.RewardRate,
		Duration:         req.Config.Duration,
		LockPeriod:       req.Config.LockPeriod,
		MinStake:         req.Config.MinStake,
		MaxStake:         req.Config.MaxStake,
		TotalDeposited:   req.InitialDeposit,
		AvailableRewards: req.InitialDeposit,
		TotalDistributed: decimal.Zero,
		LastCalculatedAt: now,
		TotalStaked:      decimal.Zero,
		UniqueStakers:    0,
		CurrentAPY:       EstimateAPY(req.Config.RewardRate),
		StatsUpdatedAt:   now,
	}
	if req.Config.Duration > 0 {
		expires := now.Add(time.Duration(req.Config.Duration) * time.Second)
		farm.ExpiresAt = &expires
	}

	if err := s.persist(func() error { return s.farms.Create(farm) }); err != nil {
		return nil, err
	}
	s.audit(farm.FarmID, "farm_created", req.Creator, map[string]interface{}{
		"owner_token":     req.OwnerTokenID,
		"staking_token":   req.StakingTokenID,
		"reward_token":    req.RewardTokenID,
		"reward_rate":     req.Config.RewardRate.String(),
		"duration":        req.Config.Duration,
		"lock_period":     req.Config.LockPeriod,
		"initial_deposit": req.InitialDeposit.String(),
	})

	s.log.WithFields(logrus.Fields{
		"farmID":  farm.FarmID,
		"creator": req.Creator,
		"deposit": req.InitialDeposit.String(),
	}).Info("Farm created")

	s.invalidateLeaderboard()
	s.notifier.FarmUpdated(farm)
	return farm, nil
}

// UpdateFarmConfig merges a partial config over the farm's current one,
// re-validates the merged result and commits only when valid.
func (s *service) UpdateFarmConfig(farmID, actor string, patch ConfigPatch) (farm *models.Farm, err error) {
	defer func() { s.recordOp("update_config", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	farm, err = s.ownedFarm(farmID, actor)
	if err != nil {
		return nil, err
	}

	merged := patch.Apply(configOf(farm))
	if verr := Validate(merged).Err(); verr != nil {
		return nil, verr
	}

	farm.RewardRate = merged.RewardRate
	farm.LockPeriod = merged.LockPeriod
	farm.MinStake = merged.MinStake
	farm.MaxStake = merged.MaxStake
	if farm.Duration != merged.Duration {
		farm.Duration = merged.Duration
		if merged.Duration > 0 {
			expires := farm.CreatedAt.Add(time.Duration(merged.Duration) * time.Second)
			farm.ExpiresAt = &expires
		} else {
			farm.ExpiresAt = nil
		}
	}
	farm.CurrentAPY = EstimateAPY(farm.RewardRate)

	if err := s.persist(func() error { return s.farms.Update(farm) }); err != nil {
		return nil, err
	}
	s.audit(farm.FarmID, "farm_config_updated", actor, map[string]interface{}{
		"reward_rate": farm.RewardRate.String(),
		"duration":    farm.Duration,
		"lock_period": farm.LockPeriod,
		"min_stake":   farm.MinStake.String(),
		"max_stake":   farm.MaxStake.String(),
	})

	s.notifier.FarmUpdated(farm)
	return farm, nil
}

// PauseFarm suspends reward accrual and staking on an active farm
func (s *service) PauseFarm(farmID, actor string) (*models.Farm, error) {
	return s.transitionFarm(farmID, actor, models.FarmStatusPaused, "farm_paused", "pause_farm")
}

// ResumeFarm reactivates a paused farm
func (s *service) ResumeFarm(farmID, actor string) (*models.Farm, error) {
	return s.transitionFarm(farmID, actor, models.FarmStatusActive, "farm_resumed", "resume_farm")
}

func (s *service) transitionFarm(farmID, actor string, target models.FarmStatus, action, operation string) (farm *models.Farm, err error) {
	defer func() { s.recordOp(operation, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	farm, err = s.ownedFarm(farmID, actor)
	if err != nil {
		return nil, err
	}

	if !farm.Status.CanTransitionTo(target) {
		return nil, NewStateError(CodeInvalidStatusTransition,
			"cannot transition farm %s from %s to %s", farmID, farm.Status, target)
	}

	previous := farm.Status
	farm.Status = target
	if err := s.persist(func() error { return s.farms.Update(farm) }); err != nil {
		return nil, err
	}
	s.audit(farm.FarmID, action, actor, map[string]interface{}{
		"from": previous.String(),
		"to":   target.String(),
	})

	s.log.WithFields(logrus.Fields{
		"farmID": farm.FarmID,
		"from":   previous,
		"to":     target,
	}).Info("Farm status changed")

	s.invalidateLeaderboard()
	s.notifier.FarmUpdated(farm)
	return farm, nil
}

// DepositRewards tops up the farm's reward pool from the owner's balance
func (s *service) DepositRewards(farmID, actor string, amount decimal.Decimal) (farm *models.Farm, err error) {
	defer func() { s.recordOp("deposit_rewards", err) }()

	if !amount.IsPositive() {
		return nil, errors.New("deposit amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	farm, err = s.ownedFarm(farmID, actor)
	if err != nil {
		return nil, err
	}
	if farm.Status == models.FarmStatusClosed {
		return nil, NewStateError(CodeFarmNotActive, "cannot deposit rewards into closed farm %s", farmID)
	}

	balance, err := s.ledger.BalanceOf(actor, farm.RewardTokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to read reward-token balance: %w", err)
	}
	if balance.LessThan(amount) {
		return nil, NewStateError(CodeInsufficientBalance,
			"reward-token balance %s does not cover deposit %s", balance.String(), amount.String())
	}
	if err := s.ledger.Debit(actor, farm.RewardTokenID, amount); err != nil {
		return nil, fmt.Errorf("failed to debit deposit: %w", err)
	}

	farm.TotalDeposited = farm.TotalDeposited.Add(amount)
	farm.AvailableRewards = farm.AvailableRewards.Add(amount)

	if err := s.persist(func() error { return s.farms.Update(farm) }); err != nil {
		return nil, err
	}
	s.audit(farm.FarmID, "rewards_deposited", actor, map[string]interface{}{
		"amount":            amount.String(),
		"available_rewards": farm.AvailableRewards.String(),
	})

	s.notifier.FarmUpdated(farm)
	return farm, nil
}

// CloseFarm shuts a farm down for good. Fails while any position still
// holds stake; otherwise the remaining pool is refunded to the owner and
// the status becomes closed. Returns the refunded amount.
func (s *service) CloseFarm(farmID, actor string) (refund decimal.Decimal, err error) {
	defer func() { s.recordOp("close_farm", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	farm, err := s.ownedFarm(farmID, actor)
	if err != nil {
		return decimal.Zero, err
	}
	if farm.Status == models.FarmStatusClosed {
		return decimal.Zero, NewStateError(CodeInvalidStatusTransition, "farm %s is already closed", farmID)
	}

	outstanding, err := s.positions.CountStakedByFarm(farmID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to count farm positions: %w", err)
	}
	if outstanding > 0 {
		positions, err := s.positions.ListByFarm(farmID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to list farm positions: %w", err)
		}
		var staked []string
		for _, position := range positions {
			if position.StakedAmount.IsPositive() {
				staked = append(staked, position.UserAddress)
			}
		}
		return decimal.Zero, NewStateError(CodePositionsOutstanding,
			"farm %s still has %d staked positions (%s)", farmID, outstanding, strings.Join(staked, ", "))
	}

	refund = farm.AvailableRewards
	if refund.IsPositive() {
		if err := s.ledger.Credit(farm.Creator, farm.RewardTokenID, refund); err != nil {
			return decimal.Zero, fmt.Errorf("failed to refund reward pool: %w", err)
		}
	}

	farm.AvailableRewards = decimal.Zero
	farm.Status = models.FarmStatusClosed

	if err := s.persist(func() error { return s.farms.Update(farm) }); err != nil {
		return decimal.Zero, err
	}
	s.audit(farm.FarmID, "farm_closed", actor, map[string]interface{}{
		"refunded": refund.String(),
	})

	s.log.WithFields(logrus.Fields{
		"farmID":   farm.FarmID,
		"refunded": refund.String(),
	}).Info("Farm closed")

	s.invalidateLeaderboard()
	s.notifier.FarmUpdated(farm)
	return refund, nil
}

// GetFarm retrieves a farm by ID, nil when it does not exist
func (s *service) GetFarm(farmID string) (*models.Farm, error) {
	if farmID == "" {
		return nil, errors.New("farmID cannot be empty")
	}
	return s.farms.GetByFarmID(farmID)
}

// ListFarms retrieves farms with optional status filter and pagination
func (s *service) ListFarms(status models.FarmStatus, limit, offset int) ([]*models.Farm, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("invalid farm status %q", status)
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.farms.List(status, limit, offset)
}

// FarmsByCreator retrieves every farm created by one address
func (s *service) FarmsByCreator(creator string) ([]*models.Farm, error) {
	if creator == "" {
		return nil, errors.New("creator cannot be empty")
	}
	return s.farms.ListByCreator(creator)
}

// leaderboardDepth is how many ranked farms the cache holds; requests are
// sliced out of this list.
const leaderboardDepth = 100

// Leaderboard returns active farms ranked by total staked, read through
// the cache when one is configured.
func (s *service) Leaderboard(limit int) ([]*models.Farm, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > leaderboardDepth {
		limit = leaderboardDepth
	}

	if s.cache != nil {
		if farms, ok := s.cache.GetLeaderboard(); ok {
			return trimFarms(farms, limit), nil
		}
	}

	farms, err := s.farms.GetTopFarmsByStaked(leaderboardDepth)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetLeaderboard(farms)
	}
	return trimFarms(farms, limit), nil
}

func trimFarms(farms []*models.Farm, limit int) []*models.Farm {
	if len(farms) > limit {
		return farms[:limit]
	}
	return farms
}

// ownedFarm loads a farm and checks the actor owns it. Callers hold the
// service mutex.
func (s *service) ownedFarm(farmID, actor string) (*models.Farm, error) {
	if actor == "" {
		return nil, errors.New("actor cannot be empty")
	}
	farm, err := s.loadFarm(farmID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(farm.Creator, actor) {
		return nil, &AccessError{Actor: actor, FarmID: farmID}
	}
	return farm, nil
}

// audit appends an entry for a committed mutation. A failing audit write
// is logged but does not unwind the already-persisted operation.
func (s *service) audit(farmID, action, actor string, details map[string]interface{}) {
	if err := s.persist(func() error { return s.auditor.Record(farmID, action, actor, details) }); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"farmID": farmID,
			"action": action,
		}).Error("Failed to append audit entry")
	}
}

func (s *service) invalidateLeaderboard() {
	if s.cache != nil {
		s.cache.InvalidateLeaderboard()
	}
}

func configOf(farm *models.Farm) Config {
	return Config{
		RewardRate: farm.RewardRate,
		Duration:   farm.Duration,
		LockPeriod: farm.LockPeriod,
		MinStake:   farm.MinStake,
		MaxStake:   farm.MaxStake,
	}
}
