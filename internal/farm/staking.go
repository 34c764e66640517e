package farm

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// Stake locks the user's staking tokens into a farm. A first stake creates
// the position; later stakes accrue the pending rewards, then merge into
// the existing one.
func (s *service) Stake(farmID, userAddress string, amount decimal.Decimal) (position *models.Position, err error) {
	defer func() { s.recordOp("stake", err) }()

	if userAddress == "" {
		return nil, errors.New("userAddress cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, errors.New("stake amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	farm, err := s.loadFarm(farmID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if farm.Status != models.FarmStatusActive {
		return nil, NewStateError(CodeFarmNotActive, "farm %s is %s", farmID, farm.Status)
	}
	if farm.Expired(now) {
		return nil, NewStateError(CodeFarmExpired, "farm %s expired at %s", farmID, farm.ExpiresAt.Format(time.RFC3339))
	}
	if amount.LessThan(farm.MinStake) {
		return nil, NewStateError(CodeStakeBelowMinimum,
			"stake %s is below the farm minimum %s", amount.String(), farm.MinStake.String())
	}
	if farm.MaxStake.IsPositive() && amount.GreaterThan(farm.MaxStake) {
		return nil, NewStateError(CodeStakeAboveMaximum,
			"stake %s is above the farm maximum %s", amount.String(), farm.MaxStake.String())
	}

	balance, err := s.ledger.BalanceOf(userAddress, farm.StakingTokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to read staking-token balance: %w", err)
	}
	if balance.LessThan(amount) {
		return nil, NewStateError(CodeInsufficientBalance,
			"staking-token balance %s does not cover stake %s", balance.String(), amount.String())
	}
	if err := s.ledger.Debit(userAddress, farm.StakingTokenID, amount); err != nil {
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}

	position, err = s.positions.Get(farmID, userAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to load position: %w", err)
	}

	newPosition := position == nil
	if newPosition {
		position = &models.Position{
			PositionID:         uuid.New().String(),
			FarmID:             farmID,
			UserAddress:        userAddress,
			StakedAmount:       amount,
			StakedAt:           now,
			LastHarvestAt:      now,
			AccumulatedRewards: decimal.Zero,
		}
		if farm.LockPeriod > 0 {
			expires := now.Add(time.Duration(farm.LockPeriod) * time.Second)
			position.IsLocked = true
			position.LockExpiresAt = &expires
		}
		err = s.persist(func() error { return s.positions.Create(position) })
	} else {
		// Roll pending rewards forward before the stake changes, so the
		// merged position keeps what the old stake already earned.
		position.AccumulatedRewards = TotalAccrued(farm, position, now)
		position.StakedAmount = position.StakedAmount.Add(amount)
		position.LastHarvestAt = now
		err = s.persist(func() error { return s.positions.Update(position) })
	}
	if err != nil {
		return nil, err
	}

	farm.TotalStaked = farm.TotalStaked.Add(amount)
	if newPosition {
		farm.UniqueStakers++
	}
	farm.CurrentAPY = PoolAPY(farm.RewardRate, farm.TotalStaked)
	farm.StatsUpdatedAt = now

	if err := s.persist(func() error { return s.farms.Update(farm) }); err != nil {
		return nil, err
	}
	s.audit(farmID, "stake", userAddress, map[string]interface{}{
		"amount":       amount.String(),
		"staked_total": position.StakedAmount.String(),
		"new_position": newPosition,
	})

	s.log.WithFields(logrus.Fields{
		"farmID": farmID,
		"user":   userAddress,
		"amount": amount.String(),
	}).Info("Stake accepted")

	s.invalidateLeaderboard()
	s.notifier.PositionUpdated(position)
	s.notifier.FarmUpdated(farm)
	return position, nil
}

// Unstake withdraws principal plus all accrued rewards. A full unstake
// removes the position entirely.
func (s *service) Unstake(farmID, userAddress string, amount decimal.Decimal) (result *UnstakeResult, err error) {
	defer func() { s.recordOp("unstake", err) }()

	if userAddress == "" {
		return nil, errors.New("userAddress cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, errors.New("unstake amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	farm, err := s.loadFarm(farmID)
	if err != nil {
		return nil, err
	}
	position, err := s.loadPosition(farmID, userAddress)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if position.Locked(now) {
		remaining := position.LockExpiresAt.Sub(now).Round(time.Second)
		return nil, NewStateError(CodePositionLocked,
			"position is locked for another %s", remaining)
	}
	if amount.GreaterThan(position.StakedAmount) {
		return nil, NewStateError(CodeInsufficientBalance,
			"unstake %s exceeds staked amount %s", amount.String(), position.StakedAmount.String())
	}

	rewards := TotalAccrued(farm, position, now)
	if rewards.GreaterThan(farm.AvailableRewards) {
		return nil, NewStateError(CodeInsufficientPool,
			"accrued rewards %s exceed the farm's available pool %s",
			rewards.String(), farm.AvailableRewards.String())
	}

	if err := s.ledger.Credit(userAddress, farm.StakingTokenID, amount); err != nil {
		return nil, fmt.Errorf("failed to return principal: %w", err)
	}
	if rewards.IsPositive() {
		if err := s.ledger.Credit(userAddress, farm.RewardTokenID, rewards); err != nil {
			return nil, fmt.Errorf("failed to pay out rewards: %w", err)
		}
	}

	removed := amount.Equal(position.StakedAmount)
	if removed {
		err = s.persist(func() error { return s.positions.Delete(position) })
	} else {
		position.StakedAmount = position.StakedAmount.Sub(amount)
		position.AccumulatedRewards = decimal.Zero
		position.LastHarvestAt = now
		err = s.persist(func() error { return s.positions.Update(position) })
	}
	if err != nil {
		return nil, err
	}

	farm.AvailableRewards = farm.AvailableRewards.Sub(rewards)
	farm.TotalDistributed = farm.TotalDistributed.Add(rewards)
	farm.TotalStaked = farm.TotalStaked.Sub(amount)
	if farm.TotalStaked.IsNegative() {
		farm.TotalStaked = decimal.Zero
	}
	if removed && farm.UniqueStakers > 0 {
		farm.UniqueStakers--
	}
	farm.CurrentAPY = PoolAPY(farm.RewardRate, farm.TotalStaked)
	farm.StatsUpdatedAt = now

	if err := s.persist(func() error { return s.farms.Update(farm) }); err != nil {
		return nil, err
	}
	s.audit(farmID, "unstake", userAddress, map[string]interface{}{
		"amount":  amount.String(),
		"rewards": rewards.String(),
		"removed": removed,
	})

	s.log.WithFields(logrus.Fields{
		"farmID":  farmID,
		"user":    userAddress,
		"amount":  amount.String(),
		"rewards": rewards.String(),
		"removed": removed,
	}).Info("Unstake completed")

	s.invalidateLeaderboard()
	s.notifier.PositionUpdated(position)
	s.notifier.FarmUpdated(farm)
	return &UnstakeResult{Principal: amount, Rewards: rewards, Removed: removed}, nil
}

// Harvest pays out all accrued rewards without touching the principal
func (s *service) Harvest(farmID, userAddress string) (rewards decimal.Decimal, err error) {
	defer func() { s.recordOp("harvest", err) }()

	if userAddress == "" {
		return decimal.Zero, errors.New("userAddress cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	farm, err := s.loadFarm(farmID)
	if err != nil {
		return decimal.Zero, err
	}
	position, err := s.loadPosition(farmID, userAddress)
	if err != nil {
		return decimal.Zero, err
	}

	now := s.now()
	rewards = TotalAccrued(farm, position, now)
	if !rewards.IsPositive() {
		return decimal.Zero, NewStateError(CodeNothingToHarvest,
			"position has no accrued rewards to harvest")
	}
	if rewards.GreaterThan(farm.AvailableRewards) {
		return decimal.Zero, NewStateError(CodeInsufficientPool,
			"accrued rewards %s exceed the farm's available pool %s",
			rewards.String(), farm.AvailableRewards.String())
	}

	if err := s.ledger.Credit(userAddress, farm.RewardTokenID, rewards); err != nil {
		return decimal.Zero, fmt.Errorf("failed to pay out rewards: %w", err)
	}

	position.AccumulatedRewards = decimal.Zero
	position.LastHarvestAt = now
	if err := s.persist(func() error { return s.positions.Update(position) }); err != nil {
		return decimal.Zero, err
	}

	farm.AvailableRewards = farm.AvailableRewards.Sub(rewards)
	farm.TotalDistributed = farm.TotalDistributed.Add(rewards)
	if err := s.persist(func() error { return s.farms.Update(farm) }); err != nil {
		return decimal.Zero, err
	}
	s.audit(farmID, "harvest", userAddress, map[string]interface{}{
		"rewards": rewards.String(),
	})

	s.log.WithFields(logrus.Fields{
		"farmID":  farmID,
		"user":    userAddress,
		"rewards": rewards.String(),
	}).Info("Harvest paid out")

	s.notifier.PositionUpdated(position)
	s.notifier.FarmUpdated(farm)
	return rewards, nil
}

// PendingRewards previews what a harvest would pay right now
func (s *service) PendingRewards(farmID, userAddress string) (decimal.Decimal, error) {
	if userAddress == "" {
		return decimal.Zero, errors.New("userAddress cannot be empty")
	}

	farm, err := s.loadFarm(farmID)
	if err != nil {
		return decimal.Zero, err
	}
	position, err := s.loadPosition(farmID, userAddress)
	if err != nil {
		return decimal.Zero, err
	}
	return TotalAccrued(farm, position, s.now()), nil
}

// GetPosition retrieves the user's position in a farm, nil when none exists
func (s *service) GetPosition(farmID, userAddress string) (*models.Position, error) {
	return s.positions.Get(farmID, userAddress)
}

// FarmPositions lists every position in a farm
func (s *service) FarmPositions(farmID string) ([]*models.Position, error) {
	return s.positions.ListByFarm(farmID)
}

// UserPositions lists the user's positions across all farms
func (s *service) UserPositions(userAddress string) ([]*models.Position, error) {
	return s.positions.ListByUser(userAddress)
}

func (s *service) loadFarm(farmID string) (*models.Farm, error) {
	if farmID == "" {
		return nil, errors.New("farmID cannot be empty")
	}
	farm, err := s.farms.GetByFarmID(farmID)
	if err != nil {
		return nil, fmt.Errorf("failed to load farm: %w", err)
	}
	if farm == nil {
		return nil, NewStateError(CodeFarmNotFound, "farm %s does not exist", farmID)
	}
	return farm, nil
}

func (s *service) loadPosition(farmID, userAddress string) (*models.Position, error) {
	position, err := s.positions.Get(farmID, userAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to load position: %w", err)
	}
	if position == nil {
		return nil, NewStateError(CodePositionNotFound,
			"no position for %s in farm %s", userAddress, farmID)
	}
	return position, nil
}
