package farm

import (
	"time"

	"github.com/shopspring/decimal"
)

// TestStakeCreatesPosition tests a first stake opens a locked position
func (suite *FarmServiceTestSuite) TestStakeCreatesPosition() {
	cfg := defaultConfig()
	cfg.LockPeriod = 3600
	farm := suite.createFarm(cfg, 10_000)

	position, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(500))
	suite.Require().NoError(err)

	suite.NotEmpty(position.PositionID)
	suite.Equal(farm.FarmID, position.FarmID)
	suite.Equal(userAddrA, position.UserAddress)
	suite.True(position.StakedAmount.Equal(decimal.NewFromInt(500)))
	suite.True(position.AccumulatedRewards.IsZero())
	suite.WithinDuration(suite.current, position.StakedAt, time.Second)
	suite.WithinDuration(suite.current, position.LastHarvestAt, time.Second)
	suite.True(position.IsLocked)
	suite.Require().NotNil(position.LockExpiresAt)
	suite.WithinDuration(suite.current.Add(3600*time.Second), *position.LockExpiresAt, time.Second)

	// stake left the user's balance
	suite.True(suite.balance(userAddrA, stakingTokenID).Equal(decimal.NewFromInt(99_500)))

	// farm stats follow immediately
	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.True(stored.TotalStaked.Equal(decimal.NewFromInt(500)))
	suite.Equal(1, stored.UniqueStakers)
	suite.True(stored.CurrentAPY.Equal(PoolAPY(cfg.RewardRate, decimal.NewFromInt(500))))
}

// TestStakeWithoutLockPeriod tests positions stay liquid when the farm has no lock
func (suite *FarmServiceTestSuite) TestStakeWithoutLockPeriod() {
	farm := suite.createFarm(defaultConfig(), 0)

	position, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(500))
	suite.Require().NoError(err)
	suite.False(position.IsLocked)
	suite.Nil(position.LockExpiresAt)
}

// TestStakeMergesIntoExistingPosition tests re-staking accrues first, then merges
func (suite *FarmServiceTestSuite) TestStakeMergesIntoExistingPosition() {
	farm := suite.createFarm(defaultConfig(), 10_000)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(500))
	suite.Require().NoError(err)

	suite.advance(1000 * time.Second)

	position, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(500))
	suite.Require().NoError(err)

	suite.True(position.StakedAmount.Equal(decimal.NewFromInt(1000)))
	// 500 * 0.0001 * 1000s accrued before the merge
	suite.True(position.AccumulatedRewards.Equal(decimal.NewFromInt(50)),
		"accumulated %s", position.AccumulatedRewards)
	suite.WithinDuration(suite.current, position.LastHarvestAt, time.Second)

	// still a single position, still one staker
	positions, err := suite.svc.FarmPositions(farm.FarmID)
	suite.Require().NoError(err)
	suite.Len(positions, 1)

	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.True(stored.TotalStaked.Equal(decimal.NewFromInt(1000)))
	suite.Equal(1, stored.UniqueStakers)
}

// TestStakeValidation tests trivial argument failures
func (suite *FarmServiceTestSuite) TestStakeValidation() {
	farm := suite.createFarm(defaultConfig(), 0)

	_, err := suite.svc.Stake(farm.FarmID, "", decimal.NewFromInt(10))
	suite.Error(err)

	_, err = suite.svc.Stake(farm.FarmID, userAddrA, decimal.Zero)
	suite.Error(err)

	_, err = suite.svc.Stake("missing-farm", userAddrA, decimal.NewFromInt(10))
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeFarmNotFound, stateErr.Code)
}

// TestStakePausedFarmRejected tests staking requires an active farm
func (suite *FarmServiceTestSuite) TestStakePausedFarmRejected() {
	farm := suite.createFarm(defaultConfig(), 0)
	_, err := suite.svc.PauseFarm(farm.FarmID, creatorAddr)
	suite.Require().NoError(err)

	_, err = suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(10))
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeFarmNotActive, stateErr.Code)
}

// TestStakeExpiredFarmRejected tests staking past the farm's expiry
func (suite *FarmServiceTestSuite) TestStakeExpiredFarmRejected() {
	cfg := defaultConfig()
	cfg.Duration = 3600
	farm := suite.createFarm(cfg, 0)

	suite.advance(3601 * time.Second)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(10))
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeFarmExpired, stateErr.Code)
}

// TestStakeBounds tests the per-farm stake window
func (suite *FarmServiceTestSuite) TestStakeBounds() {
	cfg := defaultConfig()
	cfg.MinStake = decimal.NewFromInt(10)
	cfg.MaxStake = decimal.NewFromInt(1000)
	farm := suite.createFarm(cfg, 0)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(5))
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeStakeBelowMinimum, stateErr.Code)

	_, err = suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(2000))
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeStakeAboveMaximum, stateErr.Code)

	// boundary values are accepted
	_, err = suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(10))
	suite.NoError(err)
	_, err = suite.svc.Stake(farm.FarmID, userAddrB, decimal.NewFromInt(1000))
	suite.NoError(err)
}

// TestStakeInsufficientBalance tests staking more than the wallet holds
func (suite *FarmServiceTestSuite) TestStakeInsufficientBalance() {
	farm := suite.createFarm(defaultConfig(), 0)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(200_000))
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeInsufficientBalance, stateErr.Code)

	suite.True(suite.balance(userAddrA, stakingTokenID).Equal(decimal.NewFromInt(100_000)))
	position, err := suite.svc.GetPosition(farm.FarmID, userAddrA)
	suite.NoError(err)
	suite.Nil(position)
}

// TestUnstakeFull tests a full exit pays principal plus rewards and
// removes the position
func (suite *FarmServiceTestSuite) TestUnstakeFull() {
	farm := suite.createFarm(defaultConfig(), 100_000)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)

	suite.advance(86_400 * time.Second)

	result, err := suite.svc.Unstake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)
	suite.True(result.Removed)
	suite.True(result.Principal.Equal(decimal.NewFromInt(1000)))
	// 1000 * 0.0001 * 86400s
	suite.True(result.Rewards.Equal(decimal.NewFromInt(8640)), "rewards %s", result.Rewards)

	suite.True(suite.balance(userAddrA, stakingTokenID).Equal(decimal.NewFromInt(100_000)))
	suite.True(suite.balance(userAddrA, rewardTokenID).Equal(decimal.NewFromInt(8640)))

	position, err := suite.svc.GetPosition(farm.FarmID, userAddrA)
	suite.NoError(err)
	suite.Nil(position)

	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.True(stored.TotalStaked.IsZero())
	suite.Equal(0, stored.UniqueStakers)
	suite.True(stored.AvailableRewards.Equal(decimal.NewFromInt(91_360)))
	suite.True(stored.TotalDistributed.Equal(decimal.NewFromInt(8640)))
}

// TestUnstakePartial tests a partial exit keeps the position with
// rewards flushed
func (suite *FarmServiceTestSuite) TestUnstakePartial() {
	farm := suite.createFarm(defaultConfig(), 100_000)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)

	suite.advance(86_400 * time.Second)

	result, err := suite.svc.Unstake(farm.FarmID, userAddrA, decimal.NewFromInt(400))
	suite.Require().NoError(err)
	suite.False(result.Removed)
	suite.True(result.Rewards.Equal(decimal.NewFromInt(8640)))

	position, err := suite.svc.GetPosition(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.Require().NotNil(position)
	suite.True(position.StakedAmount.Equal(decimal.NewFromInt(600)))
	suite.True(position.AccumulatedRewards.IsZero())
	suite.WithinDuration(suite.current, position.LastHarvestAt, time.Second)

	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.True(stored.TotalStaked.Equal(decimal.NewFromInt(600)))
	suite.Equal(1, stored.UniqueStakers)
}

// TestUnstakeLocked tests the lock window blocks any exit until it lapses
func (suite *FarmServiceTestSuite) TestUnstakeLocked() {
	cfg := defaultConfig()
	cfg.LockPeriod = 3600
	farm := suite.createFarm(cfg, 10_000)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(500))
	suite.Require().NoError(err)

	suite.advance(1800 * time.Second)

	_, err = suite.svc.Unstake(farm.FarmID, userAddrA, decimal.NewFromInt(1))
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodePositionLocked, stateErr.Code)
	suite.Contains(stateErr.Message, "locked for another")

	// the lock expires exactly at stake time + lock period
	suite.advance(1800 * time.Second)

	_, err = suite.svc.Unstake(farm.FarmID, userAddrA, decimal.NewFromInt(500))
	suite.NoError(err)
}

// TestUnstakeExceedsStake tests withdrawing more than is staked
func (suite *FarmServiceTestSuite) TestUnstakeExceedsStake() {
	farm := suite.createFarm(defaultConfig(), 10_000)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(500))
	suite.Require().NoError(err)

	_, err = suite.svc.Unstake(farm.FarmID, userAddrA, decimal.NewFromInt(600))
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeInsufficientBalance, stateErr.Code)

	position, err := suite.svc.GetPosition(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.Require().NotNil(position)
	suite.True(position.StakedAmount.Equal(decimal.NewFromInt(500)))
}

// TestUnstakePoolExhausted tests an exit whose rewards outgrow the pool
// fails without touching any state
func (suite *FarmServiceTestSuite) TestUnstakePoolExhausted() {
	farm := suite.createFarm(defaultConfig(), 10)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(10_000))
	suite.Require().NoError(err)

	// accrues 1/s, pool only holds 10
	suite.advance(20 * time.Second)

	_, err = suite.svc.Unstake(farm.FarmID, userAddrA, decimal.NewFromInt(10_000))
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeInsufficientPool, stateErr.Code)

	position, err := suite.svc.GetPosition(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.Require().NotNil(position)
	suite.True(position.StakedAmount.Equal(decimal.NewFromInt(10_000)))
	suite.True(position.AccumulatedRewards.IsZero())

	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.True(stored.AvailableRewards.Equal(decimal.NewFromInt(10)))
	suite.True(suite.balance(userAddrA, stakingTokenID).Equal(decimal.NewFromInt(90_000)))
	suite.True(suite.balance(userAddrA, rewardTokenID).IsZero())
}

// TestHarvestFlow tests the reward cycle: stake, accrue for a day,
// harvest, pool shrinks
func (suite *FarmServiceTestSuite) TestHarvestFlow() {
	farm := suite.createFarm(defaultConfig(), 100_000)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)

	suite.advance(86_400 * time.Second)

	rewards, err := suite.svc.Harvest(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.True(rewards.Equal(decimal.NewFromInt(8640)), "rewards %s", rewards)

	suite.True(suite.balance(userAddrA, rewardTokenID).Equal(decimal.NewFromInt(8640)))

	position, err := suite.svc.GetPosition(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.True(position.StakedAmount.Equal(decimal.NewFromInt(1000)))
	suite.True(position.AccumulatedRewards.IsZero())
	suite.WithinDuration(suite.current, position.LastHarvestAt, time.Second)

	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.True(stored.AvailableRewards.Equal(decimal.NewFromInt(91_360)))
	suite.True(stored.TotalDistributed.Equal(decimal.NewFromInt(8640)))

	// nothing accrued since the harvest
	_, err = suite.svc.Harvest(farm.FarmID, userAddrA)
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeNothingToHarvest, stateErr.Code)
}

// TestHarvestPoolExhausted tests harvesting against a drained pool
func (suite *FarmServiceTestSuite) TestHarvestPoolExhausted() {
	farm := suite.createFarm(defaultConfig(), 10)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(10_000))
	suite.Require().NoError(err)

	suite.advance(20 * time.Second)

	_, err = suite.svc.Harvest(farm.FarmID, userAddrA)
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeInsufficientPool, stateErr.Code)
	suite.True(suite.balance(userAddrA, rewardTokenID).IsZero())
}

// TestHarvestMissingPosition tests harvest without a stake
func (suite *FarmServiceTestSuite) TestHarvestMissingPosition() {
	farm := suite.createFarm(defaultConfig(), 1000)

	_, err := suite.svc.Harvest(farm.FarmID, userAddrA)
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodePositionNotFound, stateErr.Code)
	suite.True(stateErr.NotFound())

	_, err = suite.svc.Harvest("missing-farm", userAddrA)
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodeFarmNotFound, stateErr.Code)
}

// TestExitFromPausedFarm tests unstake and harvest stay open after a pause
func (suite *FarmServiceTestSuite) TestExitFromPausedFarm() {
	farm := suite.createFarm(defaultConfig(), 100_000)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)

	suite.advance(3600 * time.Second)
	_, err = suite.svc.PauseFarm(farm.FarmID, creatorAddr)
	suite.Require().NoError(err)

	rewards, err := suite.svc.Harvest(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.True(rewards.Equal(decimal.NewFromInt(360)))

	result, err := suite.svc.Unstake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)
	suite.True(result.Removed)
}

// TestPendingRewards tests the preview never mutates the position
func (suite *FarmServiceTestSuite) TestPendingRewards() {
	farm := suite.createFarm(defaultConfig(), 10_000)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)

	suite.advance(3600 * time.Second)

	pending, err := suite.svc.PendingRewards(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.True(pending.Equal(decimal.NewFromInt(360)), "pending %s", pending)

	// repeatable, nothing was committed
	again, err := suite.svc.PendingRewards(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.True(again.Equal(pending))

	position, err := suite.svc.GetPosition(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.True(position.AccumulatedRewards.IsZero())

	_, err = suite.svc.PendingRewards(farm.FarmID, userAddrB)
	var stateErr *StateError
	suite.Require().ErrorAs(err, &stateErr)
	suite.Equal(CodePositionNotFound, stateErr.Code)
}

// TestPositionListings tests the per-farm and per-user views
func (suite *FarmServiceTestSuite) TestPositionListings() {
	farmOne := suite.createFarm(defaultConfig(), 0)
	farmTwo := suite.createFarm(defaultConfig(), 0)

	_, err := suite.svc.Stake(farmOne.FarmID, userAddrA, decimal.NewFromInt(100))
	suite.Require().NoError(err)
	suite.advance(time.Second)
	_, err = suite.svc.Stake(farmOne.FarmID, userAddrB, decimal.NewFromInt(200))
	suite.Require().NoError(err)
	_, err = suite.svc.Stake(farmTwo.FarmID, userAddrA, decimal.NewFromInt(300))
	suite.Require().NoError(err)

	byFarm, err := suite.svc.FarmPositions(farmOne.FarmID)
	suite.Require().NoError(err)
	suite.Require().Len(byFarm, 2)
	suite.Equal(userAddrA, byFarm[0].UserAddress)
	suite.Equal(userAddrB, byFarm[1].UserAddress)

	byUser, err := suite.svc.UserPositions(userAddrA)
	suite.Require().NoError(err)
	suite.Len(byUser, 2)
}

// TestRewardConservation tests deposited = distributed + refund across a
// full farm lifecycle
func (suite *FarmServiceTestSuite) TestRewardConservation() {
	farm := suite.createFarm(defaultConfig(), 100_000)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)

	suite.advance(86_400 * time.Second)
	harvested, err := suite.svc.Harvest(farm.FarmID, userAddrA)
	suite.Require().NoError(err)

	suite.advance(3600 * time.Second)
	partial, err := suite.svc.Unstake(farm.FarmID, userAddrA, decimal.NewFromInt(400))
	suite.Require().NoError(err)

	suite.advance(3600 * time.Second)
	final, err := suite.svc.Unstake(farm.FarmID, userAddrA, decimal.NewFromInt(600))
	suite.Require().NoError(err)
	suite.True(final.Removed)

	refund, err := suite.svc.CloseFarm(farm.FarmID, creatorAddr)
	suite.Require().NoError(err)

	distributed := harvested.Add(partial.Rewards).Add(final.Rewards)
	// 8640 + 360 + 216
	suite.True(distributed.Equal(decimal.NewFromInt(9216)), "distributed %s", distributed)
	suite.True(refund.Equal(decimal.NewFromInt(90_784)))

	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.True(stored.TotalDeposited.Equal(stored.TotalDistributed.Add(refund)))
	suite.True(suite.balance(userAddrA, rewardTokenID).Equal(distributed))
	suite.True(suite.balance(creatorAddr, rewardTokenID).Equal(decimal.NewFromInt(990_784)))
}
