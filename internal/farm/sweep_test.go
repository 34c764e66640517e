package farm

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// auditActions collects the action names recorded for a farm, newest first
func (suite *FarmServiceTestSuite) auditActions(farmID string) []string {
	entries, err := suite.auditor.EntriesForFarm(farmID, 100, 0)
	suite.Require().NoError(err)
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

// TestSweepRewardsAccrues tests a sweep rolls pending accrual into every
// position and stamps the farm
func (suite *FarmServiceTestSuite) TestSweepRewardsAccrues() {
	farm := suite.createFarm(defaultConfig(), 10_000)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)
	suite.advance(time.Second)
	_, err = suite.svc.Stake(farm.FarmID, userAddrB, decimal.NewFromInt(2000))
	suite.Require().NoError(err)

	suite.advance(100 * time.Second)

	report, err := suite.svc.SweepRewards()
	suite.Require().NoError(err)
	suite.Equal(1, report.FarmsSwept)
	suite.Equal(2, report.PositionsUpdated)
	suite.Empty(report.AutoPaused)

	// 1000 * 0.0001 * 101s and 2000 * 0.0001 * 100s
	posA, err := suite.svc.GetPosition(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.True(posA.AccumulatedRewards.Equal(decimal.RequireFromString("10.1")),
		"accumulated %s", posA.AccumulatedRewards)
	suite.WithinDuration(suite.current, posA.LastHarvestAt, time.Second)

	posB, err := suite.svc.GetPosition(farm.FarmID, userAddrB)
	suite.Require().NoError(err)
	suite.True(posB.AccumulatedRewards.Equal(decimal.NewFromInt(20)),
		"accumulated %s", posB.AccumulatedRewards)

	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.WithinDuration(suite.current, stored.LastCalculatedAt, time.Second)
	// the pool is untouched until someone harvests or exits
	suite.True(stored.AvailableRewards.Equal(decimal.NewFromInt(10_000)))

	// harvesting right after a sweep pays exactly the swept amount
	rewards, err := suite.svc.Harvest(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.True(rewards.Equal(decimal.RequireFromString("10.1")))
}

// TestSweepSkipsIdleFarms tests farms without pool, without positions or
// not active are left alone
func (suite *FarmServiceTestSuite) TestSweepSkipsIdleFarms() {
	drained := suite.createFarm(defaultConfig(), 0)
	_, err := suite.svc.Stake(drained.FarmID, userAddrA, decimal.NewFromInt(100))
	suite.Require().NoError(err)

	empty := suite.createFarm(defaultConfig(), 1000)

	paused := suite.createFarm(defaultConfig(), 1000)
	_, err = suite.svc.Stake(paused.FarmID, userAddrB, decimal.NewFromInt(100))
	suite.Require().NoError(err)
	_, err = suite.svc.PauseFarm(paused.FarmID, creatorAddr)
	suite.Require().NoError(err)

	suite.advance(100 * time.Second)

	report, err := suite.svc.SweepRewards()
	suite.Require().NoError(err)
	suite.Equal(0, report.FarmsSwept)
	suite.Equal(0, report.PositionsUpdated)
	suite.Empty(report.AutoPaused)

	for _, farmID := range []string{drained.FarmID, paused.FarmID} {
		for _, user := range []string{userAddrA, userAddrB} {
			position, err := suite.svc.GetPosition(farmID, user)
			suite.Require().NoError(err)
			if position != nil {
				suite.True(position.AccumulatedRewards.IsZero())
			}
		}
	}

	stored, err := suite.svc.GetFarm(empty.FarmID)
	suite.Require().NoError(err)
	suite.True(stored.AvailableRewards.Equal(decimal.NewFromInt(1000)))
}

// TestSweepAutoPausesExhaustedFarm tests the sweep pauses a farm whose
// pool cannot cover the next increment, discarding that increment
func (suite *FarmServiceTestSuite) TestSweepAutoPausesExhaustedFarm() {
	cfg := defaultConfig()
	cfg.RewardRate = decimal.RequireFromString("0.001")
	farm := suite.createFarm(cfg, 50)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)
	suite.advance(time.Second)
	_, err = suite.svc.Stake(farm.FarmID, userAddrB, decimal.NewFromInt(5000))
	suite.Require().NoError(err)
	stakedAtB := suite.current

	suite.advance(10 * time.Second)

	report, err := suite.svc.SweepRewards()
	suite.Require().NoError(err)
	suite.Equal([]string{farm.FarmID}, report.AutoPaused)
	suite.Equal(1, report.PositionsUpdated)
	suite.Equal(0, report.FarmsSwept)

	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.Equal(models.FarmStatusPaused, stored.Status)

	// first position fit in the pool: 1000 * 0.001 * 11s
	posA, err := suite.svc.GetPosition(farm.FarmID, userAddrA)
	suite.Require().NoError(err)
	suite.True(posA.AccumulatedRewards.Equal(decimal.NewFromInt(11)),
		"accumulated %s", posA.AccumulatedRewards)

	// the triggering position keeps nothing from this pass
	posB, err := suite.svc.GetPosition(farm.FarmID, userAddrB)
	suite.Require().NoError(err)
	suite.True(posB.AccumulatedRewards.IsZero())
	suite.WithinDuration(stakedAtB, posB.LastHarvestAt, time.Second)

	suite.Contains(suite.auditActions(farm.FarmID), "farm_auto_paused")

	// resuming puts the farm back in rotation for the next sweep
	_, err = suite.svc.ResumeFarm(farm.FarmID, creatorAddr)
	suite.NoError(err)
}

// TestSweepPreservesEarmarkedPool tests accumulated rewards never exceed
// the pool across repeated sweeps
func (suite *FarmServiceTestSuite) TestSweepPreservesEarmarkedPool() {
	cfg := defaultConfig()
	cfg.RewardRate = decimal.RequireFromString("0.001")
	farm := suite.createFarm(cfg, 25)

	// accrues 1 per second
	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)

	accumulated := func() decimal.Decimal {
		position, err := suite.svc.GetPosition(farm.FarmID, userAddrA)
		suite.Require().NoError(err)
		suite.Require().NotNil(position)
		return position.AccumulatedRewards
	}

	suite.advance(10 * time.Second)
	_, err = suite.svc.SweepRewards()
	suite.Require().NoError(err)
	suite.True(accumulated().Equal(decimal.NewFromInt(10)))

	suite.advance(10 * time.Second)
	_, err = suite.svc.SweepRewards()
	suite.Require().NoError(err)
	suite.True(accumulated().Equal(decimal.NewFromInt(20)))

	// a third pass would need 10 more with only 5 uncommitted, so the
	// farm pauses instead of over-promising
	suite.advance(10 * time.Second)
	report, err := suite.svc.SweepRewards()
	suite.Require().NoError(err)
	suite.Equal([]string{farm.FarmID}, report.AutoPaused)
	suite.True(accumulated().Equal(decimal.NewFromInt(20)))

	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.True(accumulated().LessThanOrEqual(stored.AvailableRewards))
}

// TestRecomputeStats tests drifted farm stats are rebuilt from positions
func (suite *FarmServiceTestSuite) TestRecomputeStats() {
	farm := suite.createFarm(defaultConfig(), 10_000)
	idle := suite.createFarm(defaultConfig(), 0)

	_, err := suite.svc.Stake(farm.FarmID, userAddrA, decimal.NewFromInt(1000))
	suite.Require().NoError(err)
	suite.advance(time.Second)
	_, err = suite.svc.Stake(farm.FarmID, userAddrB, decimal.NewFromInt(2000))
	suite.Require().NoError(err)

	// simulate drift
	err = suite.db.Model(&models.Farm{}).Where("farm_id = ?", farm.FarmID).
		Updates(map[string]interface{}{"total_staked": "999999", "unique_stakers": 9}).Error
	suite.Require().NoError(err)

	updated, err := suite.svc.RecomputeStats()
	suite.Require().NoError(err)
	suite.Equal(1, updated)

	stored, err := suite.svc.GetFarm(farm.FarmID)
	suite.Require().NoError(err)
	suite.True(stored.TotalStaked.Equal(decimal.NewFromInt(3000)), "staked %s", stored.TotalStaked)
	suite.Equal(2, stored.UniqueStakers)
	suite.True(stored.CurrentAPY.Equal(PoolAPY(stored.RewardRate, decimal.NewFromInt(3000))))
	suite.WithinDuration(suite.current, stored.StatsUpdatedAt, time.Second)

	// the idle farm was skipped
	storedIdle, err := suite.svc.GetFarm(idle.FarmID)
	suite.Require().NoError(err)
	suite.True(storedIdle.TotalStaked.IsZero())
	suite.Equal(0, storedIdle.UniqueStakers)
}
