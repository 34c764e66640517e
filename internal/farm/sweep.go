package farm

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/metrics"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// SweepRewards rolls accrued rewards into every position of every active
// farm that still has pool left. When a position's increment would exceed
// the remaining pool the farm is auto-paused: the triggering increment is
// discarded and the farm's remaining positions are skipped for this pass.
func (s *service) SweepRewards() (SweepReport, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDurationSeconds.WithLabelValues("rewards").Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	report := SweepReport{}
	farms, err := s.farms.ListByStatus(models.FarmStatusActive)
	if err != nil {
		return report, fmt.Errorf("failed to list active farms: %w", err)
	}

	for _, farm := range farms {
		if !farm.AvailableRewards.IsPositive() {
			continue
		}
		positions, err := s.positions.ListByFarm(farm.FarmID)
		if err != nil {
			return report, fmt.Errorf("failed to list positions for farm %s: %w", farm.FarmID, err)
		}
		if len(positions) == 0 {
			continue
		}

		now := s.now()

		// Pool already earmarked by earlier sweeps must stay coverable,
		// so this pass may only hand out what is left beyond it.
		earmarked := decimal.Zero
		for _, position := range positions {
			earmarked = earmarked.Add(position.AccumulatedRewards)
		}
		remaining := farm.AvailableRewards.Sub(earmarked)

		paused := false
		for _, position := range positions {
			increment := PositionAccrued(farm, position, now)
			if !increment.IsPositive() {
				continue
			}
			if increment.GreaterThan(remaining) {
				if err := s.autoPause(farm, position, increment, remaining); err != nil {
					return report, err
				}
				report.AutoPaused = append(report.AutoPaused, farm.FarmID)
				paused = true
				break
			}

			position.AccumulatedRewards = position.AccumulatedRewards.Add(increment)
			position.LastHarvestAt = now
			if err := s.persist(func() error { return s.positions.Update(position) }); err != nil {
				return report, err
			}
			remaining = remaining.Sub(increment)
			report.PositionsUpdated++
		}

		if !paused {
			farm.LastCalculatedAt = now
			if err := s.persist(func() error { return s.farms.Update(farm) }); err != nil {
				return report, err
			}
			report.FarmsSwept++
		}
	}

	return report, nil
}

// autoPause suspends a farm whose pool can no longer cover accrual.
// Callers hold the service mutex.
func (s *service) autoPause(farm *models.Farm, position *models.Position, increment, remaining decimal.Decimal) error {
	farm.Status = models.FarmStatusPaused
	if err := s.persist(func() error { return s.farms.Update(farm) }); err != nil {
		return err
	}
	s.audit(farm.FarmID, "farm_auto_paused", "system", map[string]interface{}{
		"position":       position.PositionID,
		"user":           position.UserAddress,
		"increment":      increment.String(),
		"remaining_pool": remaining.String(),
	})

	s.log.WithFields(logrus.Fields{
		"farmID":    farm.FarmID,
		"user":      position.UserAddress,
		"increment": increment.String(),
		"remaining": remaining.String(),
	}).Warn("Farm auto-paused, reward pool exhausted")

	metrics.FarmAutoPausesTotal.Inc()
	s.invalidateLeaderboard()
	s.notifier.FarmUpdated(farm)
	return nil
}

// RecomputeStats rebuilds TotalStaked, UniqueStakers and APY for every
// active farm that has at least one position, from the live position list.
func (s *service) RecomputeStats() (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDurationSeconds.WithLabelValues("stats").Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	farms, err := s.farms.ListByStatus(models.FarmStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to list active farms: %w", err)
	}
	metrics.ActiveFarms.Set(float64(len(farms)))

	updated := 0
	stakedAcrossFarms := decimal.Zero
	for _, farm := range farms {
		positions, err := s.positions.ListByFarm(farm.FarmID)
		if err != nil {
			return updated, fmt.Errorf("failed to list positions for farm %s: %w", farm.FarmID, err)
		}
		if len(positions) == 0 {
			stakedAcrossFarms = stakedAcrossFarms.Add(farm.TotalStaked)
			continue
		}

		totalStaked := decimal.Zero
		uniqueStakers := 0
		for _, position := range positions {
			if position.StakedAmount.IsPositive() {
				totalStaked = totalStaked.Add(position.StakedAmount)
				uniqueStakers++
			}
		}

		farm.TotalStaked = totalStaked
		farm.UniqueStakers = uniqueStakers
		farm.CurrentAPY = PoolAPY(farm.RewardRate, totalStaked)
		farm.StatsUpdatedAt = s.now()

		if err := s.persist(func() error { return s.farms.Update(farm) }); err != nil {
			return updated, err
		}
		stakedAcrossFarms = stakedAcrossFarms.Add(totalStaked)
		updated++
	}

	staked, _ := stakedAcrossFarms.Float64()
	metrics.TotalStakedAcrossFarms.Set(staked)

	if updated > 0 {
		s.invalidateLeaderboard()
	}
	return updated, nil
}
