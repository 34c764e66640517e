package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/farm"
)

const (
	defaultRewardInterval = 10 * time.Second
	defaultStatsInterval  = 60 * time.Second

	shutdownTimeout = 10 * time.Second
)

// Service is the slice of the farm service the sweeper drives
type Service interface {
	SweepRewards() (farm.SweepReport, error)
	RecomputeStats() (int, error)
}

// Manager runs the two periodic farm maintenance passes: the reward
// sweep that rolls accrual into positions and the stats pass that
// rebuilds per-farm aggregates.
type Manager struct {
	service        Service
	rewardInterval time.Duration
	statsInterval  time.Duration
	log            *logrus.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	eg      *errgroup.Group
	mu      sync.Mutex
	stopped bool
}

// NewManager creates a sweep manager. Non-positive intervals fall back
// to the defaults.
func NewManager(service Service, rewardInterval, statsInterval time.Duration, log *logrus.Logger) *Manager {
	if rewardInterval <= 0 {
		rewardInterval = defaultRewardInterval
	}
	if statsInterval <= 0 {
		statsInterval = defaultStatsInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)

	return &Manager{
		service:        service,
		rewardInterval: rewardInterval,
		statsInterval:  statsInterval,
		log:            log,
		ctx:            egCtx,
		cancel:         cancel,
		eg:             eg,
	}
}

// Start launches both sweep loops
func (m *Manager) Start() {
	m.log.WithFields(logrus.Fields{
		"rewardInterval": m.rewardInterval.String(),
		"statsInterval":  m.statsInterval.String(),
	}).Info("Starting farm sweeper")

	m.eg.Go(func() error {
		return m.runRewardLoop()
	})
	m.eg.Go(func() error {
		return m.runStatsLoop()
	})
}

// Stop cancels both loops and waits for them to drain
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.log.Info("Stopping farm sweeper...")
	m.cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.eg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		m.log.Warn("Farm sweeper shutdown timed out")
	}

	m.log.Info("Farm sweeper stopped")
}

func (m *Manager) runRewardLoop() error {
	ticker := time.NewTicker(m.rewardInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-ticker.C:
			m.sweepRewards()
		}
	}
}

func (m *Manager) sweepRewards() {
	report, err := m.service.SweepRewards()
	if err != nil {
		m.log.WithError(err).Error("Reward sweep failed")
		return
	}

	entry := m.log.WithFields(logrus.Fields{
		"farmsSwept":       report.FarmsSwept,
		"positionsUpdated": report.PositionsUpdated,
		"autoPaused":       len(report.AutoPaused),
	})
	if report.FarmsSwept == 0 && len(report.AutoPaused) == 0 {
		entry.Debug("Reward sweep pass complete")
		return
	}
	entry.Info("Reward sweep pass complete")
}

func (m *Manager) runStatsLoop() error {
	// prime the gauges before the first tick
	m.recomputeStats()

	ticker := time.NewTicker(m.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case <-ticker.C:
			m.recomputeStats()
		}
	}
}

func (m *Manager) recomputeStats() {
	updated, err := m.service.RecomputeStats()
	if err != nil {
		m.log.WithError(err).Error("Stats recompute failed")
		return
	}
	if updated > 0 {
		m.log.WithField("farmsUpdated", updated).Debug("Farm stats recomputed")
	}
}
