package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/smartdash/energy-backend-go/internal/config"
	"github.com/smartdash/energy-backend-go/internal/core/energy"
	"github.com/smartdash/energy-backend-go/internal/core/tts"
	"github.com/smartdash/energy-backend-go/internal/database/models"
	"github.com/smartdash/energy-backend-go/internal/database/repositories"
	"github.com/smartdash/energy-backend-go/internal/database/sqlite"
)

// Service owns the tick loop. It pulls one state snapshot per interval,
// runs the engine under a mutex shared with configuration swaps, and
// publishes the resulting snapshot atomically for readers.
type Service struct {
	logger     *logrus.Logger
	cfg        config.MonitorConfig
	source     Source
	dispatcher *tts.Dispatcher
	agg        *Aggregator
	engine     *Engine
	configRepo repositories.ConfigRepository
	energyRepo repositories.EnergyRepository

	mu         sync.Mutex
	snapshot   atomic.Pointer[Snapshot]
	alertFn    func(tts.Alert)
	snapshotFn func(*Snapshot)

	scheduler *cron.Cron
	cancel    context.CancelFunc
	done      chan struct{}
	tickCount int
}

// NewService wires the monitor service.
func NewService(cfg config.MonitorConfig, source Source, dispatcher *tts.Dispatcher, configRepo repositories.ConfigRepository, energyRepo repositories.EnergyRepository, logger *logrus.Logger) *Service {
	agg := NewAggregator(2 * cfg.PollIntervalDuration())
	s := &Service{
		logger:     logger,
		cfg:        cfg,
		source:     source,
		dispatcher: dispatcher,
		agg:        agg,
		engine:     NewEngine(source, dispatcher, agg, cfg.RelayRetryLimit, logger),
		configRepo: configRepo,
		energyRepo: energyRepo,
		done:       make(chan struct{}),
	}
	dispatcher.OnAlert(s.handleAlert)
	return s
}

// OnAlert registers the realtime alert subscriber. Must be set before Start.
func (s *Service) OnAlert(fn func(tts.Alert)) {
	s.alertFn = fn
}

// OnSnapshot registers a subscriber invoked with every published tick view.
// Must be set before Start.
func (s *Service) OnSnapshot(fn func(*Snapshot)) {
	s.snapshotFn = fn
}

func (s *Service) handleAlert(alert tts.Alert) {
	alertsDispatched.WithLabelValues(string(alert.Kind)).Inc()
	if s.alertFn != nil {
		s.alertFn(alert)
	}
}

// Start restores persisted state and launches the tick loop and the midnight
// counter reset.
func (s *Service) Start(ctx context.Context) error {
	if err := s.restore(ctx); err != nil {
		return err
	}

	s.scheduler = cron.New()
	if _, err := s.scheduler.AddFunc("0 0 * * *", s.midnightReset); err != nil {
		return fmt.Errorf("failed to schedule midnight reset: %w", err)
	}
	s.scheduler.Start()

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(runCtx)

	s.logger.WithField("poll_interval", s.cfg.PollIntervalDuration().String()).Info("Energy monitor started")
	return nil
}

// Stop halts the loop and flushes energy counters.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(ctx)

	s.logger.Info("Energy monitor stopped")
}

func (s *Service) restore(ctx context.Context) error {
	doc, err := s.loadDocument(ctx)
	if err != nil {
		return err
	}
	s.engine.ApplyConfig(doc)

	readings, err := s.energyRepo.GetReadings(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore energy counters: %w", err)
	}
	s.agg.Restore(readings, time.Now())
	s.logger.WithField("counters", len(readings)).Info("Energy counters restored")
	return nil
}

func (s *Service) loadDocument(ctx context.Context) (*energy.Document, error) {
	stored, err := s.configRepo.Get(ctx, models.DocumentKeyEnergy)
	if err != nil {
		if errors.Is(err, sqlite.ErrDocumentNotFound) {
			s.logger.Info("No stored energy configuration, starting with defaults")
			return energy.DefaultDocument(), nil
		}
		return nil, fmt.Errorf("failed to load energy configuration: %w", err)
	}

	var doc energy.Document
	if err := json.Unmarshal([]byte(stored.Value), &doc); err != nil {
		return nil, fmt.Errorf("stored energy configuration is corrupt: %w", err)
	}
	energy.Normalize(&doc)
	return &doc, nil
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.PollIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	start := time.Now()

	states, err := s.source.States(ctx)
	if err != nil {
		tickErrors.Inc()
		s.logger.WithError(err).Warn("State pull failed, skipping tick")
		return
	}

	s.mu.Lock()
	snap := s.engine.Tick(ctx, start, states)
	s.tickCount++
	var readings []*models.EnergyReading
	if s.tickCount%s.persistEvery() == 0 {
		readings = s.agg.Readings()
	}
	s.mu.Unlock()

	s.snapshot.Store(snap)
	tickTotal.Inc()
	tickDuration.Observe(time.Since(start).Seconds())

	if s.snapshotFn != nil {
		s.snapshotFn(snap)
	}

	if readings != nil {
		if err := s.energyRepo.UpsertReadings(ctx, readings); err != nil {
			s.logger.WithError(err).Error("Failed to persist energy counters")
		}
	}
}

func (s *Service) persistEvery() int {
	if s.cfg.PersistEveryTicks <= 0 {
		return 60
	}
	return s.cfg.PersistEveryTicks
}

func (s *Service) flush(ctx context.Context) {
	s.mu.Lock()
	readings := s.agg.Readings()
	s.mu.Unlock()

	if len(readings) == 0 {
		return
	}
	if err := s.energyRepo.UpsertReadings(ctx, readings); err != nil {
		s.logger.WithError(err).Error("Failed to flush energy counters")
	}
}

func (s *Service) midnightReset() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	s.mu.Lock()
	s.agg.ResetAll(now)
	s.mu.Unlock()

	if err := s.energyRepo.ResetDay(ctx, now.Format(dayFormat)); err != nil {
		s.logger.WithError(err).Error("Failed to reset persisted energy counters")
	}
	s.logger.Info("Daily energy counters reset")
}

// Snapshot returns the last published tick view, or nil before the first tick.
func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Document returns the active configuration document.
func (s *Service) Document() *energy.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Config()
}

// ApplyDocument swaps the active configuration and persists it. The swap is
// serialized with the tick loop so a tick never observes a half-applied
// document.
func (s *Service) ApplyDocument(ctx context.Context, doc *energy.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode energy configuration: %w", err)
	}

	s.mu.Lock()
	s.engine.ApplyConfig(doc)
	s.mu.Unlock()

	if err := s.configRepo.Set(ctx, &models.ConfigDocument{
		Key:   models.DocumentKeyEnergy,
		Value: string(raw),
	}); err != nil {
		return fmt.Errorf("failed to persist energy configuration: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"rooms":    len(doc.Rooms),
		"breakers": len(doc.BreakerLines),
	}).Info("Energy configuration applied")
	return nil
}

// ToggleSwitch drives one relay. With an explicit target state it is set
// directly; without one the relay is flipped from its live state. Returns
// the state the relay was driven to.
func (s *Service) ToggleSwitch(ctx context.Context, entityID string, on *bool) (bool, error) {
	target := false
	if on != nil {
		target = *on
	} else {
		states, err := s.source.States(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to read switch state: %w", err)
		}
		target = !states.IsOn(entityID)
	}

	if target {
		return true, s.source.TurnOnSwitches(ctx, []string{entityID})
	}
	return false, s.source.TurnOffSwitches(ctx, []string{entityID})
}

// TestTripBreaker exercises every relay on a breaker line: if any relay is
// currently on, all are switched off, otherwise all are switched on. Returns
// the action taken.
func (s *Service) TestTripBreaker(ctx context.Context, breakerID string) (string, error) {
	s.mu.Lock()
	line := s.engine.Config().BreakerByID(breakerID)
	var switches []string
	if line != nil {
		switches = s.engine.breakerSwitches(line)
	}
	s.mu.Unlock()

	if line == nil {
		return "", fmt.Errorf("breaker %q not found", breakerID)
	}
	if len(switches) == 0 {
		return "", fmt.Errorf("breaker %q has no switchable outlets", breakerID)
	}

	states, err := s.source.States(ctx)
	if err != nil {
		return "", err
	}

	anyOn := false
	for _, sw := range switches {
		if states.IsOn(sw) {
			anyOn = true
			break
		}
	}

	if anyOn {
		if err := s.source.TurnOffSwitches(ctx, switches); err != nil {
			return "", err
		}
		s.logger.WithField("breaker", breakerID).Info("Test trip: all breaker relays switched off")
		return "all_off", nil
	}

	if err := s.source.TurnOnSwitches(ctx, switches); err != nil {
		return "", err
	}
	s.logger.WithField("breaker", breakerID).Info("Test trip: all breaker relays switched on")
	return "all_on", nil
}
