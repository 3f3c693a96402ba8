package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/payment"
	"github.com/gofiber/fiber/v2/log"
)

const DefaultInterval = 24 * time.Hour

// Sweeper runs the billing sweeps
type Sweeper interface {
	GenerateMonthlyPending(ctx context.Context) (*payment.GenerationResult, error)
	FailOverduePending(ctx context.Context) (*payment.OverdueResult, error)
	CurrentPeriod() (int, int)
}

// WatermarkStore persists the last fully generated period
type WatermarkStore interface {
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// MonthProvisioner creates the maintenance months of a year
type MonthProvisioner interface {
	ProvisionYear(year int) (int64, error)
}

type Config struct {
	Interval time.Duration
}

// TickResult reports one scheduler pass
type TickResult struct {
	Overdue       *payment.OverdueResult    `json:"overdue,omitempty"`
	Generation    *payment.GenerationResult `json:"generation,omitempty"`
	GenerationRan bool                      `json:"generationRan"`
	Errors        []string                  `json:"errors,omitempty"`
}

// Scheduler drives the billing cycle: overdue sweeps every tick and monthly
// generation whenever the watermark is behind the current period.
type Scheduler struct {
	sweeper  Sweeper
	settings WatermarkStore
	months   MonthProvisioner
	interval time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// serialises ticks and admin triggers
	runMu sync.Mutex
}

func New(sweeper Sweeper, settings WatermarkStore, months MonthProvisioner, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Scheduler{
		sweeper:  sweeper,
		settings: settings,
		months:   months,
		interval: cfg.Interval,
		stopCh:   make(chan struct{}),
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start provisions the current year, runs one tick right away and then one per interval.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.stopCh = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.loop(s.stopCh)
	log.Infof("[Scheduler] Started (interval: %s)", s.interval)
}

// Stop halts the ticker and waits for a running tick to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.wg.Wait()
	log.Info("[Scheduler] Stopped")
}

func (s *Scheduler) loop(stopCh <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	_, year := s.sweeper.CurrentPeriod()
	if _, err := s.ProvisionYear(year); err != nil {
		log.Errorf("[Scheduler] Provisioning %d failed: %v", year, err)
	}
	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// ProvisionYear creates the twelve months of year, skipping existing ones.
func (s *Scheduler) ProvisionYear(year int) (int64, error) {
	n, err := s.months.ProvisionYear(year)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Infof("[Scheduler] Provisioned %d maintenance months for %d", n, year)
	}
	return n, nil
}

// Tick runs the overdue sweep and, if the watermark lags, the generation sweep.
// Errors are logged and reported, never raised.
func (s *Scheduler) Tick(ctx context.Context) *TickResult {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	res := &TickResult{}

	overdue, err := s.sweeper.FailOverduePending(ctx)
	if err != nil {
		log.Errorf("[Scheduler] Overdue sweep failed: %v", err)
		res.Errors = append(res.Errors, err.Error())
	} else {
		res.Overdue = overdue
	}

	month, year := s.sweeper.CurrentPeriod()
	current := models.Period(month, year)
	behind, err := s.watermarkBehind(current)
	if err != nil {
		log.Warnf("[Scheduler] Reading watermark failed, generating anyway: %v", err)
		behind = true
	}
	if !behind {
		return res
	}

	gen, err := s.generate(ctx)
	res.GenerationRan = true
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	res.Generation = gen
	return res
}

// TriggerMonthlyGeneration runs generation now, regardless of the watermark.
func (s *Scheduler) TriggerMonthlyGeneration(ctx context.Context) (*payment.GenerationResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.generate(ctx)
}

// TriggerOverdueCheck runs the overdue sweep now.
func (s *Scheduler) TriggerOverdueCheck(ctx context.Context) (*payment.OverdueResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	res, err := s.sweeper.FailOverduePending(ctx)
	if err != nil {
		log.Errorf("[Scheduler] Overdue sweep failed: %v", err)
		return nil, err
	}
	return res, nil
}

func (s *Scheduler) generate(ctx context.Context) (*payment.GenerationResult, error) {
	gen, err := s.sweeper.GenerateMonthlyPending(ctx)
	if err != nil {
		log.Errorf("[Scheduler] Monthly generation failed: %v", err)
		return nil, err
	}
	log.Infof("[Scheduler] Generation for %s: %d total, %d created, %d existing, %d failed",
		gen.Period, gen.Total, gen.Created, gen.Existing, gen.Failed)

	// A run with failed items leaves the watermark so the next tick fills the gaps.
	if gen.Failed > 0 {
		return gen, nil
	}
	if err := s.settings.SetValue(models.SettingBillingWatermark, gen.Period); err != nil {
		log.Errorf("[Scheduler] Advancing watermark to %s failed: %v", gen.Period, err)
	}
	return gen, nil
}

func (s *Scheduler) watermarkBehind(current string) (bool, error) {
	last, err := s.settings.GetValue(models.SettingBillingWatermark)
	if err != nil {
		return false, err
	}
	return last < current, nil
}

// Watermark returns the last fully generated period, empty when none.
func (s *Scheduler) Watermark() string {
	last, err := s.settings.GetValue(models.SettingBillingWatermark)
	if err != nil {
		return ""
	}
	return last
}
