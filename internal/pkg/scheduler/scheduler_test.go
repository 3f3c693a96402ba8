package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/payment"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/testdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu          sync.Mutex
	month, year int
	failed      int
	genErr      error
	overdueErr  error
	generations int
	overdues    int
}

func (f *fakeSweeper) CurrentPeriod() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.month, f.year
}

func (f *fakeSweeper) GenerateMonthlyPending(ctx context.Context) (*payment.GenerationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generations++
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &payment.GenerationResult{Period: models.Period(f.month, f.year), Total: 3, Created: 3 - f.failed, Failed: f.failed}, nil
}

func (f *fakeSweeper) FailOverduePending(ctx context.Context) (*payment.OverdueResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overdues++
	if f.overdueErr != nil {
		return nil, f.overdueErr
	}
	return &payment.OverdueResult{Period: models.Period(f.month, f.year), Skipped: true}, nil
}

func (f *fakeSweeper) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generations, f.overdues
}

type memorySettings struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memorySettings) GetValue(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memorySettings) SetValue(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

type countingProvisioner struct {
	years []int
}

func (c *countingProvisioner) ProvisionYear(year int) (int64, error) {
	c.years = append(c.years, year)
	return 12, nil
}

func newScheduler(sw *fakeSweeper) (*Scheduler, *memorySettings) {
	settings := &memorySettings{values: map[string]string{}}
	return New(sw, settings, &countingProvisioner{}, Config{Interval: time.Hour}), settings
}

func TestTickGeneratesWhenWatermarkBehind(t *testing.T) {
	sw := &fakeSweeper{month: 4, year: 2024}
	s, settings := newScheduler(sw)
	settings.values[models.SettingBillingWatermark] = "2024-02"

	res := s.Tick(context.Background())
	assert.True(t, res.GenerationRan)
	require.NotNil(t, res.Generation)
	assert.Equal(t, "2024-04", s.Watermark())

	res = s.Tick(context.Background())
	assert.False(t, res.GenerationRan)
	gens, overdues := sw.counts()
	assert.Equal(t, 1, gens)
	assert.Equal(t, 2, overdues)
}

func TestTickMissedMonthSelfHeals(t *testing.T) {
	sw := &fakeSweeper{month: 5, year: 2024}
	s, settings := newScheduler(sw)
	settings.values[models.SettingBillingWatermark] = "2024-04"

	// The scheduler was down over the month boundary; the first tick on the 3rd still generates.
	res := s.Tick(context.Background())
	assert.True(t, res.GenerationRan)
	assert.Equal(t, "2024-05", s.Watermark())
}

func TestWatermarkNotAdvancedOnFailures(t *testing.T) {
	sw := &fakeSweeper{month: 4, year: 2024, failed: 1}
	s, _ := newScheduler(sw)

	res := s.Tick(context.Background())
	assert.True(t, res.GenerationRan)
	assert.Equal(t, 1, res.Generation.Failed)
	assert.Equal(t, "", s.Watermark())

	sw.mu.Lock()
	sw.failed = 0
	sw.mu.Unlock()

	res = s.Tick(context.Background())
	assert.True(t, res.GenerationRan)
	assert.Equal(t, "2024-04", s.Watermark())
}

func TestTickCollectsErrors(t *testing.T) {
	sw := &fakeSweeper{month: 4, year: 2024, genErr: errors.New("db down"), overdueErr: errors.New("db down")}
	s, _ := newScheduler(sw)

	res := s.Tick(context.Background())
	assert.Len(t, res.Errors, 2)
	assert.Nil(t, res.Overdue)
	assert.Equal(t, "", s.Watermark())
}

func TestTriggers(t *testing.T) {
	sw := &fakeSweeper{month: 4, year: 2024}
	s, settings := newScheduler(sw)
	settings.values[models.SettingBillingWatermark] = "2024-04"

	gen, err := s.TriggerMonthlyGeneration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-04", gen.Period)

	overdue, err := s.TriggerOverdueCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, overdue.Skipped)

	sw.overdueErr = errors.New("boom")
	_, err = s.TriggerOverdueCheck(context.Background())
	assert.Error(t, err)
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	sw := &fakeSweeper{month: 4, year: 2024}
	settings := &memorySettings{values: map[string]string{}}
	prov := &countingProvisioner{}
	s := New(sw, settings, prov, Config{Interval: time.Hour})

	s.Start()
	assert.True(t, s.IsRunning())
	assert.Eventually(t, func() bool {
		gens, _ := sw.counts()
		return gens == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Equal(t, []int{2024}, prov.years)

	// restartable
	s.Start()
	s.Stop()
}

func TestTickAgainstLedger(t *testing.T) {
	repos := repository.NewRepositories(testdb.Open(t))
	flat := &models.Flat{FlatNumber: "A-101", MonthlyMaintenance: decimal.NewFromInt(1500)}
	require.NoError(t, repos.Flat.Create(flat))
	require.NoError(t, repos.User.Create(&models.User{Name: "Jane Doe", Email: "jane@example.com", Password: "x", Role: models.ROLE_USER, FlatID: &flat.ID}))

	now := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
	svc := payment.NewService(repos, payment.UPIConfig{}, payment.WithClock(func() time.Time { return now }), payment.WithLocation(time.UTC))
	s := New(svc, repos.Setting, repos.MaintenanceMonth, Config{})

	n, err := s.ProvisionYear(2024)
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)

	res := s.Tick(context.Background())
	require.Empty(t, res.Errors)
	assert.True(t, res.GenerationRan)
	assert.Equal(t, 1, res.Generation.Created)
	assert.Equal(t, "2024-06", s.Watermark())

	month, err := repos.MaintenanceMonth.Get(6, 2024)
	require.NoError(t, err)
	p, err := repos.Payment.GetByFlatAndMonth(flat.ID, month.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	assert.True(t, decimal.NewFromInt(1500).Equal(p.Amount))
}
