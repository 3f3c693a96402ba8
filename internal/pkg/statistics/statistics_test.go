package statistics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/env"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/testdb"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPeriod struct{ month, year int }

func (p fixedPeriod) CurrentPeriod() (int, int) { return p.month, p.year }

func seed(t *testing.T) *repository.Repositories {
	t.Helper()
	repos := repository.NewRepositories(testdb.Open(t))
	month, err := repos.MaintenanceMonth.GetOrCreate(3, 2024)
	require.NoError(t, err)

	for i, status := range []models.PaymentStatus{models.PaymentStatusPaid, models.PaymentStatusPaid, models.PaymentStatusPending, models.PaymentStatusFailed} {
		flat := &models.Flat{FlatNumber: fmt.Sprintf("A-%d", i+1), MonthlyMaintenance: decimal.NewFromInt(1000)}
		require.NoError(t, repos.Flat.Create(flat))
		p := &models.Payment{FlatID: flat.ID, MaintenanceMonthID: month.ID, Amount: decimal.NewFromInt(int64(1000 + i)), Status: status, PaymentMode: "UPI"}
		require.NoError(t, repos.Payment.Create(p))
		if i < 3 {
			u := &models.User{Name: fmt.Sprintf("User %d", i), Email: fmt.Sprintf("u%d@example.com", i), Password: "x", Role: models.ROLE_USER, FlatID: &flat.ID}
			require.NoError(t, repos.User.Create(u))
		}
	}
	return repos
}

func TestDashboardWithoutCache(t *testing.T) {
	svc := NewService(seed(t), nil, fixedPeriod{3, 2024})

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-03", d.Period)
	assert.EqualValues(t, 4, d.TotalFlats)
	assert.EqualValues(t, 3, d.OccupiedFlats)
	assert.EqualValues(t, 3, d.TotalUsers)
	assert.EqualValues(t, 2, d.Paid)
	assert.EqualValues(t, 1, d.Pending)
	assert.EqualValues(t, 1, d.Failed)
	assert.True(t, decimal.NewFromInt(2001).Equal(d.Collected), d.Collected.String())
}

func TestDashboardUnprovisionedMonth(t *testing.T) {
	svc := NewService(seed(t), nil, fixedPeriod{4, 2024})

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, d.Paid)
	assert.True(t, d.Collected.IsZero())
}

func TestDashboardIsCached(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       13,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		_ = client.Close()
	})

	repos := seed(t)
	svc := NewService(repos, client, fixedPeriod{3, 2024})
	first, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	require.NoError(t, repos.Flat.Create(&models.Flat{FlatNumber: "Z-1", MonthlyMaintenance: decimal.NewFromInt(1)}))
	cached, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.TotalFlats, cached.TotalFlats)

	svc.Invalidate(context.Background())
	fresh, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.TotalFlats+1, fresh.TotalFlats)
}
