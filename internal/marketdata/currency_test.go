package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

type fakeRateStore struct {
	latest   map[string]float64
	nearest  map[string]float64
	saved    map[string]float64
	storeErr error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{
		latest:  make(map[string]float64),
		nearest: make(map[string]float64),
		saved:   make(map[string]float64),
	}
}

func (f *fakeRateStore) GetLatest(ctx context.Context, from, to string) (float64, error) {
	if f.storeErr != nil {
		return 0, f.storeErr
	}
	if rate, ok := f.latest[from+"/"+to]; ok {
		return rate, nil
	}
	return 0, contracts.ErrRateUnavailable
}

func (f *fakeRateStore) GetNearest(ctx context.Context, from, to string, date time.Time) (float64, error) {
	if rate, ok := f.nearest[from+"/"+to]; ok {
		return rate, nil
	}
	return 0, contracts.ErrRateUnavailable
}

func (f *fakeRateStore) Save(ctx context.Context, from, to string, date time.Time, rate float64) error {
	f.saved[from+"/"+to] = rate
	return nil
}

type fakeRateProvider struct {
	rate  float64
	err   error
	calls int
}

func (f *fakeRateProvider) FetchRate(ctx context.Context, from, to string) (float64, time.Time, error) {
	f.calls++
	if f.err != nil {
		return 0, time.Time{}, f.err
	}
	return f.rate, time.Date(2025, 8, 29, 0, 0, 0, 0, time.UTC), nil
}

func TestGetRateFromStore(t *testing.T) {
	store := newFakeRateStore()
	store.latest["EUR/USD"] = 1.17
	provider := &fakeRateProvider{rate: 9.99}

	svc := NewCurrencyService(store, provider, logger.NewNop())
	rate, err := svc.GetRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)

	assert.Equal(t, 1.17, rate)
	assert.Zero(t, provider.calls, "stored rate must not hit the provider")
}

func TestGetRateFallsThroughToProvider(t *testing.T) {
	store := newFakeRateStore()
	provider := &fakeRateProvider{rate: 1.18}

	svc := NewCurrencyService(store, provider, logger.NewNop())
	rate, err := svc.GetRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)

	assert.Equal(t, 1.18, rate)
	assert.Equal(t, 1.18, store.saved["EUR/USD"], "fetched rate must persist")
}

func TestGetRateUnavailableEverywhere(t *testing.T) {
	svc := NewCurrencyService(newFakeRateStore(), nil, logger.NewNop())

	_, err := svc.GetRate(context.Background(), "USD", "KRW")
	assert.ErrorIs(t, err, contracts.ErrRateUnavailable)
}

func TestGetRateStoreErrorPropagates(t *testing.T) {
	store := newFakeRateStore()
	store.storeErr = errors.New("connection refused")
	provider := &fakeRateProvider{rate: 1.18}

	svc := NewCurrencyService(store, provider, logger.NewNop())
	_, err := svc.GetRate(context.Background(), "EUR", "USD")

	assert.Error(t, err)
	assert.Zero(t, provider.calls, "infra errors must not mask as missing rates")
}

func TestGetHistoricalRate(t *testing.T) {
	store := newFakeRateStore()
	store.nearest["EUR/USD"] = 1.12

	svc := NewCurrencyService(store, &fakeRateProvider{}, logger.NewNop())
	rate, err := svc.GetHistoricalRate(context.Background(), "EUR", "USD", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1.12, rate)
}

func TestRefreshRates(t *testing.T) {
	store := newFakeRateStore()
	provider := &fakeRateProvider{rate: 1.2}

	svc := NewCurrencyService(store, provider, logger.NewNop())
	refreshed := svc.RefreshRates(context.Background(), [][2]string{{"EUR", "USD"}, {"GBP", "USD"}})

	assert.Equal(t, 2, refreshed)
	assert.Len(t, store.saved, 2)
}
