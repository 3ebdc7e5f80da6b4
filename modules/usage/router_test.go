package usage_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/entitlement/modules/usage"
	"github.com/chatforge/entitlement/pkg/billing"
	"github.com/chatforge/entitlement/pkg/entitlement"
	"github.com/chatforge/entitlement/pkg/plan"
)

var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

type providerStub struct {
	getFn func(ctx context.Context, ref string) (*billing.Sub, error)
}

func (p *providerStub) GetSubscription(ctx context.Context, ref string) (*billing.Sub, error) {
	if p.getFn == nil {
		return nil, billing.ErrProviderUnavailable
	}
	return p.getFn(ctx, ref)
}

func (p *providerStub) CancelSubscription(ctx context.Context, ref string) error {
	return nil
}

type blockedCooldown struct{}

func (blockedCooldown) Acquire(ctx context.Context, userID uuid.UUID) (bool, error) {
	return false, nil
}

// failingStore simulates a database outage on every read.
type failingStore struct {
	*entitlement.MemoryStore
}

func (f *failingStore) GetSubscription(ctx context.Context, userID uuid.UUID) (*entitlement.Subscription, error) {
	return nil, errors.Join(entitlement.ErrStoreUnavailable, errors.New("connection refused"))
}

func newTestRouter(t *testing.T, store entitlement.Store, provider billing.Provider, opts ...entitlement.ServiceOption) http.Handler {
	t.Helper()

	opts = append([]entitlement.ServiceOption{
		entitlement.WithClock(func() time.Time { return testNow }),
	}, opts...)
	svc := entitlement.NewService(store, provider, opts...)
	return usage.Router(svc, usage.RouterOptions{})
}

func seedProUser(t *testing.T, store *entitlement.MemoryStore, used int64) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	start := testNow.Add(-10 * 24 * time.Hour)
	end := testNow.Add(20 * 24 * time.Hour)
	require.NoError(t, store.UpsertSubscription(context.Background(), &entitlement.Subscription{
		UserID:      userID,
		Plan:        plan.Pro,
		Status:      entitlement.StatusActive,
		BillingRef:  "sub_test",
		PeriodStart: start,
		PeriodEnd:   end,
		UpdatedAt:   start,
	}))
	require.NoError(t, store.UpsertUsage(context.Background(), &entitlement.Usage{
		UserID:      userID,
		Used:        used,
		Limit:       plan.ProQuota,
		PeriodStart: start,
		PeriodEnd:   end,
		UpdatedAt:   start,
	}))
	return userID
}

func doRequest(t *testing.T, h http.Handler, method, path string, userID *uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if userID != nil {
		req.Header.Set(usage.VerifiedUserHeader, userID.String())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestRouter_Auth(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, entitlement.NewMemoryStore(), &providerStub{})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()

		rec := doRequest(t, h, http.MethodGet, "/usage/limits", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		body := decodeBody[map[string]string](t, rec)
		assert.Equal(t, "unauthorized", body["error"])
	})

	t.Run("malformed user id", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/usage/consume", nil)
		req.Header.Set(usage.VerifiedUserHeader, "not-a-uuid")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("internal sweep needs no user", func(t *testing.T) {
		t.Parallel()

		rec := doRequest(t, h, http.MethodPost, "/internal/sweep", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRouter_CheckLimit(t *testing.T) {
	t.Parallel()

	type limitsBody struct {
		CanGenerate bool    `json:"can_generate"`
		Remaining   int64   `json:"remaining"`
		Limit       int64   `json:"limit"`
		ResetDate   *string `json:"reset_date"`
	}

	t.Run("free user", func(t *testing.T) {
		t.Parallel()

		h := newTestRouter(t, entitlement.NewMemoryStore(), &providerStub{})
		userID := uuid.New()

		rec := doRequest(t, h, http.MethodGet, "/usage/limits", &userID)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody[limitsBody](t, rec)
		assert.False(t, body.CanGenerate)
		assert.EqualValues(t, 0, body.Limit)
		assert.Nil(t, body.ResetDate)
	})

	t.Run("paying user", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		userID := seedProUser(t, store, 120)
		h := newTestRouter(t, store, &providerStub{})

		rec := doRequest(t, h, http.MethodGet, "/usage/limits", &userID)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody[limitsBody](t, rec)
		assert.True(t, body.CanGenerate)
		assert.EqualValues(t, 380, body.Remaining)
		assert.EqualValues(t, 500, body.Limit)
		require.NotNil(t, body.ResetDate)
		parsed, err := time.Parse(time.RFC3339, *body.ResetDate)
		require.NoError(t, err)
		assert.True(t, parsed.After(testNow))
	})

	t.Run("store outage fails closed", func(t *testing.T) {
		t.Parallel()

		store := &failingStore{MemoryStore: entitlement.NewMemoryStore()}
		h := newTestRouter(t, store, &providerStub{})
		userID := uuid.New()

		rec := doRequest(t, h, http.MethodGet, "/usage/limits", &userID)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		body := decodeBody[limitsBody](t, rec)
		assert.False(t, body.CanGenerate)
		assert.EqualValues(t, 0, body.Remaining)
	})
}

func TestRouter_ConsumeOne(t *testing.T) {
	t.Parallel()

	type consumeBody struct {
		Consumed bool `json:"consumed"`
	}

	t.Run("consumes within quota", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		userID := seedProUser(t, store, 0)
		h := newTestRouter(t, store, &providerStub{})

		rec := doRequest(t, h, http.MethodPost, "/usage/consume", &userID)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeBody[consumeBody](t, rec).Consumed)
	})

	t.Run("refuses at quota", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		userID := seedProUser(t, store, 500)
		h := newTestRouter(t, store, &providerStub{})

		rec := doRequest(t, h, http.MethodPost, "/usage/consume", &userID)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decodeBody[consumeBody](t, rec).Consumed)
	})
}

func TestRouter_ResetManually(t *testing.T) {
	t.Parallel()

	t.Run("resets active subscription", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		userID := seedProUser(t, store, 450)
		h := newTestRouter(t, store, &providerStub{})

		rec := doRequest(t, h, http.MethodPost, "/usage/reset", &userID)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody[map[string]int64](t, rec)
		assert.EqualValues(t, 0, body["used"])
		assert.EqualValues(t, 500, body["limit"])
	})

	t.Run("conflict without active subscription", func(t *testing.T) {
		t.Parallel()

		h := newTestRouter(t, entitlement.NewMemoryStore(), &providerStub{})
		userID := uuid.New()

		rec := doRequest(t, h, http.MethodPost, "/usage/reset", &userID)
		assert.Equal(t, http.StatusConflict, rec.Code)

		body := decodeBody[map[string]string](t, rec)
		assert.Equal(t, "no_active_subscription", body["error"])
	})
}

func TestRouter_SyncWithProvider(t *testing.T) {
	t.Parallel()

	t.Run("reverted to free", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		userID := seedProUser(t, store, 100)
		provider := &providerStub{
			getFn: func(ctx context.Context, ref string) (*billing.Sub, error) {
				return nil, billing.ErrSubscriptionNotFound
			},
		}
		h := newTestRouter(t, store, provider)

		rec := doRequest(t, h, http.MethodPost, "/billing/sync", &userID)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody[map[string]string](t, rec)
		assert.Equal(t, string(entitlement.OutcomeRevertedToFree), body["outcome"])
	})

	t.Run("cooldown maps to 429", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		userID := seedProUser(t, store, 100)
		h := newTestRouter(t, store, &providerStub{},
			entitlement.WithSyncCooldown(blockedCooldown{}))

		rec := doRequest(t, h, http.MethodPost, "/billing/sync", &userID)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		body := decodeBody[map[string]string](t, rec)
		assert.Equal(t, "sync_cooldown", body["error"])
	})

	t.Run("provider outage maps to 502", func(t *testing.T) {
		t.Parallel()

		store := entitlement.NewMemoryStore()
		userID := seedProUser(t, store, 100)
		provider := &providerStub{
			getFn: func(ctx context.Context, ref string) (*billing.Sub, error) {
				return nil, errors.Join(billing.ErrProviderUnavailable, errors.New("gateway timeout"))
			},
		}
		h := newTestRouter(t, store, provider)

		rec := doRequest(t, h, http.MethodPost, "/billing/sync", &userID)
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		// Local records stay intact after an outage.
		_, err := store.GetSubscription(context.Background(), userID)
		require.NoError(t, err)
	})
}

func TestRouter_Sweep(t *testing.T) {
	t.Parallel()

	store := entitlement.NewMemoryStore()
	userID := uuid.New()
	require.NoError(t, store.UpsertSubscription(context.Background(), &entitlement.Subscription{
		UserID:    userID,
		Plan:      plan.Pro,
		Status:    entitlement.StatusActive,
		PeriodEnd: testNow.Add(-time.Hour),
		UpdatedAt: testNow.Add(-time.Hour),
	}))
	h := newTestRouter(t, store, &providerStub{})

	rec := doRequest(t, h, http.MethodPost, "/internal/sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]int](t, rec)
	assert.Equal(t, 1, body["cleaned"])
}
