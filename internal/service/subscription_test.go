package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerdeck/tickerdeck/internal/billing"
	"github.com/tickerdeck/tickerdeck/internal/domain"
)

// fakeUserStore is an in-memory domain.UserStore with error injection.
type fakeUserStore struct {
	users map[string]*domain.User

	ensureErr error
	cancelErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*domain.User)}
}

func (f *fakeUserStore) put(u *domain.User) { f.users[u.ID] = u }

func (f *fakeUserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetBySubscriptionID(ctx context.Context, subID string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Subscription.SubscriptionID == subID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserStore) Ensure(ctx context.Context, id, email, firstName, lastName string) (*domain.User, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	u := &domain.User{
		ID: id, Email: email, FirstName: firstName, LastName: lastName,
		Subscription: domain.DefaultSubscription(),
	}
	f.users[id] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*domain.User, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Subscription.CancelAtPeriodEnd = cancel
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) SetPendingPlan(ctx context.Context, id, plan string, isAnnual bool) error {
	u, ok := f.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Subscription.Status = domain.StatusPending
	u.Subscription.Plan = plan
	u.Subscription.IsAnnual = isAnnual
	return nil
}

func (f *fakeUserStore) ActivateSubscription(ctx context.Context, id string, sub domain.Subscription) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if sub.StripeCustomerID == "" {
		sub.StripeCustomerID = u.Subscription.StripeCustomerID
	}
	u.Subscription = sub
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) UpdateSubscriptionState(ctx context.Context, id, status string, periodEnd *time.Time, cancel bool) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Subscription.Status = status
	u.Subscription.CurrentPeriodEnd = periodEnd
	u.Subscription.CancelAtPeriodEnd = cancel
	cp := *u
	return &cp, nil
}

// fakeProvider is an enabled billing.Provider for live-branch tests.
type fakeProvider struct {
	*billing.NullProvider
	enabled   bool
	cancelErr error
	session   *billing.CheckoutSession
}

func newFakeProvider(enabled bool) *fakeProvider {
	return &fakeProvider{NullProvider: billing.NewNullProvider(), enabled: enabled}
}

func (p *fakeProvider) Enabled() bool { return p.enabled }

func (p *fakeProvider) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*billing.Subscription, error) {
	if p.cancelErr != nil {
		return nil, p.cancelErr
	}
	return p.NullProvider.SetCancelAtPeriodEnd(ctx, id, cancel)
}

func (p *fakeProvider) GetCheckoutSession(ctx context.Context, id string) (*billing.CheckoutSession, error) {
	if p.session != nil && p.session.ID == id {
		cp := *p.session
		return &cp, nil
	}
	return p.NullProvider.GetCheckoutSession(ctx, id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noPrices(plan string, isAnnual bool) string { return "" }

func testPrices(plan string, isAnnual bool) string {
	return "price_" + plan
}

func newTestService(store domain.UserStore, provider billing.Provider, prices PriceResolver) *SubscriptionService {
	svc := NewSubscriptionService(store, provider, prices, CheckoutURLs{
		Success: "https://app.example.com/dashboard?checkout=success",
		Cancel:  "https://app.example.com/pricing",
	}, testLogger())
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func activeUser(id, subID string) *domain.User {
	end := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:    id,
		Email: id + "@example.com",
		Subscription: domain.Subscription{
			Status:           domain.StatusActive,
			SubscriptionID:   subID,
			Plan:             domain.PlanPro,
			CurrentPeriodEnd: &end,
		},
	}
}

func TestGetCreatesRowOnFirstUse(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store, newFakeProvider(false), noPrices)

	user, err := svc.Get(context.Background(), &domain.Identity{
		UserID: "user_1", Email: "a@example.com", FirstName: "Ada",
	})
	require.NoError(t, err)

	assert.Equal(t, "user_1", user.ID)
	assert.Equal(t, domain.StatusInactive, user.Subscription.Status)
	assert.Equal(t, domain.PlanFree, user.Subscription.Plan)
}

func TestCancelRequiresActiveSubscription(t *testing.T) {
	store := newFakeUserStore()
	store.put(&domain.User{ID: "user_1", Subscription: domain.DefaultSubscription()})
	svc := newTestService(store, newFakeProvider(false), noPrices)

	_, err := svc.Cancel(context.Background(), "user_1")
	assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)

	_, err = svc.Cancel(context.Background(), "user_missing")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestCancelMockBranchWritesFlagDirectly(t *testing.T) {
	store := newFakeUserStore()
	store.put(activeUser("user_1", domain.ManualActivationID))
	provider := newFakeProvider(false)
	svc := newTestService(store, provider, noPrices)

	user, err := svc.Cancel(context.Background(), "user_1")
	require.NoError(t, err)

	assert.True(t, user.Subscription.CancelAtPeriodEnd)
	assert.Equal(t, domain.StatusCancelling, user.Subscription.DerivedStatus())
	assert.NotContains(t, provider.CallLog, "SetCancelAtPeriodEnd")
}

func TestCancelLiveBranchUpdatesProviderFirst(t *testing.T) {
	store := newFakeUserStore()
	store.put(activeUser("user_1", "sub_123"))
	provider := newFakeProvider(true)
	provider.SeedSubscription(&billing.Subscription{ID: "sub_123", Status: "active"})
	svc := newTestService(store, provider, noPrices)

	user, err := svc.Cancel(context.Background(), "user_1")
	require.NoError(t, err)

	assert.True(t, user.Subscription.CancelAtPeriodEnd)
	assert.Contains(t, provider.CallLog, "SetCancelAtPeriodEnd")
}

func TestCancelLiveBranchProviderFailureLeavesStoreUntouched(t *testing.T) {
	store := newFakeUserStore()
	store.put(activeUser("user_1", "sub_123"))
	provider := newFakeProvider(true)
	provider.cancelErr = errors.New("stripe: boom")
	svc := newTestService(store, provider, noPrices)

	_, err := svc.Cancel(context.Background(), "user_1")
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))

	stored, _ := store.Get(context.Background(), "user_1")
	assert.False(t, stored.Subscription.CancelAtPeriodEnd)
}

func TestCancelIsIdempotent(t *testing.T) {
	store := newFakeUserStore()
	u := activeUser("user_1", "sub_123")
	u.Subscription.CancelAtPeriodEnd = true
	store.put(u)
	provider := newFakeProvider(true)
	svc := newTestService(store, provider, noPrices)

	user, err := svc.Cancel(context.Background(), "user_1")
	require.NoError(t, err)

	assert.True(t, user.Subscription.CancelAtPeriodEnd)
	assert.Empty(t, provider.CallLog, "already-cancelling subscription must not hit the provider")
}

func TestCancelSynthesizesStateWhenCacheWriteFails(t *testing.T) {
	store := newFakeUserStore()
	store.put(activeUser("user_1", domain.ManualActivationID))
	store.cancelErr = errors.New("connection reset")
	svc := newTestService(store, newFakeProvider(false), noPrices)

	user, err := svc.Cancel(context.Background(), "user_1")
	require.NoError(t, err)
	assert.True(t, user.Subscription.CancelAtPeriodEnd)
}

func TestReactivateRequiresActiveSubscription(t *testing.T) {
	store := newFakeUserStore()
	u := &domain.User{ID: "user_1", Subscription: domain.DefaultSubscription()}
	u.Subscription.CancelAtPeriodEnd = true
	store.put(u)
	svc := newTestService(store, newFakeProvider(false), noPrices)

	// Without an active subscription the cancel flag is irrelevant; the
	// caller gets the same not-found answer as cancel would give.
	_, err := svc.Reactivate(context.Background(), "user_1")
	assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)
}

func TestReactivateRequiresCancellingSubscription(t *testing.T) {
	store := newFakeUserStore()
	store.put(activeUser("user_1", "sub_123"))
	svc := newTestService(store, newFakeProvider(false), noPrices)

	_, err := svc.Reactivate(context.Background(), "user_1")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotCancelling)
}

func TestReactivateProviderFailureLeavesStoreUntouched(t *testing.T) {
	store := newFakeUserStore()
	u := activeUser("user_1", "sub_123")
	u.Subscription.CancelAtPeriodEnd = true
	store.put(u)
	provider := newFakeProvider(true)
	provider.cancelErr = errors.New("stripe: boom")
	svc := newTestService(store, provider, noPrices)

	_, err := svc.Reactivate(context.Background(), "user_1")
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))

	stored, _ := store.Get(context.Background(), "user_1")
	assert.True(t, stored.Subscription.CancelAtPeriodEnd)
}

func TestReactivateClearsFlag(t *testing.T) {
	store := newFakeUserStore()
	u := activeUser("user_1", "sub_123")
	u.Subscription.CancelAtPeriodEnd = true
	store.put(u)
	provider := newFakeProvider(true)
	provider.SeedSubscription(&billing.Subscription{ID: "sub_123", Status: "active", CancelAtPeriodEnd: true})
	svc := newTestService(store, provider, noPrices)

	user, err := svc.Reactivate(context.Background(), "user_1")
	require.NoError(t, err)

	assert.False(t, user.Subscription.CancelAtPeriodEnd)
	assert.Equal(t, domain.StatusActive, user.Subscription.DerivedStatus())
	assert.Contains(t, provider.CallLog, "SetCancelAtPeriodEnd")
}

func TestActivateMockSessionUsesSentinel(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store, newFakeProvider(false), noPrices)

	user, err := svc.Activate(context.Background(),
		&domain.Identity{UserID: "user_1", Email: "a@example.com"},
		domain.ActivateParams{SessionID: "cs_mock_1", Plan: "advanced", IsAnnual: true})
	require.NoError(t, err)

	sub := user.Subscription
	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.Equal(t, domain.ManualActivationID, sub.SubscriptionID)
	assert.Equal(t, domain.PlanAdvanced, sub.Plan)
	assert.True(t, sub.IsAnnual)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, 2027, sub.CurrentPeriodEnd.Year())
}

func TestActivateResolvesLiveSession(t *testing.T) {
	store := newFakeUserStore()
	provider := newFakeProvider(true)
	end := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)
	provider.SeedSubscription(&billing.Subscription{
		ID: "sub_real", Status: "active", CurrentPeriodEnd: end,
	})
	// The session the dashboard came back from.
	provider.session = &billing.CheckoutSession{
		ID:                "cs_live_1",
		ClientReferenceID: "user_1",
		SubscriptionID:    "sub_real",
		CustomerID:        "cus_9",
	}
	svc := newTestService(store, provider, noPrices)

	user, err := svc.Activate(context.Background(),
		&domain.Identity{UserID: "user_1", Email: "a@example.com"},
		domain.ActivateParams{SessionID: "cs_live_1", Plan: "pro"})
	require.NoError(t, err)

	sub := user.Subscription
	assert.Equal(t, "sub_real", sub.SubscriptionID)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, end, *sub.CurrentPeriodEnd)
}

func TestActivateFallsBackWhenProviderLookupFails(t *testing.T) {
	store := newFakeUserStore()
	provider := newFakeProvider(true)
	svc := newTestService(store, provider, noPrices)

	user, err := svc.Activate(context.Background(),
		&domain.Identity{UserID: "user_1"},
		domain.ActivateParams{SessionID: "cs_live_unknown", Plan: "pro"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, user.Subscription.Status)
	assert.Equal(t, domain.ManualActivationID, user.Subscription.SubscriptionID)
}

func TestCreateCheckoutMarksRowPending(t *testing.T) {
	store := newFakeUserStore()
	provider := newFakeProvider(false)
	svc := newTestService(store, provider, noPrices)

	sess, err := svc.CreateCheckout(context.Background(),
		&domain.Identity{UserID: "user_1", Email: "a@example.com"},
		domain.CheckoutParams{Plan: "pro", IsAnnual: false})
	require.NoError(t, err)

	assert.Contains(t, sess.ID, "cs_mock_")
	assert.Equal(t, "https://app.example.com/dashboard?checkout=success", sess.URL)

	stored, _ := store.Get(context.Background(), "user_1")
	assert.Equal(t, domain.StatusPending, stored.Subscription.Status)
	assert.Equal(t, domain.PlanPro, stored.Subscription.Plan)
}

func TestCreateCheckoutLiveRequiresConfiguredPrice(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestService(store, newFakeProvider(true), noPrices)

	_, err := svc.CreateCheckout(context.Background(),
		&domain.Identity{UserID: "user_1"},
		domain.CheckoutParams{Plan: "pro"})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestSyncCheckoutCompletedRequiresClientReference(t *testing.T) {
	svc := newTestService(newFakeUserStore(), newFakeProvider(true), testPrices)

	err := svc.SyncCheckoutCompleted(context.Background(), domain.CheckoutCompleted{
		SessionID: "cs_123", SubscriptionID: "sub_123",
	})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestSyncCheckoutCompletedActivatesPendingPlan(t *testing.T) {
	store := newFakeUserStore()
	u := &domain.User{ID: "user_1", Subscription: domain.Subscription{
		Status: domain.StatusPending, Plan: domain.PlanAdvanced, IsAnnual: true,
	}}
	store.put(u)
	provider := newFakeProvider(true)
	end := time.Date(2027, 3, 14, 0, 0, 0, 0, time.UTC)
	provider.SeedSubscription(&billing.Subscription{
		ID: "sub_123", Status: "active", CurrentPeriodEnd: end,
	})
	svc := newTestService(store, provider, testPrices)

	err := svc.SyncCheckoutCompleted(context.Background(), domain.CheckoutCompleted{
		SessionID:         "cs_123",
		ClientReferenceID: "user_1",
		SubscriptionID:    "sub_123",
		CustomerID:        "cus_9",
	})
	require.NoError(t, err)

	stored, _ := store.Get(context.Background(), "user_1")
	sub := stored.Subscription
	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.Equal(t, "sub_123", sub.SubscriptionID)
	assert.Equal(t, "cus_9", sub.StripeCustomerID)
	assert.Equal(t, domain.PlanAdvanced, sub.Plan)
	assert.True(t, sub.IsAnnual)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, end, *sub.CurrentPeriodEnd)
}

func TestSyncSubscriptionUpdatedUnknownSubscriptionIsDropped(t *testing.T) {
	svc := newTestService(newFakeUserStore(), newFakeProvider(true), testPrices)

	err := svc.SyncSubscriptionUpdated(context.Background(), domain.SubscriptionUpdate{
		SubscriptionID: "sub_ghost", Status: "active",
	})
	assert.NoError(t, err, "unknown subscriptions must not trigger webhook retries")
}

func TestSyncSubscriptionUpdatedNormalizesState(t *testing.T) {
	store := newFakeUserStore()
	store.put(activeUser("user_1", "sub_123"))
	svc := newTestService(store, newFakeProvider(true), testPrices)

	epoch := time.Unix(0, 0).UTC()
	err := svc.SyncSubscriptionUpdated(context.Background(), domain.SubscriptionUpdate{
		SubscriptionID:    "sub_123",
		Status:            "past_due",
		CurrentPeriodEnd:  &epoch,
		CancelAtPeriodEnd: true,
	})
	require.NoError(t, err)

	stored, _ := store.Get(context.Background(), "user_1")
	assert.Equal(t, domain.StatusActive, stored.Subscription.Status)
	assert.Nil(t, stored.Subscription.CurrentPeriodEnd, "epoch period ends must be stored as unknown")
	assert.True(t, stored.Subscription.CancelAtPeriodEnd)
}

func TestSyncSubscriptionDeletedRevertsToFree(t *testing.T) {
	store := newFakeUserStore()
	u := activeUser("user_1", "sub_123")
	u.Subscription.StripeCustomerID = "cus_9"
	store.put(u)
	svc := newTestService(store, newFakeProvider(true), testPrices)

	err := svc.SyncSubscriptionDeleted(context.Background(), "sub_123")
	require.NoError(t, err)

	stored, _ := store.Get(context.Background(), "user_1")
	sub := stored.Subscription
	assert.Equal(t, domain.StatusCanceled, sub.Status)
	assert.Equal(t, domain.PlanFree, sub.Plan)
	assert.Equal(t, "cus_9", sub.StripeCustomerID, "customer id survives for future checkouts")
}

func TestMapProviderStatus(t *testing.T) {
	cases := map[string]string{
		"active":             domain.StatusActive,
		"past_due":           domain.StatusActive,
		"trialing":           domain.StatusTrialing,
		"canceled":           domain.StatusCanceled,
		"unpaid":             domain.StatusCanceled,
		"incomplete_expired": domain.StatusCanceled,
		"incomplete":         domain.StatusPending,
		"paused":             domain.StatusInactive,
	}
	for in, want := range cases {
		assert.Equal(t, want, mapProviderStatus(in), in)
	}
}
