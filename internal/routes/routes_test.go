package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerdeck/tickerdeck/internal/auth"
	"github.com/tickerdeck/tickerdeck/internal/billing"
	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/handler/api"
	"github.com/tickerdeck/tickerdeck/internal/handler/webhook"
	"github.com/tickerdeck/tickerdeck/internal/marketdata"
	"github.com/tickerdeck/tickerdeck/internal/middleware"
	"github.com/tickerdeck/tickerdeck/internal/router"
	"github.com/tickerdeck/tickerdeck/internal/telemetry"
)

const sessionSecret = "routes-test-secret"

var (
	routerOnce sync.Once
	testRouter *router.Router
)

type stubSubscriptionService struct{}

func (stubSubscriptionService) Get(ctx context.Context, ident *domain.Identity) (*domain.User, error) {
	return &domain.User{ID: ident.UserID, Subscription: domain.DefaultSubscription()}, nil
}

func (stubSubscriptionService) Cancel(ctx context.Context, userID string) (*domain.User, error) {
	return nil, domain.ErrNoActiveSubscription
}

func (stubSubscriptionService) Reactivate(ctx context.Context, userID string) (*domain.User, error) {
	return nil, domain.ErrSubscriptionNotCancelling
}

func (stubSubscriptionService) Activate(ctx context.Context, ident *domain.Identity, params domain.ActivateParams) (*domain.User, error) {
	return &domain.User{ID: ident.UserID, Subscription: domain.DefaultSubscription()}, nil
}

func (stubSubscriptionService) CreateCheckout(ctx context.Context, ident *domain.Identity, params domain.CheckoutParams) (*domain.CheckoutSession, error) {
	return &domain.CheckoutSession{ID: "cs_mock_1", URL: "https://app.example.com/success"}, nil
}

func (stubSubscriptionService) SyncCheckoutCompleted(ctx context.Context, ev domain.CheckoutCompleted) error {
	return nil
}

func (stubSubscriptionService) SyncSubscriptionUpdated(ctx context.Context, ev domain.SubscriptionUpdate) error {
	return nil
}

func (stubSubscriptionService) SyncSubscriptionDeleted(ctx context.Context, subscriptionID string) error {
	return nil
}

type stubWatchlistService struct{}

func (stubWatchlistService) List(ctx context.Context, userID string) ([]domain.WatchlistEntry, error) {
	return []domain.WatchlistEntry{}, nil
}

func (stubWatchlistService) Add(ctx context.Context, userID, symbol string) ([]domain.WatchlistEntry, error) {
	return []domain.WatchlistEntry{}, nil
}

func (stubWatchlistService) Remove(ctx context.Context, userID, symbol string) ([]domain.WatchlistEntry, error) {
	return []domain.WatchlistEntry{}, nil
}

type stubQueryService struct{}

func (stubQueryService) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	return &domain.QueryResult{Answer: "ok"}, nil
}

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()
	routerOnce.Do(func() {
		logger := slog.New(slog.DiscardHandler)
		biz := telemetry.NewMetrics("tickerdeck_routes_test_biz")
		httpMetrics := middleware.NewMetrics("tickerdeck_routes_test")

		testRouter = New(Deps{
			Logger:          logger,
			AllowedOrigins:  []string{"https://app.example.com"},
			Verifier:        auth.NewVerifier(sessionSecret),
			HTTPMetrics:     httpMetrics,
			Subscriptions:   api.NewSubscriptionHandler(stubSubscriptionService{}, biz),
			Watchlist:       api.NewWatchlistHandler(stubWatchlistService{}, biz),
			Market:          api.NewMarketHandler(marketdata.NewService()),
			AI:              api.NewAIHandler(stubQueryService{}, biz),
			StripeWebhook:   webhook.NewStripeHandler(stubSubscriptionService{}, billing.NewNullProvider(), "", biz),
			IdentityWebhook: webhook.NewIdentityHandler(stubProvisioner{}, "whsec_dGVzdA==", biz),
		})
	})
	return testRouter
}

type stubProvisioner struct{}

func (stubProvisioner) Provision(ctx context.Context, id, email, firstName, lastName string) (*domain.User, error) {
	return &domain.User{ID: id}, nil
}

func sessionToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(sessionSecret))
	require.NoError(t, err)
	return signed
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestAPIRequiresAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/subscriptions", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIAcceptsSessionToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/subscriptions", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, "user_1"))

	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPreflightAnswered(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/watchlist", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebhookSkipsSessionAuth(t *testing.T) {
	// No Authorization header; the handler rejects on signature instead.
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
