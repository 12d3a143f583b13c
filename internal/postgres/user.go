package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tickerdeck/tickerdeck/internal/domain"
)

const userColumns = `id, email, first_name, last_name,
	subscription_status, subscription_id, stripe_customer_id,
	plan_type, is_annual, current_period_end, cancel_at_period_end,
	created_at, updated_at`

// UserStore implements domain.UserStore on PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

var _ domain.UserStore = (*UserStore)(nil)

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

type userRow struct {
	ID                 string
	Email              string
	FirstName          string
	LastName           string
	SubscriptionStatus string
	SubscriptionID     pgtype.Text
	StripeCustomerID   pgtype.Text
	PlanType           string
	IsAnnual           bool
	CurrentPeriodEnd   pgtype.Timestamptz
	CancelAtPeriodEnd  bool
	CreatedAt          pgtype.Timestamptz
	UpdatedAt          pgtype.Timestamptz
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var r userRow
	err := row.Scan(
		&r.ID, &r.Email, &r.FirstName, &r.LastName,
		&r.SubscriptionStatus, &r.SubscriptionID, &r.StripeCustomerID,
		&r.PlanType, &r.IsAnnual, &r.CurrentPeriodEnd, &r.CancelAtPeriodEnd,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return mapUserRow(r), nil
}

// mapUserRow converts a row to the domain type. Period ends are
// normalized here so garbage epoch values stored by older writers never
// leak out of the storage layer.
func mapUserRow(r userRow) *domain.User {
	u := &domain.User{
		ID:        r.ID,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Subscription: domain.Subscription{
			Status:            r.SubscriptionStatus,
			SubscriptionID:    textOrEmpty(r.SubscriptionID),
			StripeCustomerID:  textOrEmpty(r.StripeCustomerID),
			Plan:              r.PlanType,
			IsAnnual:          r.IsAnnual,
			CurrentPeriodEnd:  domain.NormalizePeriodEnd(timePtr(r.CurrentPeriodEnd)),
			CancelAtPeriodEnd: r.CancelAtPeriodEnd,
		},
	}
	if r.CreatedAt.Valid {
		u.CreatedAt = r.CreatedAt.Time.UTC()
	}
	if r.UpdatedAt.Valid {
		u.UpdatedAt = r.UpdatedAt.Time.UTC()
	}
	return u
}

func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *UserStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE subscription_id = $1`, subscriptionID)
	return scanUser(row)
}

// Ensure creates the row if missing, then reads it back. The insert is a
// no-op on conflict so concurrent first requests for the same user are
// safe; identity fields are only written on creation.
func (s *UserStore) Ensure(ctx context.Context, id, email, firstName, lastName string) (*domain.User, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		id, email, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("ensure user %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

func (s *UserStore) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET cancel_at_period_end = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, cancel)
	return scanUser(row)
}

func (s *UserStore) SetPendingPlan(ctx context.Context, id, plan string, isAnnual bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET subscription_status = $2, plan_type = $3, is_annual = $4, updated_at = now()
		WHERE id = $1`,
		id, domain.StatusPending, plan, isAnnual)
	if err != nil {
		return fmt.Errorf("set pending plan for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ActivateSubscription writes the activation field set. The stored
// function is tried first; if that call fails (missing function on an
// old schema, permission problems) the same write runs as a direct
// UPDATE so an activation is never lost to the procedure being absent.
func (s *UserStore) ActivateSubscription(ctx context.Context, id string, sub domain.Subscription) (*domain.User, error) {
	_, err := s.pool.Exec(ctx,
		`SELECT activate_subscription($1, $2, $3, $4, $5, $6, $7, $8)`,
		id,
		textParam(sub.SubscriptionID),
		textParam(sub.StripeCustomerID),
		sub.Status,
		sub.Plan,
		sub.IsAnnual,
		timestamptzParam(sub.CurrentPeriodEnd),
		sub.CancelAtPeriodEnd,
	)
	if err != nil {
		_, err = s.pool.Exec(ctx, `
			UPDATE users
			SET subscription_id = $2,
			    stripe_customer_id = COALESCE($3, stripe_customer_id),
			    subscription_status = $4,
			    plan_type = $5,
			    is_annual = $6,
			    current_period_end = $7,
			    cancel_at_period_end = $8,
			    updated_at = now()
			WHERE id = $1`,
			id,
			textParam(sub.SubscriptionID),
			textParam(sub.StripeCustomerID),
			sub.Status,
			sub.Plan,
			sub.IsAnnual,
			timestamptzParam(sub.CurrentPeriodEnd),
			sub.CancelAtPeriodEnd,
		)
		if err != nil {
			return nil, fmt.Errorf("activate subscription for %s: %w", id, err)
		}
	}
	return s.Get(ctx, id)
}

func (s *UserStore) UpdateSubscriptionState(ctx context.Context, id, status string, periodEnd *time.Time, cancelAtPeriodEnd bool) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET subscription_status = $2,
		    current_period_end = $3,
		    cancel_at_period_end = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, status, timestamptzParam(periodEnd), cancelAtPeriodEnd)
	return scanUser(row)
}
