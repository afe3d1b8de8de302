package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newBillingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBillingRepositoryActiveSubscription(t *testing.T) {
	db, mock, cleanup := newBillingRepoMock(t)
	defer cleanup()
	repo := NewBillingRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "profile_id", "plan_id", "stripe_subscription_id", "stripe_price_id", "status",
		"current_period_start", "current_period_end", "cancel_at_period_end", "created_at", "updated_at",
		"monthly_minutes",
	}).AddRow(int64(1), "prof-1", int64(3), nil, nil, "active", now.Add(-time.Hour), now.Add(700*time.Hour), false, now, now, 300)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.profile_id = $1 AND s.status IN ('active', 'trialing', 'past_due')")).
		WithArgs("prof-1").
		WillReturnRows(rows)

	sub, err := repo.ActiveSubscription(context.Background(), "prof-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, "active", sub.Status)
	require.NotNil(t, sub.MonthlyMinutes)
	require.Equal(t, 300, *sub.MonthlyMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingRepositoryActiveSubscriptionNone(t *testing.T) {
	db, mock, cleanup := newBillingRepoMock(t)
	defer cleanup()
	repo := NewBillingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.profile_id = $1 AND s.status IN ('active', 'trialing', 'past_due')")).
		WithArgs("prof-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sub, err := repo.ActiveSubscription(context.Background(), "prof-1")
	require.NoError(t, err)
	require.Nil(t, sub)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingRepositoryCreditsRemaining(t *testing.T) {
	db, mock, cleanup := newBillingRepoMock(t)
	defer cleanup()
	repo := NewBillingRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(minutes_remaining), 0)")).
		WithArgs("prof-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(45))

	minutes, err := repo.CreditsRemaining(context.Background(), "prof-1", now)
	require.NoError(t, err)
	require.Equal(t, 45, minutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingRepositoryConsumeCreditsFIFOClamped(t *testing.T) {
	db, mock, cleanup := newBillingRepoMock(t)
	defer cleanup()
	repo := NewBillingRepository(db)

	now := time.Now()
	created := now.Add(-48 * time.Hour)

	mock.ExpectBegin()
	grantRows := sqlmock.NewRows([]string{
		"id", "profile_id", "source", "minutes_total", "minutes_remaining", "expires_at", "created_at", "updated_at",
	}).
		AddRow(int64(10), "prof-1", "purchase", 30, 5, nil, created, created).
		AddRow(int64(11), "prof-1", "promo", 60, 60, nil, created.Add(time.Hour), created)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("prof-1", now).
		WillReturnRows(grantRows)

	// Oldest grant drains to zero, remainder comes off the newer one.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE usage_credits SET minutes_remaining = minutes_remaining - $1")).
		WithArgs(5, now, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE usage_credits SET minutes_remaining = minutes_remaining - $1")).
		WithArgs(7, now, int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	consumed, err := repo.ConsumeCredits(context.Background(), "prof-1", 12, now)
	require.NoError(t, err)
	require.Equal(t, 12, consumed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingRepositoryConsumeCreditsPartial(t *testing.T) {
	db, mock, cleanup := newBillingRepoMock(t)
	defer cleanup()
	repo := NewBillingRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	grantRows := sqlmock.NewRows([]string{
		"id", "profile_id", "source", "minutes_total", "minutes_remaining", "expires_at", "created_at", "updated_at",
	}).AddRow(int64(10), "prof-1", "purchase", 30, 3, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("prof-1", now).
		WillReturnRows(grantRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE usage_credits SET minutes_remaining = minutes_remaining - $1")).
		WithArgs(3, now, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	consumed, err := repo.ConsumeCredits(context.Background(), "prof-1", 10, now)
	require.NoError(t, err)
	require.Equal(t, 3, consumed)
	require.NoError(t, mock.ExpectationsWereMet())
}
