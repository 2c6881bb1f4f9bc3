package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/repository"
	"cycle-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTx(t *testing.T) {
	t.Run("Commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := postgres.NewStore(db)
		bikeID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE bikes SET status='rented'").
			WithArgs(sqlmock.AnyArg(), bikeID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = store.WithinTx(context.Background(), func(ctx context.Context, r repository.Repositories) error {
			return r.Bikes().MarkRented(ctx, bikeID, time.Now())
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		store := postgres.NewStore(db)
		sentinel := domain.Conflict("bike_unavailable", "bike is rented")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err = store.WithinTx(context.Background(), func(ctx context.Context, r repository.Repositories) error {
			return sentinel
		})
		assert.True(t, errors.Is(err, domain.ErrConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Begin failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		called := false
		err = postgres.NewStore(db).WithinTx(context.Background(), func(ctx context.Context, r repository.Repositories) error {
			called = true
			return nil
		})
		assert.Error(t, err)
		assert.False(t, called)
	})
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, postgres.Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
