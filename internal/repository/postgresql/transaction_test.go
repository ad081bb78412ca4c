package postgresql

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManager_WithinTx_Commit(t *testing.T) {
	mock := newMockPool(t)
	tm := NewTxManager(mock)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
		_, ok := ctx.Value(txContextKey{}).(pgx.Tx)
		assert.True(t, ok, "transaction not injected into context")
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_WithinTx_RollbackOnError(t *testing.T) {
	mock := newMockPool(t)
	tm := NewTxManager(mock)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("write failed")
	err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_WithinTx_JoinsOuterTransaction(t *testing.T) {
	mock := newMockPool(t)
	tm := NewTxManager(mock)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
		outer := ctx.Value(txContextKey{})
		return tm.WithinTx(ctx, func(inner context.Context) error {
			assert.Equal(t, outer, inner.Value(txContextKey{}))
			return nil
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetQuerier_FallsBackToPool(t *testing.T) {
	mock := newMockPool(t)

	assert.Equal(t, mock, GetQuerier(context.Background(), mock))
}
