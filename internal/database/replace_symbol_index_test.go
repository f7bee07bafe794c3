package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/crypto-portfolio-service/internal/symbols"
)

func TestReplaceSymbolIndex_Success(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM symbol_index").WillReturnResult(sqlmock.NewResult(0, 3))
	prep := mock.ExpectPrepare("INSERT INTO symbol_index")
	// Inserts happen in symbol order.
	prep.ExpectExec().WithArgs("BTC", int64(90), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("ETH", int64(80), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO symbol_index_meta").WithArgs(2, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = db.ReplaceSymbolIndex(context.Background(), symbols.Mapping{"ETH": 80, "BTC": 90})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSymbolIndex_ReturnsErrorIfBeginFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectBegin().WillReturnError(errors.New("begin failed"))

	err = db.ReplaceSymbolIndex(context.Background(), symbols.Mapping{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSymbolIndex_RollsBackIfInsertFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM symbol_index").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("INSERT INTO symbol_index").
		ExpectExec().WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err = db.ReplaceSymbolIndex(context.Background(), symbols.Mapping{"BTC": 90})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert symbol BTC")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSymbolIndexStore_SaveWrapsPersistenceError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewSymbolIndexStore(&DB{conn: sqlDB})

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM symbol_index").WillReturnError(errors.New("delete failed"))
	mock.ExpectRollback()

	err = store.Save(context.Background(), symbols.Mapping{"BTC": 90})
	assert.ErrorIs(t, err, symbols.ErrPersistence)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSymbolIndexStore_LoadWithMock(t *testing.T) {
	t.Run("missing metadata is not found", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()

		store := NewSymbolIndexStore(&DB{conn: sqlDB})
		mock.ExpectQuery("SELECT symbol_count FROM symbol_index_meta").
			WillReturnRows(sqlmock.NewRows([]string{"symbol_count"}))

		_, err = store.Load(context.Background())
		assert.ErrorIs(t, err, symbols.ErrIndexNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count mismatch is corrupt", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()

		store := NewSymbolIndexStore(&DB{conn: sqlDB})
		mock.ExpectQuery("SELECT symbol_count FROM symbol_index_meta").
			WillReturnRows(sqlmock.NewRows([]string{"symbol_count"}).AddRow(2))
		mock.ExpectQuery("SELECT symbol, coin_id FROM symbol_index").
			WillReturnRows(sqlmock.NewRows([]string{"symbol", "coin_id"}).AddRow("BTC", int64(90)))

		_, err = store.Load(context.Background())
		assert.ErrorIs(t, err, symbols.ErrCorruptIndex)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rows are loaded", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer sqlDB.Close()

		store := NewSymbolIndexStore(&DB{conn: sqlDB})
		mock.ExpectQuery("SELECT symbol_count FROM symbol_index_meta").
			WillReturnRows(sqlmock.NewRows([]string{"symbol_count"}).AddRow(2))
		mock.ExpectQuery("SELECT symbol, coin_id FROM symbol_index").
			WillReturnRows(sqlmock.NewRows([]string{"symbol", "coin_id"}).
				AddRow("BTC", int64(90)).
				AddRow("ETH", int64(80)))

		loaded, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, symbols.Mapping{"BTC": 90, "ETH": 80}, loaded)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
