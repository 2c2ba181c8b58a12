package sqlstore

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/records"
)

func setupMockDB(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})
	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	s, err := New(context.Background(), gdb, WithAutoMigrate(false))
	require.NoError(t, err)
	return s, mock
}

func TestCreateWrapsDriverFault(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `records`").WillReturnError(stderrors.New("connection reset"))
	mock.ExpectRollback()

	err := s.Create(context.Background(), &records.Record{ID: "abc", Name: "abc", State: records.StateActive})
	require.Error(t, err)
	assert.True(t, errors.IsPersist(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentTracesWrapsQueryFault(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `harvest_traces`").WillReturnError(stderrors.New("timeout"))

	_, err := s.CurrentTraces(context.Background(), "src")
	require.Error(t, err)
	assert.True(t, errors.IsPersist(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `records`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, errors.IsPersist(err))
}

func TestMarkCurrentRollsBackOnFault(t *testing.T) {
	s, mock := setupMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `harvest_traces`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "record_id"}).AddRow("t1", "rec"))
	mock.ExpectExec("UPDATE `harvest_traces`").WillReturnError(stderrors.New("deadlock"))
	mock.ExpectRollback()

	err := s.MarkCurrent(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, errors.IsPersist(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
}
