package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"codeberg.org/mutker/cyclectl/internal/core"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
	"codeberg.org/mutker/cyclectl/internal/monitor"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		DBPath:    filepath.Join(dir, "data", "heartbeats.db"),
		BackupDir: filepath.Join(dir, "backups"),
		BatchSize: 2,
		Enabled:   true,
	}
}

func heartbeat(tick core.OptionalTick, cycles uint64) monitor.Heartbeat {
	return monitor.Heartbeat{
		Tick:       tick,
		CycleCount: cycles,
		Timestamp:  time.Unix(1700000000, int64(cycles)).UTC(),
		Session:    "session-a",
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Emit(ctx, heartbeat(core.Present(1000), 1000)))
	require.NoError(t, store.Emit(ctx, heartbeat(core.Present(2000), 2000)))
	require.NoError(t, store.Emit(ctx, heartbeat(core.Absent(), 3000)))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.EqualValues(t, 3000, got[0].CycleCount, "newest first")
	assert.False(t, got[0].Tick.IsPresent())

	tick, ok := got[1].Tick.Get()
	require.True(t, ok)
	assert.Equal(t, core.Tick(2000), tick)
	assert.Equal(t, "session-a", got[1].Session)
	assert.Equal(t, heartbeat(core.Absent(), 2000).Timestamp, got[1].Timestamp)

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCloseFlushesBuffer(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.BatchSize = 100

	store, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Emit(ctx, heartbeat(core.Present(7), 1)))
	require.NoError(t, store.Close())

	reopened, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 1, got[0].CycleCount)
}

func TestPeriodicFlush(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 100
	cfg.FlushInterval = 10 * time.Millisecond

	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	defer repo.Close()
	r := repo.(*repository)

	require.NoError(t, repo.Record(heartbeat(core.Present(1), 1)))

	assert.Eventually(t, func() bool {
		var n int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM heartbeats").Scan(&n); err != nil {
			return false
		}
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecordAfterClose(t *testing.T) {
	repo, err := NewRepository(testConfig(t), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close(), "second close is a no-op")

	err = repo.Record(heartbeat(core.Present(1), 1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrClosed))

	_, err = repo.Recent(context.Background(), 1)
	assert.True(t, errors.HasCode(err, ErrClosed))
}

func TestSchemaMigrationBacksUp(t *testing.T) {
	cfg := testConfig(t)

	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, repo.Record(heartbeat(core.Present(1), 1)))
	require.NoError(t, repo.Record(heartbeat(core.Present(2), 2)))
	require.NoError(t, repo.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'))`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err = NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got, "schema is recreated on version mismatch")

	backups, err := os.ReadDir(cfg.BackupDir)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Regexp(t, `^heartbeats_v99_.*\.db$`, backups[0].Name())
}

func TestSchemaVersionOnFreshDB(t *testing.T) {
	cfg := testConfig(t)
	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	r := repo.(*repository)
	defer repo.Close()

	version, err := GetSchemaVersion(r.db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestFlushFailureKeepsBuffer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := newRepository(db, Config{BatchSize: 5}, logger.Nop())
	r.buffer = append(r.buffer, heartbeat(core.Present(1), 1))

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO heartbeats")).
		ExpectExec().
		WillReturnError(fmt.Errorf("disk I/O error"))
	mock.ExpectRollback()

	err = r.flush()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrTransactionFailed))
	assert.Len(t, r.buffer, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushBeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := newRepository(db, Config{BatchSize: 1}, logger.Nop())

	mock.ExpectBegin().WillReturnError(fmt.Errorf("database is locked"))

	err = r.Record(heartbeat(core.Present(1), 1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrTransactionFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushWritesNullTick(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := newRepository(db, Config{BatchSize: 1}, logger.Nop())
	hb := heartbeat(core.Absent(), 9)

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO heartbeats")).
		ExpectExec().
		WithArgs("session-a", hb.Timestamp.UnixNano(), nil, int64(9)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, r.Record(hb))
	assert.Empty(t, r.buffer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisabledIsNoop(t *testing.T) {
	store, err := NewService(DefaultConfig(), logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &noopStore{}, store)

	assert.NoError(t, store.Emit(context.Background(), heartbeat(core.Present(1), 1)))
	got, err := store.Recent(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, store.Close())
}

func TestValidate(t *testing.T) {
	_, err := NewService(Config{Enabled: true}, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidDBPath))
}

func TestEmitCancelledContext(t *testing.T) {
	store, err := NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = store.Emit(ctx, heartbeat(core.Present(1), 1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrOperationTimeout))
}

func TestOpenReadOnly(t *testing.T) {
	cfg := testConfig(t)
	store, err := NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Emit(context.Background(), heartbeat(core.Present(5), 10)))
	require.NoError(t, store.Close())

	reader, err := OpenReadOnly(cfg.DBPath, logger.Nop())
	require.NoError(t, err)
	defer reader.Close()

	got, err := reader.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 10, got[0].CycleCount)
}

func TestOpenReadOnlyLeavesOtherSchemaAlone(t *testing.T) {
	cfg := testConfig(t)
	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, repo.Record(heartbeat(core.Present(1), 1)))
	require.NoError(t, repo.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'))`)
	require.NoError(t, err)

	_, err = OpenReadOnly(cfg.DBPath, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrSchemaVersionMismatch))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM heartbeats").Scan(&n))
	assert.Equal(t, 1, n, "rows survive")
	_, err = os.Stat(cfg.BackupDir)
	assert.True(t, os.IsNotExist(err), "no backup is taken")
}

func TestOpenReadOnlyMissingFile(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "missing.db"), logger.Nop())
	require.Error(t, err)

	_, err = OpenReadOnly("", logger.Nop())
	assert.True(t, errors.HasCode(err, ErrInvalidDBPath))
}
