package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/bracket-engine/repositories"
)

// recordingDB is a stub database/sql driver serving one canned tournament
// while logging every statement, so the transaction shape of the write path
// can be asserted without a live database. A submission that loads the
// bracket outside its transaction can write back state another request
// already overwrote; the guard is that the load runs inside the same
// transaction as the writes, behind a row lock on the tournament.
type recordingDB struct {
	mu  sync.Mutex
	log []string
}

func (d *recordingDB) record(stmt string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, stmt)
}

func (d *recordingDB) statements() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.log...)
}

var activeRecorder *recordingDB

type recordingDriver struct{}

func (recordingDriver) Open(string) (driver.Conn, error) {
	return &recordingConn{db: activeRecorder}, nil
}

func init() { sql.Register("recorder", recordingDriver{}) }

type recordingConn struct {
	db *recordingDB
}

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepared statements not supported: %s", query)
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) Begin() (driver.Tx, error) {
	c.db.record("begin")
	return recordingTx{db: c.db}, nil
}

func (c *recordingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return c.Begin()
}

func (c *recordingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.db.record(query)
	return driver.RowsAffected(1), nil
}

func (c *recordingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.db.record(query)
	switch {
	case strings.Contains(query, "FROM tournaments"):
		return rowSet(13, tournamentRow()), nil
	case strings.Contains(query, "FROM team_entries"):
		return rowSet(15, entryRow(1, 1), entryRow(2, 2)), nil
	case strings.Contains(query, "FROM bracket_nodes"):
		return rowSet(26, finalNodeRow()), nil
	}
	return nil, fmt.Errorf("unexpected query: %s", query)
}

type recordingTx struct {
	db *recordingDB
}

func (t recordingTx) Commit() error {
	t.db.record("commit")
	return nil
}

func (t recordingTx) Rollback() error {
	t.db.record("rollback")
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	next int
}

func rowSet(width int, rows ...[]driver.Value) *stubRows {
	cols := make([]string, width)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i)
	}
	return &stubRows{cols: cols, rows: rows}
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}

// An active single elimination down to its final: entries 1 and 2, one
// in-progress node.
func tournamentRow() []driver.Value {
	return []driver.Value{
		int64(1), "club open", "single_elimination", "active", false, false,
		int64(2), int64(1), int64(0), int64(0),
		nil, nil, time.Now(),
	}
}

func entryRow(id, seed int64) []driver.Value {
	return []driver.Value{
		id, 100 + id, int64(1), seed, nil,
		int64(0), int64(0), int64(0), int64(0), int64(0), int64(0), int64(0),
		"approved", nil, nil,
	}
}

func finalNodeRow() []driver.Value {
	return []driver.Value{
		int64(1), int64(1), "final", int64(1), int64(0), "Final", nil,
		int64(1), false, int64(1),
		int64(2), false, int64(2),
		"in_progress", nil, nil, nil, nil, nil, false,
		nil, nil, nil, nil,
		nil, nil,
	}
}

func TestSubmitResultLoadsAndWritesInOneLockedTransaction(t *testing.T) {
	activeRecorder = &recordingDB{}
	db, err := sql.Open("recorder", "")
	require.NoError(t, err)
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewProgressionService(db,
		repositories.NewPostgresTournamentRepository(db),
		repositories.NewPostgresTeamEntryRepository(db),
		repositories.NewPostgresBracketNodeRepository(db),
		nil, nil, logger)

	view, err := svc.SubmitResult(context.Background(), 1, 1, 21, 15, false)
	require.NoError(t, err)
	require.NotNil(t, view.Champion)
	assert.Equal(t, 1, view.Champion.ID)

	log := activeRecorder.statements()
	require.NotEmpty(t, log)
	assert.Equal(t, "begin", log[0], "bracket must be loaded inside the transaction, not before it")

	lockIdx, firstWriteIdx, commitIdx := -1, -1, -1
	for i, stmt := range log {
		trimmed := strings.TrimSpace(stmt)
		switch {
		case lockIdx == -1 && strings.Contains(stmt, "FOR UPDATE"):
			lockIdx = i
		case firstWriteIdx == -1 && (strings.HasPrefix(trimmed, "INSERT") || strings.HasPrefix(trimmed, "UPDATE")):
			firstWriteIdx = i
		case stmt == "commit":
			commitIdx = i
		}
	}
	require.NotEqual(t, -1, lockIdx, "tournament row must be locked")
	require.NotEqual(t, -1, firstWriteIdx, "bracket state must be written back")
	require.NotEqual(t, -1, commitIdx)
	assert.Less(t, lockIdx, firstWriteIdx, "row lock must be taken before the first write")
	assert.Less(t, firstWriteIdx, commitIdx)
	assert.NotContains(t, log, "rollback")
}
