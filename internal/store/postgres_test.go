package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa/internal/embeddings"
)

// recordingDriver is a database/sql driver that records statements and
// transaction outcomes instead of talking to Postgres.
type recordingDriver struct{}

type recording struct {
	mu        sync.Mutex
	execs     []string
	failOn    string
	rows      [][]driver.Value
	commits   int
	rollbacks int
}

var (
	recordingsMu sync.Mutex
	recordings   = map[string]*recording{}
)

func init() {
	sql.Register("recording", recordingDriver{})
}

func (recordingDriver) Open(name string) (driver.Conn, error) {
	recordingsMu.Lock()
	defer recordingsMu.Unlock()
	return &recordingConn{rec: recordings[name]}, nil
}

type recordingConn struct{ rec *recording }

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{rec: c.rec, query: query}, nil
}
func (c *recordingConn) Close() error              { return nil }
func (c *recordingConn) Begin() (driver.Tx, error) { return &recordingTx{rec: c.rec}, nil }

type recordingTx struct{ rec *recording }

func (t *recordingTx) Commit() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.commits++
	return nil
}

func (t *recordingTx) Rollback() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.rollbacks++
	return nil
}

type recordingStmt struct {
	rec   *recording
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	if s.rec.failOn != "" && strings.Contains(s.query, s.rec.failOn) {
		return nil, errors.New("connection reset by peer")
	}
	s.rec.execs = append(s.rec.execs, strings.Join(strings.Fields(s.query), " "))
	return driver.RowsAffected(1), nil
}

func (s *recordingStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	return &recordingRows{data: s.rec.rows}, nil
}

type recordingRows struct {
	data [][]driver.Value
	next int
}

func (r *recordingRows) Columns() []string { return []string{"id", "ord", "text", "token_count"} }
func (r *recordingRows) Close() error      { return nil }

func (r *recordingRows) Next(dest []driver.Value) error {
	if r.next >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.next])
	r.next++
	return nil
}

func newRecordingDB(t *testing.T, rec *recording) *sql.DB {
	t.Helper()
	recordingsMu.Lock()
	recordings[t.Name()] = rec
	recordingsMu.Unlock()
	db, err := sql.Open("recording", t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countPrefix(stmts []string, prefix string) int {
	n := 0
	for _, s := range stmts {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

var twoChunks = []Chunk{
	{Index: 0, Text: "a b c", TokenCount: 3},
	{Index: 1, Text: "d e", TokenCount: 2},
}

func TestSaveEmbeddedDocumentCommitsOnce(t *testing.T) {
	rec := &recording{}
	s := &PostgresStore{db: newRecordingDB(t, rec)}

	doc, err := s.SaveEmbeddedDocument(context.Background(), "Sam Altman.txt", 28, twoChunks,
		[]embeddings.Vector{{0.1}, {0.2}}, "text-embedding-ada-002")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, "Sam Altman.txt", doc.Source)
	assert.Equal(t, 28, doc.SkipLines)
	assert.Equal(t, 1, countPrefix(rec.execs, "INSERT INTO documents"))
	assert.Equal(t, 2, countPrefix(rec.execs, "INSERT INTO chunks"))
	assert.Equal(t, 2, countPrefix(rec.execs, "INSERT INTO embeddings"))
	assert.Equal(t, 1, rec.commits)
	assert.Equal(t, 0, rec.rollbacks)
}

func TestSaveEmbeddedDocumentRollsBackOnFailure(t *testing.T) {
	for _, failOn := range []string{"INSERT INTO chunks", "INSERT INTO embeddings"} {
		t.Run(failOn, func(t *testing.T) {
			rec := &recording{failOn: failOn}
			s := &PostgresStore{db: newRecordingDB(t, rec)}

			_, err := s.SaveEmbeddedDocument(context.Background(), "Sam Altman.txt", 28, twoChunks,
				[]embeddings.Vector{{0.1}, {0.2}}, "m")

			require.Error(t, err)
			assert.Equal(t, 0, rec.commits)
			assert.Equal(t, 1, rec.rollbacks)
		})
	}
}

func TestSaveEmbeddedDocumentVectorMismatchWritesNothing(t *testing.T) {
	rec := &recording{}
	s := &PostgresStore{db: newRecordingDB(t, rec)}

	_, err := s.SaveEmbeddedDocument(context.Background(), "Sam Altman.txt", 0, twoChunks,
		[]embeddings.Vector{{0.1}}, "m")

	require.Error(t, err)
	assert.Empty(t, rec.execs)
	assert.Equal(t, 0, rec.commits)
}

func TestListChunks(t *testing.T) {
	docID := uuid.New()
	first, second := uuid.New(), uuid.New()
	rec := &recording{rows: [][]driver.Value{
		{first.String(), int64(0), "a b c", int64(3)},
		{second.String(), int64(1), "d e", int64(2)},
	}}
	s := &PostgresStore{db: newRecordingDB(t, rec)}

	got, err := s.ListChunks(context.Background(), docID)

	require.NoError(t, err)
	assert.Equal(t, []Chunk{
		{ID: first, DocumentID: docID, Index: 0, Text: "a b c", TokenCount: 3},
		{ID: second, DocumentID: docID, Index: 1, Text: "d e", TokenCount: 2},
	}, got)
}

func TestListChunksUnknownDocument(t *testing.T) {
	s := &PostgresStore{db: newRecordingDB(t, &recording{})}

	_, err := s.ListChunks(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestMigrateLocksAroundSchemaSetup(t *testing.T) {
	rec := &recording{}

	_, err := newPostgres(newRecordingDB(t, rec))

	require.NoError(t, err)
	require.NotEmpty(t, rec.execs)
	assert.Equal(t, "SELECT pg_advisory_lock($1)", rec.execs[0])
	assert.Equal(t, "SELECT pg_advisory_unlock($1)", rec.execs[len(rec.execs)-1])
	assert.Equal(t, 3, countPrefix(rec.execs, "CREATE TABLE IF NOT EXISTS"))
}

func TestMigrateFailureClosesPool(t *testing.T) {
	db := newRecordingDB(t, &recording{failOn: "CREATE TABLE IF NOT EXISTS chunks"})

	_, err := newPostgres(db)

	require.Error(t, err)
	assert.Error(t, db.Ping(), "pool should be closed after a failed migration")
}

func TestToFloat64(t *testing.T) {
	got := toFloat64(embeddings.Vector{0.5, -1, 0})
	assert.Equal(t, []float64{0.5, -1, 0}, got)
	assert.Empty(t, toFloat64(nil))
}

func TestVectorArrayValue(t *testing.T) {
	v, err := pq.Array(toFloat64(embeddings.Vector{0.25, 1.5})).Value()
	require.NoError(t, err)
	assert.Equal(t, "{0.25,1.5}", v)
}
