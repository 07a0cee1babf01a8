package identity

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// errRows simulates a result set whose iteration ends with a wire failure.
type errRows struct {
	err error
}

func (r *errRows) Close()                                       {}
func (r *errRows) Err() error                                   { return r.err }
func (r *errRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *errRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *errRows) Next() bool                                   { return false }
func (r *errRows) Scan(dest ...any) error                       { return nil }
func (r *errRows) Values() ([]any, error)                       { return nil, nil }
func (r *errRows) RawValues() [][]byte                          { return nil }
func (r *errRows) Conn() *pgx.Conn                              { return nil }

var _ pgx.Rows = (*errRows)(nil)

func TestCollectUsers_IterationError(t *testing.T) {
	rowsErr := errors.New("unexpected EOF")

	users, total, err := collectUsers(&errRows{err: rowsErr}, 42)
	if !errors.Is(err, rowsErr) {
		t.Fatalf("expected iteration error, got %v", err)
	}
	if users != nil || total != 0 {
		t.Errorf("a failed iteration must not return a partial result, got %v (total %d)", users, total)
	}
}
