package hospital

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearia/clearia/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const hospitalCols = `id, name, address, city, state, zip_code, phone, email, website, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, h *Hospital) error {
	h.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO hospitals (id, name, address, city, state, zip_code, phone, email, website)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		h.ID, h.Name, h.Address, h.City, h.State, h.ZipCode, h.Phone, h.Email, h.Website,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return scanHospital(r.conn(ctx).QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospitals WHERE id = $1`, id))
}

func (r *repoPG) GetByNameCity(ctx context.Context, name, city string) (*Hospital, error) {
	return scanHospital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospitals WHERE LOWER(name) = LOWER($1) AND LOWER(city) = LOWER($2)`, name, city))
}

func (r *repoPG) Update(ctx context.Context, h *Hospital) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE hospitals SET
			name=$2, address=$3, city=$4, state=$5, zip_code=$6, phone=$7, email=$8, website=$9,
			updated_at=NOW()
		WHERE id = $1`,
		h.ID, h.Name, h.Address, h.City, h.State, h.ZipCode, h.Phone, h.Email, h.Website,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM hospitals WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+hospitalCols+` FROM hospitals ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	hospitals, err := collectHospitals(rows)
	return hospitals, total, err
}

func (r *repoPG) ByLocation(ctx context.Context, city, state string) ([]*Hospital, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+hospitalCols+` FROM hospitals
		WHERE ($1 = '' OR city ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR state ILIKE '%' || $2 || '%')
		ORDER BY name`, city, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHospitals(rows)
}

func (r *repoPG) Search(ctx context.Context, query string, limit int) ([]*Hospital, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+hospitalCols+` FROM hospitals
		WHERE name ILIKE '%' || $1 || '%'
		   OR city ILIKE '%' || $1 || '%'
		   OR state ILIKE '%' || $1 || '%'
		ORDER BY name LIMIT $2`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHospitals(rows)
}

func (r *repoPG) Staff(ctx context.Context, hospitalID uuid.UUID) ([]*StaffMember, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name, role FROM users WHERE hospital_id = $1 ORDER BY name`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []*StaffMember
	for rows.Next() {
		var m StaffMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Role); err != nil {
			return nil, err
		}
		staff = append(staff, &m)
	}
	return staff, rows.Err()
}

func (r *repoPG) UserCount(ctx context.Context, hospitalID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE hospital_id = $1`, hospitalID).Scan(&n)
	return n, err
}

func (r *repoPG) RoleCounts(ctx context.Context, hospitalID uuid.UUID) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT role, COUNT(*) FROM users WHERE hospital_id = $1 GROUP BY role`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}

// ErrNotFound reports whether err is a no-rows result.
func ErrNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.ID, &h.Name, &h.Address, &h.City, &h.State, &h.ZipCode, &h.Phone, &h.Email, &h.Website, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func collectHospitals(rows pgx.Rows) ([]*Hospital, error) {
	var hospitals []*Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(&h.ID, &h.Name, &h.Address, &h.City, &h.State, &h.ZipCode, &h.Phone, &h.Email, &h.Website, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		hospitals = append(hospitals, &h)
	}
	return hospitals, rows.Err()
}
