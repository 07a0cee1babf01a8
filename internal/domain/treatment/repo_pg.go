package treatment

import (
	"context"
	"errors"
	"fmt"

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

const treatmentCols = `id, name, hospital, date, patient_id, doctor_id, status, created_at, updated_at`
const historyCols = `id, treatment_id, session, date, notes, progress, adjustments, side_effects, prescribed_medications, next_review, doctor_id, created_at`

func (r *repoPG) Create(ctx context.Context, t *Treatment) error {
	t.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatments (id, name, hospital, date, patient_id, doctor_id, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		t.ID, t.Name, t.Hospital, t.Date, t.PatientID, t.DoctorID, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	return scanTreatment(r.conn(ctx).QueryRow(ctx, `SELECT `+treatmentCols+` FROM treatments WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, t *Treatment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatments SET
			name=$2, hospital=$3, date=$4, status=$5, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Hospital, t.Date, t.Status,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatments WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Treatment, int, error) {
	where := `WHERE ($1::uuid IS NULL OR patient_id = $1)
		  AND ($2::uuid IS NULL OR doctor_id = $2)
		  AND ($3::text IS NULL OR status = $3)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM treatments `+where, f.PatientID, f.DoctorID, f.Status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+treatmentCols+` FROM treatments `+where+` ORDER BY date DESC LIMIT $4 OFFSET $5`,
		f.PatientID, f.DoctorID, f.Status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	treatments, err := collectTreatments(rows)
	return treatments, total, err
}

// ListByPatient returns the patient's treatments with doctor names and full
// session history, newest treatment first.
func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PatientTreatment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT t.id, t.name, t.hospital, t.date, t.patient_id, t.doctor_id, t.status, t.created_at, t.updated_at,
		       COALESCE(u.name, '')
		FROM treatments t
		LEFT JOIN users u ON u.id = t.doctor_id
		WHERE t.patient_id = $1
		ORDER BY t.date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*PatientTreatment
	for rows.Next() {
		var t Treatment
		var doctorName string
		if err := rows.Scan(&t.ID, &t.Name, &t.Hospital, &t.Date, &t.PatientID, &t.DoctorID, &t.Status, &t.CreatedAt, &t.UpdatedAt, &doctorName); err != nil {
			return nil, err
		}
		result = append(result, &PatientTreatment{Treatment: &t, DoctorName: doctorName})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, pt := range result {
		history, err := r.HistoryByTreatment(ctx, pt.ID)
		if err != nil {
			return nil, fmt.Errorf("history for treatment %s: %w", pt.ID, err)
		}
		pt.History = history
	}
	return result, nil
}

func (r *repoPG) AddHistory(ctx context.Context, h *History) error {
	h.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment_history (id, treatment_id, session, date, notes, progress, adjustments, side_effects, prescribed_medications, next_review, doctor_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at`,
		h.ID, h.TreatmentID, h.Session, h.Date, h.Notes, h.Progress, h.Adjustments, h.SideEffects, h.PrescribedMedications, h.NextReview, h.DoctorID,
	).Scan(&h.CreatedAt)
}

func (r *repoPG) HistoryByTreatment(ctx context.Context, treatmentID uuid.UUID) ([]*History, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+historyCols+` FROM treatment_history WHERE treatment_id = $1 ORDER BY session`, treatmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*History
	for rows.Next() {
		var h History
		if err := rows.Scan(&h.ID, &h.TreatmentID, &h.Session, &h.Date, &h.Notes, &h.Progress, &h.Adjustments, &h.SideEffects, &h.PrescribedMedications, &h.NextReview, &h.DoctorID, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}

func (r *repoPG) MaxSession(ctx context.Context, treatmentID uuid.UUID) (int, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(MAX(session), 0) FROM treatment_history WHERE treatment_id = $1`, treatmentID).Scan(&max)
	return max, err
}

// ErrNotFound reports whether err is a no-rows result.
func ErrNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsForeignKeyViolation reports whether err is a referential-integrity
// failure from the store.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// IsUniqueViolation reports whether err is a unique-constraint failure from
// the store.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment
	err := row.Scan(&t.ID, &t.Name, &t.Hospital, &t.Date, &t.PatientID, &t.DoctorID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTreatments(rows pgx.Rows) ([]*Treatment, error) {
	var treatments []*Treatment
	for rows.Next() {
		var t Treatment
		if err := rows.Scan(&t.ID, &t.Name, &t.Hospital, &t.Date, &t.PatientID, &t.DoctorID, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		treatments = append(treatments, &t)
	}
	return treatments, rows.Err()
}
