package icu

import (
	"context"
	"errors"
	"time"

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

const admissionCols = `id, patient_id, bed_number, admission_date, discharge_date, staff_id, created_at, updated_at`
const statusCols = `id, admission_id, status, notes, timestamp, staff_id, created_at`

// -- Admissions --

func (r *repoPG) CreateAdmission(ctx context.Context, a *Admission) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO icu_admissions (id, patient_id, bed_number, admission_date, discharge_date, staff_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.BedNumber, a.AdmissionDate, a.DischargeDate, a.StaffID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return scanAdmission(r.conn(ctx).QueryRow(ctx, `SELECT `+admissionCols+` FROM icu_admissions WHERE id = $1`, id))
}

func (r *repoPG) UpdateAdmission(ctx context.Context, a *Admission) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE icu_admissions SET
			patient_id=$2, bed_number=$3, admission_date=$4, discharge_date=$5, staff_id=$6,
			updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.PatientID, a.BedNumber, a.AdmissionDate, a.DischargeDate, a.StaffID,
	)
	return err
}

func (r *repoPG) DeleteAdmission(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM icu_admissions WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListAdmissions(ctx context.Context, limit, offset int) ([]*Admission, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM icu_admissions`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+admissionCols+` FROM icu_admissions ORDER BY admission_date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	admissions, err := collectAdmissions(rows)
	return admissions, total, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Admission, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+admissionCols+` FROM icu_admissions WHERE patient_id = $1 ORDER BY admission_date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAdmissions(rows)
}

func (r *repoPG) ActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error) {
	return scanAdmission(r.conn(ctx).QueryRow(ctx, `
		SELECT `+admissionCols+` FROM icu_admissions
		WHERE patient_id = $1 AND discharge_date IS NULL
		ORDER BY admission_date DESC LIMIT 1`, patientID))
}

// CurrentAdmissions returns every occupied bed with the latest status update
// for each, newest admissions first.
func (r *repoPG) CurrentAdmissions(ctx context.Context) ([]*AdmissionWithStatus, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.patient_id, a.bed_number, a.admission_date, a.discharge_date, a.staff_id, a.created_at, a.updated_at,
		       s.id, s.admission_id, s.status, s.notes, s.timestamp, s.staff_id, s.created_at
		FROM icu_admissions a
		LEFT JOIN LATERAL (
			SELECT `+statusCols+` FROM status_updates
			WHERE admission_id = a.id
			ORDER BY timestamp DESC LIMIT 1
		) s ON TRUE
		WHERE a.discharge_date IS NULL
		ORDER BY a.admission_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*AdmissionWithStatus
	for rows.Next() {
		var a Admission
		var sID, sAdmissionID, sStaffID *uuid.UUID
		var sStatus, sNotes *string
		var sTimestamp, sCreatedAt *time.Time
		err := rows.Scan(
			&a.ID, &a.PatientID, &a.BedNumber, &a.AdmissionDate, &a.DischargeDate, &a.StaffID, &a.CreatedAt, &a.UpdatedAt,
			&sID, &sAdmissionID, &sStatus, &sNotes, &sTimestamp, &sStaffID, &sCreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entry := &AdmissionWithStatus{Admission: &a}
		if sID != nil {
			entry.LatestStatus = &StatusUpdate{
				ID:          *sID,
				AdmissionID: *sAdmissionID,
				Status:      *sStatus,
				Notes:       sNotes,
				Timestamp:   *sTimestamp,
				StaffID:     *sStaffID,
				CreatedAt:   *sCreatedAt,
			}
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *repoPG) ActiveByStaff(ctx context.Context, staffID uuid.UUID) ([]*Admission, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+admissionCols+` FROM icu_admissions
		WHERE staff_id = $1 AND discharge_date IS NULL
		ORDER BY admission_date DESC`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAdmissions(rows)
}

// -- Status updates --

func (r *repoPG) CreateStatusUpdate(ctx context.Context, su *StatusUpdate) error {
	su.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO status_updates (id, admission_id, status, notes, timestamp, staff_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		su.ID, su.AdmissionID, su.Status, su.Notes, su.Timestamp, su.StaffID,
	).Scan(&su.CreatedAt)
}

func (r *repoPG) GetStatusUpdate(ctx context.Context, id uuid.UUID) (*StatusUpdate, error) {
	return scanStatus(r.conn(ctx).QueryRow(ctx, `SELECT `+statusCols+` FROM status_updates WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatusUpdate(ctx context.Context, su *StatusUpdate) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE status_updates SET status=$2, notes=$3, timestamp=$4 WHERE id = $1`,
		su.ID, su.Status, su.Notes, su.Timestamp,
	)
	return err
}

func (r *repoPG) DeleteStatusUpdate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM status_updates WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListStatusUpdates(ctx context.Context, limit, offset int) ([]*StatusUpdate, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM status_updates`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+statusCols+` FROM status_updates ORDER BY timestamp DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	updates, err := collectStatuses(rows)
	return updates, total, err
}

func (r *repoPG) ListByAdmission(ctx context.Context, admissionID uuid.UUID) ([]*StatusUpdate, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+statusCols+` FROM status_updates WHERE admission_id = $1 ORDER BY timestamp DESC`, admissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStatuses(rows)
}

func (r *repoPG) LatestByAdmission(ctx context.Context, admissionID uuid.UUID) (*StatusUpdate, error) {
	return scanStatus(r.conn(ctx).QueryRow(ctx, `
		SELECT `+statusCols+` FROM status_updates
		WHERE admission_id = $1 ORDER BY timestamp DESC LIMIT 1`, admissionID))
}

func (r *repoPG) StatusCounts(ctx context.Context, from, to *time.Time) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT status, COUNT(*) FROM status_updates
		WHERE ($1::timestamptz IS NULL OR timestamp >= $1)
		  AND ($2::timestamptz IS NULL OR timestamp <= $2)
		GROUP BY status`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ErrNotFound reports whether err is a no-rows result.
func ErrNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.PatientID, &a.BedNumber, &a.AdmissionDate, &a.DischargeDate, &a.StaffID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAdmissions(rows pgx.Rows) ([]*Admission, error) {
	var admissions []*Admission
	for rows.Next() {
		var a Admission
		if err := rows.Scan(&a.ID, &a.PatientID, &a.BedNumber, &a.AdmissionDate, &a.DischargeDate, &a.StaffID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		admissions = append(admissions, &a)
	}
	return admissions, rows.Err()
}

func scanStatus(row pgx.Row) (*StatusUpdate, error) {
	var su StatusUpdate
	err := row.Scan(&su.ID, &su.AdmissionID, &su.Status, &su.Notes, &su.Timestamp, &su.StaffID, &su.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &su, nil
}

func collectStatuses(rows pgx.Rows) ([]*StatusUpdate, error) {
	var updates []*StatusUpdate
	for rows.Next() {
		var su StatusUpdate
		if err := rows.Scan(&su.ID, &su.AdmissionID, &su.Status, &su.Notes, &su.Timestamp, &su.StaffID, &su.CreatedAt); err != nil {
			return nil, err
		}
		updates = append(updates, &su)
	}
	return updates, rows.Err()
}
