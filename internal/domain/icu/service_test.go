package icu

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clearia/clearia/internal/platform/apperr"
)

// -- Mock Repository --

type mockRepo struct {
	admissions map[uuid.UUID]*Admission
	statuses   map[uuid.UUID]*StatusUpdate
	latestErr  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		admissions: make(map[uuid.UUID]*Admission),
		statuses:   make(map[uuid.UUID]*StatusUpdate),
	}
}

func (m *mockRepo) CreateAdmission(_ context.Context, a *Admission) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.admissions[a.ID] = a
	return nil
}

func (m *mockRepo) GetAdmission(_ context.Context, id uuid.UUID) (*Admission, error) {
	a, ok := m.admissions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockRepo) UpdateAdmission(_ context.Context, a *Admission) error {
	m.admissions[a.ID] = a
	return nil
}

func (m *mockRepo) DeleteAdmission(_ context.Context, id uuid.UUID) error {
	delete(m.admissions, id)
	return nil
}

func (m *mockRepo) ListAdmissions(_ context.Context, limit, offset int) ([]*Admission, int, error) {
	var result []*Admission
	for _, a := range m.admissions {
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Admission, error) {
	var result []*Admission
	for _, a := range m.admissions {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockRepo) ActiveByPatient(_ context.Context, patientID uuid.UUID) (*Admission, error) {
	var candidates []*Admission
	for _, a := range m.admissions {
		if a.PatientID == patientID && a.DischargeDate == nil {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil, pgx.ErrNoRows
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].AdmissionDate.After(candidates[j].AdmissionDate)
	})
	return candidates[0], nil
}

func (m *mockRepo) CurrentAdmissions(ctx context.Context) ([]*AdmissionWithStatus, error) {
	var result []*AdmissionWithStatus
	for _, a := range m.admissions {
		if a.DischargeDate != nil {
			continue
		}
		latest, err := m.LatestByAdmission(ctx, a.ID)
		if err != nil {
			latest = nil
		}
		result = append(result, &AdmissionWithStatus{Admission: a, LatestStatus: latest})
	}
	return result, nil
}

func (m *mockRepo) ActiveByStaff(_ context.Context, staffID uuid.UUID) ([]*Admission, error) {
	var result []*Admission
	for _, a := range m.admissions {
		if a.StaffID == staffID && a.DischargeDate == nil {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockRepo) CreateStatusUpdate(_ context.Context, su *StatusUpdate) error {
	su.ID = uuid.New()
	su.CreatedAt = time.Now()
	m.statuses[su.ID] = su
	return nil
}

func (m *mockRepo) GetStatusUpdate(_ context.Context, id uuid.UUID) (*StatusUpdate, error) {
	su, ok := m.statuses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return su, nil
}

func (m *mockRepo) UpdateStatusUpdate(_ context.Context, su *StatusUpdate) error {
	m.statuses[su.ID] = su
	return nil
}

func (m *mockRepo) DeleteStatusUpdate(_ context.Context, id uuid.UUID) error {
	delete(m.statuses, id)
	return nil
}

func (m *mockRepo) ListStatusUpdates(_ context.Context, limit, offset int) ([]*StatusUpdate, int, error) {
	var result []*StatusUpdate
	for _, su := range m.statuses {
		result = append(result, su)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByAdmission(_ context.Context, admissionID uuid.UUID) ([]*StatusUpdate, error) {
	var result []*StatusUpdate
	for _, su := range m.statuses {
		if su.AdmissionID == admissionID {
			result = append(result, su)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.After(result[j].Timestamp) })
	return result, nil
}

func (m *mockRepo) LatestByAdmission(ctx context.Context, admissionID uuid.UUID) (*StatusUpdate, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	updates, _ := m.ListByAdmission(ctx, admissionID)
	if len(updates) == 0 {
		return nil, pgx.ErrNoRows
	}
	return updates[0], nil
}

func (m *mockRepo) StatusCounts(_ context.Context, from, to *time.Time) (map[string]int, error) {
	counts := make(map[string]int)
	for _, su := range m.statuses {
		if from != nil && su.Timestamp.Before(*from) {
			continue
		}
		if to != nil && su.Timestamp.After(*to) {
			continue
		}
		counts[su.Status]++
	}
	return counts, nil
}

// -- Tests --

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func admit(t *testing.T, svc *Service) *Admission {
	t.Helper()
	a := &Admission{PatientID: uuid.New(), StaffID: uuid.New(), BedNumber: 3}
	if err := svc.CreateAdmission(context.Background(), a); err != nil {
		t.Fatalf("admit: %v", err)
	}
	return a
}

func TestCreateAdmission(t *testing.T) {
	svc, _ := newTestService()

	a := admit(t, svc)
	if a.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if a.AdmissionDate.IsZero() {
		t.Error("expected admission date defaulted to now")
	}
	if a.DischargeDate != nil {
		t.Error("new admission must be open")
	}
}

func TestCreateAdmission_Validation(t *testing.T) {
	svc, _ := newTestService()

	cases := []struct {
		name string
		a    *Admission
	}{
		{"missing patient", &Admission{StaffID: uuid.New(), BedNumber: 1}},
		{"missing staff", &Admission{PatientID: uuid.New(), BedNumber: 1}},
		{"zero bed", &Admission{PatientID: uuid.New(), StaffID: uuid.New()}},
		{"negative bed", &Admission{PatientID: uuid.New(), StaffID: uuid.New(), BedNumber: -2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.CreateAdmission(context.Background(), tc.a)
			if apperr.KindOf(err) != apperr.Validation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDischarge_DefaultsToNow(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	discharged, err := svc.Discharge(context.Background(), a.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if discharged.DischargeDate == nil {
		t.Fatal("expected discharge date set")
	}
	if discharged.DischargeDate.Before(discharged.AdmissionDate) {
		t.Error("discharge must not precede admission")
	}
}

func TestDischarge_SecondCallOverwrites(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	first := a.AdmissionDate.Add(time.Hour)
	if _, err := svc.Discharge(context.Background(), a.ID, &first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := a.AdmissionDate.Add(2 * time.Hour)
	discharged, err := svc.Discharge(context.Background(), a.ID, &second)
	if err != nil {
		t.Fatalf("second discharge should not fail: %v", err)
	}
	if !discharged.DischargeDate.Equal(second) {
		t.Errorf("expected discharge date overwritten, got %v", discharged.DischargeDate)
	}
}

func TestDischarge_BeforeAdmission(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	early := a.AdmissionDate.Add(-time.Hour)
	_, err := svc.Discharge(context.Background(), a.ID, &early)
	if apperr.KindOf(err) != apperr.Validation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDischarge_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Discharge(context.Background(), uuid.New(), nil)
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUpdateAdmission_Partial(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	bed := 7
	updated, err := svc.UpdateAdmission(context.Background(), a.ID, UpdateAdmissionInput{BedNumber: &bed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.BedNumber != 7 {
		t.Errorf("expected bed 7, got %d", updated.BedNumber)
	}
	if updated.PatientID != a.PatientID {
		t.Error("untouched fields must survive a partial update")
	}
}

func TestUpdateAdmission_DateAfterDischarge(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)
	svc.Discharge(context.Background(), a.ID, nil)

	late := time.Now().Add(24 * time.Hour)
	_, err := svc.UpdateAdmission(context.Background(), a.ID, UpdateAdmissionInput{AdmissionDate: &late})
	if apperr.KindOf(err) != apperr.Validation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCurrentAdmissions_ExcludesDischarged(t *testing.T) {
	svc, _ := newTestService()
	open := admit(t, svc)
	closed := admit(t, svc)
	svc.Discharge(context.Background(), closed.ID, nil)

	current, err := svc.CurrentAdmissions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(current) != 1 {
		t.Fatalf("expected 1 current admission, got %d", len(current))
	}
	if current[0].Admission.ID != open.ID {
		t.Error("expected the open admission")
	}
	if current[0].LatestStatus != nil {
		t.Error("expected nil latest status before any update")
	}
}

func TestActiveAdmissionsByStaff(t *testing.T) {
	svc, _ := newTestService()
	staffID := uuid.New()

	mine := &Admission{PatientID: uuid.New(), StaffID: staffID, BedNumber: 1}
	svc.CreateAdmission(context.Background(), mine)
	other := &Admission{PatientID: uuid.New(), StaffID: uuid.New(), BedNumber: 2}
	svc.CreateAdmission(context.Background(), other)
	closed := &Admission{PatientID: uuid.New(), StaffID: staffID, BedNumber: 3}
	svc.CreateAdmission(context.Background(), closed)
	svc.Discharge(context.Background(), closed.ID, nil)

	result, err := svc.ActiveAdmissionsByStaff(context.Background(), staffID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].ID != mine.ID {
		t.Errorf("expected only my open admission, got %d", len(result))
	}
}

func TestCreateStatusUpdate(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	su := &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusStable}
	if err := svc.CreateStatusUpdate(context.Background(), su); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if su.Timestamp.IsZero() {
		t.Error("expected timestamp defaulted to now")
	}
}

// Notes are optional; an update without them is stored with nil notes intact.
func TestCreateStatusUpdate_WithoutNotes(t *testing.T) {
	svc, repo := newTestService()
	a := admit(t, svc)

	su := &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusCritical}
	if err := svc.CreateStatusUpdate(context.Background(), su); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, ok := repo.statuses[su.ID]
	if !ok {
		t.Fatal("expected status update stored")
	}
	if stored.Notes != nil {
		t.Errorf("expected nil notes, got %v", stored.Notes)
	}
}

func TestCreateStatusUpdate_InvalidStatus(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	su := &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: "WOBBLY"}
	err := svc.CreateStatusUpdate(context.Background(), su)
	if apperr.KindOf(err) != apperr.Validation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreateStatusUpdate_UnknownAdmission(t *testing.T) {
	svc, _ := newTestService()

	su := &StatusUpdate{AdmissionID: uuid.New(), StaffID: uuid.New(), Status: StatusStable}
	err := svc.CreateStatusUpdate(context.Background(), su)
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCurrentStatus(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	older := &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusCritical,
		Timestamp: time.Now().Add(-time.Hour)}
	svc.CreateStatusUpdate(context.Background(), older)
	newer := &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusImproving,
		Timestamp: time.Now()}
	svc.CreateStatusUpdate(context.Background(), newer)

	result, err := svc.CurrentStatus(context.Background(), a.PatientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Admission == nil || result.Admission.ID != a.ID {
		t.Fatal("expected active admission")
	}
	if result.LatestStatus == nil || result.LatestStatus.Status != StatusImproving {
		t.Errorf("expected most recent status, got %+v", result.LatestStatus)
	}
	if result.Message != "" {
		t.Errorf("expected empty message, got %q", result.Message)
	}
}

func TestCurrentStatus_NoActiveAdmission(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.CurrentStatus(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("must not error for missing admission: %v", err)
	}
	if result.Admission != nil || result.LatestStatus != nil {
		t.Error("expected nil admission and status")
	}
	if result.Message == "" {
		t.Error("expected explanatory message")
	}
}

func TestCurrentStatus_NoStatusYet(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	result, err := svc.CurrentStatus(context.Background(), a.PatientID)
	if err != nil {
		t.Fatalf("must not error for missing status: %v", err)
	}
	if result.Admission == nil {
		t.Fatal("expected admission")
	}
	if result.LatestStatus != nil {
		t.Error("expected nil latest status")
	}
	if result.Message == "" {
		t.Error("expected explanatory message")
	}
}

func TestCurrentStatus_StorageFailurePropagates(t *testing.T) {
	svc, repo := newTestService()
	a := admit(t, svc)
	repo.latestErr = errors.New("connection reset by peer")

	_, err := svc.CurrentStatus(context.Background(), a.PatientID)
	if err == nil {
		t.Fatal("a failed status lookup must not read as clean data")
	}
}

func TestStatusCounts_AllKeysPresent(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	svc.CreateStatusUpdate(context.Background(), &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusCritical})
	svc.CreateStatusUpdate(context.Background(), &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusCritical})
	svc.CreateStatusUpdate(context.Background(), &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusStable})

	counts, err := svc.StatusCounts(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != len(PatientStatuses) {
		t.Fatalf("expected %d keys, got %d", len(PatientStatuses), len(counts))
	}
	if counts[StatusCritical] != 2 || counts[StatusStable] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if counts[StatusDeceased] != 0 {
		t.Error("zero statuses must still be present")
	}
	for _, status := range PatientStatuses {
		if _, ok := counts[status]; !ok {
			t.Errorf("missing key %s", status)
		}
	}
}

func TestStatusCounts_DateRange(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	old := time.Now().Add(-48 * time.Hour)
	svc.CreateStatusUpdate(context.Background(), &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusCritical, Timestamp: old})
	svc.CreateStatusUpdate(context.Background(), &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusStable})

	from := time.Now().Add(-time.Hour)
	counts, err := svc.StatusCounts(context.Background(), &from, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts[StatusCritical] != 0 || counts[StatusStable] != 1 {
		t.Errorf("expected window to exclude old update, got %v", counts)
	}
}

func TestUpdateStatusUpdate(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	su := &StatusUpdate{AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusCritical}
	svc.CreateStatusUpdate(context.Background(), su)

	status := StatusRecovered
	updated, err := svc.UpdateStatusUpdate(context.Background(), su.ID, UpdateStatusInput{Status: &status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusRecovered {
		t.Errorf("expected RECOVERED, got %s", updated.Status)
	}

	bogus := "BOGUS"
	_, err = svc.UpdateStatusUpdate(context.Background(), su.ID, UpdateStatusInput{Status: &bogus})
	if apperr.KindOf(err) != apperr.Validation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDeleteAdmission(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	if err := svc.DeleteAdmission(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.GetAdmission(context.Background(), a.ID)
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestListStatusUpdatesByAdmission_Descending(t *testing.T) {
	svc, _ := newTestService()
	a := admit(t, svc)

	for i := 0; i < 3; i++ {
		svc.CreateStatusUpdate(context.Background(), &StatusUpdate{
			AdmissionID: a.ID, StaffID: uuid.New(), Status: StatusStable,
			Timestamp: time.Now().Add(time.Duration(i) * time.Minute),
		})
	}

	updates, err := svc.ListStatusUpdatesByAdmission(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(updates))
	}
	for i := 1; i < len(updates); i++ {
		if updates[i].Timestamp.After(updates[i-1].Timestamp) {
			t.Error("expected newest first ordering")
		}
	}
}
