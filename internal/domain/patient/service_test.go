package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clearia/clearia/internal/domain/identity"
	"github.com/clearia/clearia/internal/platform/apperr"
	"github.com/clearia/clearia/internal/platform/auth"
)

// -- Mock Repositories --

type mockRepo struct {
	patients   map[uuid.UUID]*Patient
	active     map[uuid.UUID]uuid.UUID
	createErr  error
	txDepth    int
	rolledBack bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]*Patient),
		active:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if m.createErr != nil {
		return m.createErr
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) GetByMedicalID(_ context.Context, medicalID string) (*Patient, error) {
	for _, p := range m.patients {
		if p.MedicalID == medicalID {
			return p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockRepo) ActiveAdmissionID(_ context.Context, patientID uuid.UUID) (*uuid.UUID, error) {
	id, ok := m.active[patientID]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

type mockUserRepo struct {
	users map[uuid.UUID]*identity.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*identity.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *identity.User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) Update(_ context.Context, u *identity.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]*identity.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) Latest(_ context.Context) (*identity.User, error) {
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) HospitalExists(_ context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

// txTracker mimics the transaction boundary: when fn fails, writes made
// inside it are undone.
func newTestService() (*Service, *mockRepo, *mockUserRepo) {
	repo := newMockRepo()
	users := newMockUserRepo()
	tx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		userSnapshot := make(map[uuid.UUID]*identity.User, len(users.users))
		for k, v := range users.users {
			userSnapshot[k] = v
		}
		if err := fn(ctx); err != nil {
			users.users = userSnapshot
			repo.rolledBack = true
			return err
		}
		return nil
	}
	return NewService(repo, users, tx), repo, users
}

func validRegister() RegisterInput {
	return RegisterInput{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DateOfBirth: time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		MedicalID:   "MRN-1001",
		Email:       "ada@example.test",
		Password:    "secret1",
		Username:    "ada",
	}
}

func TestRegister(t *testing.T) {
	svc, _, users := newTestService()

	p, err := svc.Register(context.Background(), validRegister())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected patient id set")
	}
	if p.ID != p.UserID {
		t.Error("patient must share identity with its user account")
	}

	u, err := users.GetByID(context.Background(), p.UserID)
	if err != nil {
		t.Fatalf("expected linked user: %v", err)
	}
	if u.Role != auth.RolePatient {
		t.Errorf("expected PATIENT role, got %s", u.Role)
	}
	if u.PasswordHash == "secret1" {
		t.Error("expected password to be hashed")
	}
	if u.Name != "Ada Lovelace" {
		t.Errorf("unexpected account name %q", u.Name)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Register(context.Background(), validRegister())

	in := validRegister()
	in.Username = "ada2"
	in.MedicalID = "MRN-1002"
	_, err := svc.Register(context.Background(), in)
	if apperr.KindOf(err) != apperr.Conflict || apperr.Message(err) != "email already exists" {
		t.Errorf("expected email conflict, got %v", err)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Register(context.Background(), validRegister())

	in := validRegister()
	in.Email = "other@example.test"
	in.MedicalID = "MRN-1002"
	_, err := svc.Register(context.Background(), in)
	if apperr.KindOf(err) != apperr.Conflict || apperr.Message(err) != "username already exists" {
		t.Errorf("expected username conflict, got %v", err)
	}
}

func TestRegister_DuplicateMedicalID(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Register(context.Background(), validRegister())

	in := validRegister()
	in.Email = "other@example.test"
	in.Username = "ada2"
	_, err := svc.Register(context.Background(), in)
	if apperr.KindOf(err) != apperr.Conflict || apperr.Message(err) != "medical id already exists" {
		t.Errorf("expected medical id conflict, got %v", err)
	}
}

func TestRegister_NoOrphanedUserOnPatientFailure(t *testing.T) {
	svc, repo, users := newTestService()
	repo.createErr = errors.New("insert failed")

	_, err := svc.Register(context.Background(), validRegister())
	if err == nil {
		t.Fatal("expected error")
	}
	if !repo.rolledBack {
		t.Error("expected transaction rollback")
	}
	if len(users.users) != 0 {
		t.Errorf("user insert must not survive a failed patient insert, %d users left", len(users.users))
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	cases := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"short first name", func(in *RegisterInput) { in.FirstName = "A" }},
		{"short last name", func(in *RegisterInput) { in.LastName = "L" }},
		{"short username", func(in *RegisterInput) { in.Username = "ab" }},
		{"short password", func(in *RegisterInput) { in.Password = "12345" }},
		{"missing email", func(in *RegisterInput) { in.Email = "" }},
		{"missing medical id", func(in *RegisterInput) { in.MedicalID = "" }},
		{"future date of birth", func(in *RegisterInput) { in.DateOfBirth = time.Now().Add(48 * time.Hour) }},
		{"missing date of birth", func(in *RegisterInput) { in.DateOfBirth = time.Time{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validRegister()
			tc.mutate(&in)
			_, err := svc.Register(context.Background(), in)
			if apperr.KindOf(err) != apperr.Validation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetPatientByMedicalID(t *testing.T) {
	svc, _, _ := newTestService()
	created, _ := svc.Register(context.Background(), validRegister())

	p, err := svc.GetPatientByMedicalID(context.Background(), "MRN-1001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != created.ID {
		t.Error("expected matching patient")
	}

	_, err = svc.GetPatientByMedicalID(context.Background(), "MRN-9999")
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUpdatePatient_Partial(t *testing.T) {
	svc, _, _ := newTestService()
	created, _ := svc.Register(context.Background(), validRegister())

	blood := "O-"
	p, err := svc.UpdatePatient(context.Background(), created.ID, UpdateInput{BloodType: &blood})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BloodType == nil || *p.BloodType != "O-" {
		t.Error("expected blood type updated")
	}
	if p.MedicalID != "MRN-1001" {
		t.Error("untouched fields must survive a partial update")
	}
}

func TestUpdatePatient_MedicalIDConflict(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Register(context.Background(), validRegister())

	in := validRegister()
	in.Email = "b@example.test"
	in.Username = "bob"
	in.MedicalID = "MRN-2002"
	second, _ := svc.Register(context.Background(), in)

	taken := "MRN-1001"
	_, err := svc.UpdatePatient(context.Background(), second.ID, UpdateInput{MedicalID: &taken})
	if apperr.KindOf(err) != apperr.Conflict {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUpdatePatient_FutureDOB(t *testing.T) {
	svc, _, _ := newTestService()
	created, _ := svc.Register(context.Background(), validRegister())

	future := time.Now().Add(24 * time.Hour)
	_, err := svc.UpdatePatient(context.Background(), created.ID, UpdateInput{DateOfBirth: &future})
	if apperr.KindOf(err) != apperr.Validation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDeletePatient_RemovesAccount(t *testing.T) {
	svc, _, users := newTestService()
	created, _ := svc.Register(context.Background(), validRegister())

	if err := svc.DeletePatient(context.Background(), created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := users.GetByID(context.Background(), created.UserID); err == nil {
		t.Error("expected linked user removed")
	}
}

func TestActiveAdmissionID(t *testing.T) {
	svc, repo, _ := newTestService()
	created, _ := svc.Register(context.Background(), validRegister())

	id, err := svc.ActiveAdmissionID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != nil {
		t.Error("expected nil for patient with no active admission")
	}

	admission := uuid.New()
	repo.active[created.ID] = admission
	id, err = svc.ActiveAdmissionID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == nil || *id != admission {
		t.Error("expected active admission id")
	}
}

func TestActiveAdmissionID_UnknownPatient(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ActiveAdmissionID(context.Background(), uuid.New())
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("expected not found, got %v", err)
	}
}
