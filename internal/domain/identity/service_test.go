package identity

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clearia/clearia/internal/platform/apperr"
	"github.com/clearia/clearia/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	users     map[uuid.UUID]*User
	hospitals map[uuid.UUID]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:     make(map[uuid.UUID]*User),
		hospitals: make(map[uuid.UUID]bool),
	}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.users, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		result = append(result, u)
	}
	return result, len(result), nil
}

func (m *mockRepo) Latest(_ context.Context) (*User, error) {
	var result []*User
	for _, u := range m.users {
		result = append(result, u)
	}
	if len(result) == 0 {
		return nil, pgx.ErrNoRows
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result[0], nil
}

func (m *mockRepo) HospitalExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.hospitals[id], nil
}

// -- Tests --

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func validInput() CreateUserInput {
	return CreateUserInput{
		Name:     "Grace Hopper",
		Email:    "grace@hospital.test",
		Username: "grace",
		Password: "secret1",
		Role:     auth.RoleNurse,
	}
}

func TestCreateUser(t *testing.T) {
	svc, _ := newTestService()

	u, err := svc.CreateUser(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret1" {
		t.Error("expected password to be hashed")
	}
	if !auth.ComparePassword(u.PasswordHash, "secret1") {
		t.Error("hash should verify against original password")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	svc.CreateUser(context.Background(), validInput())

	in := validInput()
	in.Username = "other"
	_, err := svc.CreateUser(context.Background(), in)
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if apperr.Message(err) != "email already exists" {
		t.Errorf("expected email conflict message, got %q", apperr.Message(err))
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	svc, _ := newTestService()
	svc.CreateUser(context.Background(), validInput())

	in := validInput()
	in.Email = "other@hospital.test"
	_, err := svc.CreateUser(context.Background(), in)
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if apperr.Message(err) != "username already exists" {
		t.Errorf("expected username conflict message, got %q", apperr.Message(err))
	}
}

func TestCreateUser_UnknownHospital(t *testing.T) {
	svc, _ := newTestService()

	hid := uuid.New()
	in := validInput()
	in.HospitalID = &hid
	_, err := svc.CreateUser(context.Background(), in)
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCreateUser_KnownHospital(t *testing.T) {
	svc, repo := newTestService()

	hid := uuid.New()
	repo.hospitals[hid] = true
	in := validInput()
	in.HospitalID = &hid
	u, err := svc.CreateUser(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.HospitalID == nil || *u.HospitalID != hid {
		t.Error("expected hospital id set")
	}
}

func TestCreateUser_InvalidRole(t *testing.T) {
	svc, _ := newTestService()

	in := validInput()
	in.Role = "SURGEON"
	_, err := svc.CreateUser(context.Background(), in)
	if apperr.KindOf(err) != apperr.Validation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreateUser_ShortPassword(t *testing.T) {
	svc, _ := newTestService()

	in := validInput()
	in.Password = "abc"
	_, err := svc.CreateUser(context.Background(), in)
	if apperr.KindOf(err) != apperr.Validation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreateUser_NormalizesEmail(t *testing.T) {
	svc, _ := newTestService()

	in := validInput()
	in.Email = "  Grace@Hospital.Test "
	u, err := svc.CreateUser(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "grace@hospital.test" {
		t.Errorf("expected normalized email, got %q", u.Email)
	}
}

func TestVerifyCredentials(t *testing.T) {
	svc, _ := newTestService()
	svc.CreateUser(context.Background(), validInput())

	u, err := svc.VerifyCredentials(context.Background(), "grace@hospital.test", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Username != "grace" {
		t.Errorf("unexpected user %q", u.Username)
	}
}

func TestVerifyCredentials_SameErrorForUnknownAndWrong(t *testing.T) {
	svc, _ := newTestService()
	svc.CreateUser(context.Background(), validInput())

	_, errUnknown := svc.VerifyCredentials(context.Background(), "nobody@hospital.test", "secret1")
	_, errWrong := svc.VerifyCredentials(context.Background(), "grace@hospital.test", "wrong")

	if apperr.KindOf(errUnknown) != apperr.Unauthenticated || apperr.KindOf(errWrong) != apperr.Unauthenticated {
		t.Fatalf("expected unauthenticated for both, got %v / %v", errUnknown, errWrong)
	}
	if apperr.Message(errUnknown) != apperr.Message(errWrong) {
		t.Error("unknown email and wrong password must be indistinguishable")
	}
}

func TestUpdateUser_Partial(t *testing.T) {
	svc, _ := newTestService()
	u, _ := svc.CreateUser(context.Background(), validInput())

	name := "Grace Brewster Hopper"
	updated, err := svc.UpdateUser(context.Background(), u.ID, UpdateUserInput{Name: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != name {
		t.Errorf("expected updated name, got %q", updated.Name)
	}
	if updated.Email != "grace@hospital.test" {
		t.Error("untouched fields must survive a partial update")
	}
}

func TestUpdateUser_EmailConflict(t *testing.T) {
	svc, _ := newTestService()
	svc.CreateUser(context.Background(), validInput())

	in := validInput()
	in.Email = "second@hospital.test"
	in.Username = "second"
	u2, _ := svc.CreateUser(context.Background(), in)

	email := "grace@hospital.test"
	_, err := svc.UpdateUser(context.Background(), u2.ID, UpdateUserInput{Email: &email})
	if apperr.KindOf(err) != apperr.Conflict {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	svc, _ := newTestService()

	name := "x"
	_, err := svc.UpdateUser(context.Background(), uuid.New(), UpdateUserInput{Name: &name})
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	svc, _ := newTestService()
	u, _ := svc.CreateUser(context.Background(), validInput())

	if err := svc.DeleteUser(context.Background(), u.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.GetUser(context.Background(), u.ID)
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestGetLatestUser(t *testing.T) {
	svc, repo := newTestService()

	first, _ := svc.CreateUser(context.Background(), validInput())
	repo.users[first.ID].CreatedAt = time.Now().Add(-time.Hour)

	in := validInput()
	in.Email = "late@hospital.test"
	in.Username = "late"
	second, _ := svc.CreateUser(context.Background(), in)

	latest, err := svc.GetLatestUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("expected most recent user, got %s", latest.Username)
	}
}

func TestGetLatestUser_Empty(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GetLatestUser(context.Background())
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("expected not found, got %v", err)
	}
}
