package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestService_RegisterAndLogin(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	req := RegisterRequest{
		Email:    "ops@example.com",
		Password: "supersafe",
		FullName: "Olive Operator",
	}

	ctx := context.Background()
	op, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("register: unexpected error: %v", err)
	}
	if op.Email != req.Email {
		t.Fatalf("expected email %q got %q", req.Email, op.Email)
	}
	if op.Role != RoleOperator {
		t.Fatalf("register: expected default role %s got %s", RoleOperator, op.Role)
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		t.Fatalf("login: unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login: expected token, got empty string")
	}
	if resp.Operator.ID != op.ID {
		t.Fatalf("login: expected operator id %q got %q", op.ID, resp.Operator.ID)
	}

	tokenID, tokenRole, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify: unexpected error: %v", err)
	}
	if tokenID != op.ID {
		t.Fatalf("verify: expected id %q got %q", op.ID, tokenID)
	}
	if tokenRole != RoleOperator {
		t.Fatalf("verify: expected role %s got %s", RoleOperator, tokenRole)
	}
}

func TestService_RegisterWeakPassword(t *testing.T) {
	svc := NewService(newFakeRepository(), "test-secret")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "ops@example.com",
		Password: "short",
		FullName: "Olive Operator",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestService_LoginWrongPassword(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterRequest{
		Email:    "ops@example.com",
		Password: "supersafe",
		FullName: "Olive Operator",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, LoginRequest{Email: "ops@example.com", Password: "wrong-password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "supersafe"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestService_VerifyTokenWrongSecret(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterRequest{
		Email:    "ops@example.com",
		Password: "supersafe",
		FullName: "Olive Operator",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	resp, err := svc.Login(ctx, LoginRequest{Email: "ops@example.com", Password: "supersafe"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := NewService(repo, "different-secret")
	if _, _, err := other.VerifyToken(resp.Token); err == nil {
		t.Fatal("expected verification to fail with a different secret")
	}
}

type fakeRepository struct {
	byEmail map[string]Operator
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{byEmail: make(map[string]Operator)}
}

func (f *fakeRepository) CreateOperator(_ context.Context, params CreateOperatorParams) (Operator, error) {
	if _, ok := f.byEmail[params.Email]; ok {
		return Operator{}, ErrDuplicateEmail
	}
	op := Operator{
		ID:           uuid.NewString(),
		Email:        params.Email,
		FullName:     params.FullName,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
	}
	f.byEmail[params.Email] = op
	return op, nil
}

func (f *fakeRepository) GetOperatorByEmail(_ context.Context, email string) (Operator, error) {
	op, ok := f.byEmail[email]
	if !ok {
		return Operator{}, fmt.Errorf("%w: %s", ErrOperatorNotFound, email)
	}
	return op, nil
}
