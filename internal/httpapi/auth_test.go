package httpapi

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/store"
)

type userStoreStub struct {
	users map[string]domain.UserAccount
	err   error
}

func (s *userStoreStub) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func stubWithUser(t *testing.T, user domain.UserAccount, password string) *userStoreStub {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	user.Password = string(hash)
	return &userStoreStub{users: map[string]domain.UserAccount{user.Username: user}}
}

func TestLoginIssuesTokenWithRoleAndStore(t *testing.T) {
	users := stubWithUser(t, domain.UserAccount{Username: "dina", Role: domain.RoleInventory, StoreID: "store-9", Active: true}, "s3cret-pass")
	auth := NewAuthManager("test-secret-key-with-enough-length!", time.Hour, users)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "  DINA ", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.Role != domain.RoleInventory || resp.StoreID != "store-9" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	want := domain.Actor{Username: "dina", Role: domain.RoleInventory, StoreID: "store-9"}
	if actor != want {
		t.Fatalf("expected actor %+v, got %+v", want, actor)
	}
}

func TestLoginRejections(t *testing.T) {
	active := stubWithUser(t, domain.UserAccount{Username: "dina", Role: domain.RoleInventory, StoreID: "store-9", Active: true}, "s3cret-pass")
	inactive := stubWithUser(t, domain.UserAccount{Username: "dina", Role: domain.RoleInventory, StoreID: "store-9"}, "s3cret-pass")
	broken := &userStoreStub{err: errors.New("connection refused")}

	cases := []struct {
		name     string
		users    UserStore
		username string
		password string
		want     error
	}{
		{"wrong password", active, "dina", "nope", errInvalidCredentials},
		{"unknown user", active, "ghost", "s3cret-pass", errInvalidCredentials},
		{"blank password", active, "dina", "", errInvalidCredentials},
		{"inactive account", inactive, "dina", "s3cret-pass", errInactiveAccount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := NewAuthManager("test-secret-key-with-enough-length!", time.Hour, tc.users)
			_, err := auth.Login(context.Background(), domain.LoginRequest{Username: tc.username, Password: tc.password})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	auth := NewAuthManager("test-secret-key-with-enough-length!", time.Hour, broken)
	_, err := auth.Login(context.Background(), domain.LoginRequest{Username: "dina", Password: "s3cret-pass"})
	if err == nil || errors.Is(err, errInvalidCredentials) {
		t.Fatalf("expected store error to surface, got %v", err)
	}
}

func TestParseTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	users := stubWithUser(t, domain.UserAccount{Username: "dina", Role: domain.RoleAdmin, StoreID: "warehouse", Active: true}, "s3cret-pass")
	auth := NewAuthManager("test-secret-key-with-enough-length!", time.Hour, users)
	other := NewAuthManager("another-secret-key-with-enough-len", time.Hour, users)

	resp, err := other.Login(context.Background(), domain.LoginRequest{Username: "dina", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}

	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	resp, err = auth.Login(context.Background(), domain.LoginRequest{Username: "dina", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	auth := NewAuthManager("test-secret-key-with-enough-length!", time.Hour, &userStoreStub{})
	token, err := auth.sign(domain.Actor{Username: "dina", Role: "cashier"}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil || !strings.Contains(err.Error(), "role") {
		t.Fatalf("expected role rejection, got %v", err)
	}

	none := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.MapClaims{"sub": "dina", "role": "admin"})
	unsigned, err := none.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := auth.ParseToken(unsigned); err == nil {
		t.Fatalf("expected unsigned token to be rejected")
	}
}

func TestAuthenticateReloadsTheAccount(t *testing.T) {
	users := stubWithUser(t, domain.UserAccount{Username: "dina", Role: domain.RoleAdmin, StoreID: "warehouse", Active: true}, "s3cret-pass")
	auth := NewAuthManager("test-secret-key-with-enough-length!", time.Hour, users)
	ctx := context.Background()

	resp, err := auth.Login(ctx, domain.LoginRequest{Username: "dina", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	demoted := users.users["dina"]
	demoted.Role = domain.RoleMarketing
	demoted.StoreID = "store-1"
	users.users["dina"] = demoted
	actor, err := auth.Authenticate(ctx, resp.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if actor.Role != domain.RoleMarketing || actor.StoreID != "store-1" {
		t.Fatalf("expected current role and store, got %+v", actor)
	}

	demoted.Active = false
	users.users["dina"] = demoted
	if _, err := auth.Authenticate(ctx, resp.AccessToken); !errors.Is(err, errInactiveAccount) {
		t.Fatalf("expected inactive rejection, got %v", err)
	}

	delete(users.users, "dina")
	if _, err := auth.Authenticate(ctx, resp.AccessToken); !errors.Is(err, errUnknownAccount) {
		t.Fatalf("expected deleted account rejection, got %v", err)
	}

	users.err = errors.New("db down")
	if _, err := auth.Authenticate(ctx, resp.AccessToken); !errors.Is(err, errUserLookup) {
		t.Fatalf("expected lookup failure, got %v", err)
	}
}
