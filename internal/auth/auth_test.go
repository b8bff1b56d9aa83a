package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestService() *Service {
	return NewService(NewMemoryUsers(), Config{Secret: "test-secret", TTL: time.Hour, BcryptCost: bcrypt.MinCost}, nil)
}

func TestSignUpSignInSignOut(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	var events []Event
	unsubscribe := s.Subscribe(func(e Event) { events = append(events, e) })

	sess, err := s.SignUp(ctx, " Ana@Example.com ", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Email != "ana@example.com" || sess.Token == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	id, err := s.Authenticate(sess.Token)
	if err != nil || id.UserID != sess.UserID {
		t.Fatalf("authenticate: %+v %v", id, err)
	}

	if _, err := s.SignIn(ctx, "ana@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.SignIn(ctx, "nobody@example.com", "whatever1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
	second, err := s.SignIn(ctx, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SignOut(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Authenticate(sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("revoked token accepted: %v", err)
	}
	if _, err := s.Authenticate(second.Token); err != nil {
		t.Fatalf("other session should stay valid: %v", err)
	}

	want := []EventKind{SignedUp, SignedIn, SignedOut}
	if len(events) != len(want) {
		t.Fatalf("events = %+v", events)
	}
	for i, k := range want {
		if events[i].Kind != k || events[i].UserID != sess.UserID {
			t.Fatalf("event %d = %+v", i, events[i])
		}
	}

	unsubscribe()
	s.SignOut(ctx, second.Token)
	if len(events) != len(want) {
		t.Fatal("unsubscribed callback still invoked")
	}
}

// revocationUsers is a user store that also keeps revocations, like the
// sqlite repository does.
type revocationUsers struct {
	*MemoryUsers
	revoked map[string]time.Time
	fail    error
}

func (r *revocationUsers) RevokeSession(_ context.Context, id string, expiresAt time.Time) error {
	if r.fail != nil {
		return r.fail
	}
	r.revoked[id] = expiresAt
	return nil
}

func (r *revocationUsers) ActiveRevocations(_ context.Context, now time.Time) (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	for id, exp := range r.revoked {
		if exp.After(now) {
			out[id] = exp
		}
	}
	return out, nil
}

func TestRevocationsAreNeverEvictedEarly(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	sess, err := s.SignUp(ctx, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SignOut(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}

	exp := s.now().Add(time.Hour)
	for i := 0; i < 150_000; i++ {
		s.revoked.add(fmt.Sprintf("other-%d", i), exp)
	}
	if _, err := s.Authenticate(sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("signed-out token accepted after many revocations: %v", err)
	}

	if n := s.Revoked().CleanExpired(); n != 0 {
		t.Fatalf("sweep removed %d live revocations", n)
	}
	if got := s.revoked.size(); got != 150_001 {
		t.Fatalf("revocations = %d, want 150001", got)
	}

	later := s.now().Add(2 * time.Hour)
	s.now = func() time.Time { return later }
	if n := s.Revoked().CleanExpired(); n != 150_001 {
		t.Fatalf("sweep removed %d, want 150001", n)
	}
}

func TestRevocationsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	users := &revocationUsers{MemoryUsers: NewMemoryUsers(), revoked: make(map[string]time.Time)}
	cfg := Config{Secret: "test-secret", TTL: time.Hour, BcryptCost: bcrypt.MinCost}

	first := NewService(users, cfg, nil)
	sess, err := first.SignUp(ctx, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if err := first.SignOut(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}

	restarted := NewService(users, cfg, nil)
	n, err := restarted.LoadRevocations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("restored %d revocations, want 1", n)
	}
	if _, err := restarted.Authenticate(sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("signed-out token accepted after restart: %v", err)
	}

	users.fail = errors.New("disk full")
	other, err := restarted.SignIn(ctx, "ana@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if err := restarted.SignOut(ctx, other.Token); err == nil {
		t.Fatal("sign-out should fail when the revocation is not stored")
	}
	if _, err := restarted.Authenticate(other.Token); err != nil {
		t.Fatalf("failed sign-out should leave the token usable: %v", err)
	}

	if n, err := newTestService().LoadRevocations(ctx); err != nil || n != 0 {
		t.Fatalf("store without revocations: %d, %v", n, err)
	}
}

func TestSignUpValidation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	cases := []struct {
		email, password string
		want            error
	}{
		{"not-an-email", "longenough", ErrInvalidEmail},
		{"a@b.co", "short", ErrWeakPassword},
	}
	for _, tc := range cases {
		if _, err := s.SignUp(ctx, tc.email, tc.password); !errors.Is(err, tc.want) {
			t.Errorf("SignUp(%q) = %v, want %v", tc.email, err, tc.want)
		}
	}

	if _, err := s.SignUp(ctx, "dup@example.com", "password1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SignUp(ctx, "DUP@example.com", "password2"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	s := newTestService()
	sess, _ := s.SignUp(context.Background(), "x@example.com", "password1")

	other := NewService(NewMemoryUsers(), Config{Secret: "other", BcryptCost: bcrypt.MinCost}, nil)
	if _, err := other.Authenticate(sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign secret accepted: %v", err)
	}
	if _, err := s.Authenticate("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage accepted: %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Authenticate(sess.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc": {"abc", true},
		"bearer abc": {"abc", true},
		"Basic abc":  {"", false},
		"Bearer ":    {"", false},
		"":           {"", false},
	}
	for in, want := range cases {
		tok, ok := BearerToken(in)
		if tok != want.token || ok != want.ok {
			t.Errorf("BearerToken(%q) = %q %v", in, tok, ok)
		}
	}
}
