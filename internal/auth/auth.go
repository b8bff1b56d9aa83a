// Package auth issues and verifies bearer tokens for ledger owners.
//
// Passwords are stored as bcrypt hashes. Tokens are HS256 JWTs carrying the
// user id and a session id; signing out revokes the session id until the
// token would have expired anyway.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"financeflow/internal/cache"
	"financeflow/internal/log"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
)

const minPasswordLen = 8

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists accounts. GetUserByEmail returns ErrUserNotFound when
// no account matches; CreateUser returns ErrEmailTaken on duplicates.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// Identity is the authenticated owner behind a token.
type Identity struct {
	UserID    string
	Email     string
	SessionID string
	ExpiresAt time.Time
}

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EventKind string

const (
	SignedUp  EventKind = "signed_up"
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

// Event is delivered to subscribers whenever an identity changes state.
type Event struct {
	Kind   EventKind
	UserID string
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret     string
	TTL        time.Duration
	BcryptCost int
}

type Service struct {
	users   UserStore
	secret  []byte
	ttl     time.Duration
	cost    int
	now     func() time.Time
	revoked *revocations
	logger  *log.Logger

	subMu  sync.RWMutex
	subs   map[int]func(Event)
	nextID int
}

func NewService(users UserStore, cfg Config, logger *log.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = log.Discard()
	}
	s := &Service{
		users:  users,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		cost:   cfg.BcryptCost,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentAuth),
		subs:   make(map[int]func(Event)),
	}
	s.revoked = newRevocations(func() time.Time { return s.now() })
	return s
}

// Revoked exposes the revocation list so it can be swept periodically.
func (s *Service) Revoked() cache.Cleaner { return s.revoked }

// LoadRevocations restores persisted sign-outs and returns how many are
// still active. It is a no-op when the user store keeps none.
func (s *Service) LoadRevocations(ctx context.Context) (int, error) {
	rs, ok := s.users.(RevocationStore)
	if !ok {
		return 0, nil
	}
	ids, err := rs.ActiveRevocations(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("load revocations: %w", err)
	}
	for id, exp := range ids {
		s.revoked.add(id, exp)
	}
	return len(ids), nil
}

// Subscribe registers fn for identity changes and returns a function that
// removes it. Callbacks run synchronously on the caller's goroutine.
func (s *Service) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Service) emit(e Event) {
	s.subMu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}

func (s *Service) SignUp(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLen {
		return Session{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return Session{}, err
	}

	s.logger.InfoContext(ctx, "User signed up", log.FieldOwner, u.ID, log.FieldOperation, log.OpSignUp)
	s.emit(Event{Kind: SignedUp, UserID: u.ID})
	return s.issue(u)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Sign-in rejected", log.FieldOperation, log.OpSignIn)
		return Session{}, ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "User signed in", log.FieldOwner, u.ID, log.FieldOperation, log.OpSignIn)
	s.emit(Event{Kind: SignedIn, UserID: u.ID})
	return s.issue(u)
}

// SignOut revokes the token's session.
func (s *Service) SignOut(ctx context.Context, token string) error {
	id, err := s.Authenticate(token)
	if err != nil {
		return err
	}
	exp := id.ExpiresAt
	if exp.IsZero() {
		exp = s.now().Add(s.ttl)
	}
	if rs, ok := s.users.(RevocationStore); ok {
		if err := rs.RevokeSession(ctx, id.SessionID, exp); err != nil {
			return fmt.Errorf("persist revocation: %w", err)
		}
	}
	s.revoked.add(id.SessionID, exp)
	s.logger.InfoContext(ctx, "User signed out", log.FieldOwner, id.UserID, log.FieldOperation, log.OpSignOut)
	s.emit(Event{Kind: SignedOut, UserID: id.UserID})
	return nil
}

// Authenticate verifies token and returns its identity.
func (s *Service) Authenticate(token string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalidToken
	}
	if s.revoked.contains(claims.ID) {
		return Identity{}, ErrInvalidToken
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return Identity{UserID: claims.UserID, Email: claims.Email, SessionID: claims.ID, ExpiresAt: exp}, nil
}

func (s *Service) issue(u User) (Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: token, UserID: u.ID, Email: u.Email, ExpiresAt: exp.UTC()}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
