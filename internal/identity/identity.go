// Package identity implements the user lifecycle: sign-up, sign-in,
// sign-out, profile and password updates, account deletion, and the
// session that survives between them.
//
// The session is an explicit value owned by the Service instance —
// token plus a cached copy of the user — with defined init (sign-in /
// sign-up) and teardown (sign-out) rules. Nothing here is ambient or
// global; the HTTP layer authenticates per request with the same token
// format and never touches this session.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/agenda/internal/db/storage"
	"github.com/patric-chuzhbe/agenda/internal/models"
)

// ErrEmailInUse is returned by SignUp (and profile updates that change
// the email) when another user already holds the address, compared
// case-insensitively.
var ErrEmailInUse = errors.New("email already registered")

// ErrInvalidCredentials is returned whenever an email/password pair or
// a password confirmation does not match exactly.
var ErrInvalidCredentials = errors.New("invalid email or password")

type userKeeper interface {
	CreateUser(ctx context.Context, usr *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, usr *models.User) error
	DeleteUser(ctx context.Context, userID string) error
}

type tokenIssuer interface {
	BuildJWTString(userID string) (string, error)
	ParseUserID(token string) (string, error)
}

type session struct {
	token string
	user  *models.User
}

// Service is the identity store. It is safe for concurrent use.
type Service struct {
	db     userKeeper
	tokens tokenIssuer

	mu      sync.Mutex
	session session
}

func New(db userKeeper, tokens tokenIssuer) *Service {
	return &Service{
		db:     db,
		tokens: tokens,
	}
}

func cloneUser(usr *models.User) *models.User {
	cloned := *usr
	cloned.Contacts = append([]models.Contact(nil), usr.Contacts...)

	return &cloned
}

func (s *Service) establishSession(usr *models.User) (string, error) {
	token, err := s.tokens.BuildJWTString(usr.ID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.session = session{token: token, user: cloneUser(usr)}
	s.mu.Unlock()

	return token, nil
}

func (s *Service) clearSession() {
	s.mu.Lock()
	s.session = session{}
	s.mu.Unlock()
}

// refreshSessionUser updates the cached copy when the active session
// belongs to the given user.
func (s *Service) refreshSessionUser(usr *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.user != nil && s.session.user.ID == usr.ID {
		s.session.user = cloneUser(usr)
	}
}

// SignUp registers a new user and establishes a session for it. The
// email is stored lowercased; collisions are case-insensitive.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (*models.User, string, error) {
	_, err := s.db.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, "", ErrEmailInUse
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, "", err
	}

	usr := &models.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     strings.ToLower(email),
		Password:  password,
		CreatedAt: time.Now().Truncate(time.Second),
		Contacts:  []models.Contact{},
	}

	if err := s.db.CreateUser(ctx, usr); err != nil {
		return nil, "", err
	}

	token, err := s.establishSession(usr)
	if err != nil {
		return nil, "", err
	}

	return usr, token, nil
}

// SignIn requires a case-insensitive email match and verbatim password
// equality. On success it establishes the session and returns the user
// together with the session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, string, error) {
	usr, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if usr.Password != password {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.establishSession(usr)
	if err != nil {
		return nil, "", err
	}

	return usr, token, nil
}

// SignOut clears the session unconditionally; it is idempotent.
func (s *Service) SignOut() {
	s.clearSession()
}

// CurrentUser returns the cached session user when the session token
// is present and decodable. A missing or malformed session is treated
// as "not logged in", never as an error: the session is cleared and
// nil is returned.
func (s *Service) CurrentUser() *models.User {
	s.mu.Lock()
	token := s.session.token
	usr := s.session.user
	s.mu.Unlock()

	if token == "" || usr == nil {
		s.clearSession()
		return nil
	}

	if _, err := s.tokens.ParseUserID(token); err != nil {
		s.clearSession()
		return nil
	}

	return cloneUser(usr)
}

// DeleteAccount removes the user and every contact it owns. The
// password must match exactly; an unknown user id fails the same way a
// wrong password does.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	usr, err := s.db.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if usr.Password != password {
		return ErrInvalidCredentials
	}

	if err := s.db.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.clearSession()

	return nil
}

// UpdatePassword overwrites the stored password after verifying the
// current one verbatim.
func (s *Service) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	usr, err := s.db.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if usr.Password != currentPassword {
		return ErrInvalidCredentials
	}

	usr.Password = newPassword
	if err := s.db.UpdateUser(ctx, usr); err != nil {
		return err
	}

	s.refreshSessionUser(usr)

	return nil
}

// UpdateProfile merges the patch into the stored user. Identity,
// createdAt and the contact collection never change; an email change
// re-checks global uniqueness.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch models.UserPatch) (*models.User, error) {
	usr, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		usr.Name = *patch.Name
	}
	if patch.Email != nil && !strings.EqualFold(*patch.Email, usr.Email) {
		other, err := s.db.GetUserByEmail(ctx, *patch.Email)
		if err == nil && other.ID != userID {
			return nil, ErrEmailInUse
		}
		if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
			return nil, err
		}
		usr.Email = strings.ToLower(*patch.Email)
	}

	if err := s.db.UpdateUser(ctx, usr); err != nil {
		return nil, err
	}

	s.refreshSessionUser(usr)

	return usr, nil
}
