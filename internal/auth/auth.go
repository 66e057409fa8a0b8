// internal/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"infradash/internal/database"
)

// DefaultCost matches the cost used for existing installations.
const DefaultCost = 12

var (
	ErrSetupComplete      = errors.New("setup already completed")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserInfo is the public view of a user.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Service struct {
	users *database.Collection[database.User, *database.User]
	cost  int

	// setupMu closes the count-then-create window within this process.
	setupMu sync.Mutex
}

func NewService(users *database.Collection[database.User, *database.User], cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Service{users: users, cost: cost}
}

// NeedsSetup reports whether no user exists yet.
func (s *Service) NeedsSetup(ctx context.Context) (bool, error) {
	n, err := s.users.Count(ctx, nil)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Setup creates the initial admin user. It fails once any user exists.
func (s *Service) Setup(ctx context.Context, username, password string) (UserInfo, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return UserInfo{}, ErrMissingCredentials
	}

	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	needs, err := s.NeedsSetup(ctx)
	if err != nil {
		return UserInfo{}, err
	}
	if !needs {
		return UserInfo{}, ErrSetupComplete
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return UserInfo{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, database.User{Username: username, Password: string(hash)})
	if err != nil {
		return UserInfo{}, err
	}

	logrus.WithField("username", user.Username).Info("Admin user created")
	return UserInfo{ID: user.ID, Username: user.Username}, nil
}

// Authenticate checks a username and password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (UserInfo, error) {
	user, err := s.users.FindUnique(ctx, database.Where{database.Eq("username", username)})
	if err != nil {
		return UserInfo{}, err
	}
	if user == nil {
		return UserInfo{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return UserInfo{}, ErrInvalidCredentials
	}
	return UserInfo{ID: user.ID, Username: user.Username}, nil
}

// ChangePassword re-hashes the password of an existing user.
func (s *Service) ChangePassword(ctx context.Context, username, password string) error {
	if password == "" {
		return ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	pw := string(hash)
	_, err = s.users.Update(ctx, database.Where{database.Eq("username", username)}, database.UserPatch{Password: &pw})
	return err
}
