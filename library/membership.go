package library

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Membership owns user records. The borrowed set of each user is only
// written by the circulation engine.
type Membership struct {
	lib *Library
}

// NewMembership returns the membership view of lib.
func NewMembership(lib *Library) *Membership { return &Membership{lib: lib} }

// Register stores a new user with a hashed credential and an empty
// borrowed set.
func (m *Membership) Register(ctx context.Context, id, name, credential string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, fmt.Errorf("user id is required: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(credential) == "" {
		return User{}, fmt.Errorf("credential cannot be empty: %w", ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), m.lib.hashCost)
	if err != nil {
		return User{}, fmt.Errorf("hash credential: %w", err)
	}

	user := User{
		ID:             id,
		Name:           strings.TrimSpace(name),
		CredentialHash: string(hash),
		BorrowedBooks:  []string{},
	}
	err = m.lib.commit(ctx, "register", func(s *Snapshot) error {
		if s.userIndex(id) >= 0 {
			return fmt.Errorf("user %q: %w", id, ErrDuplicateKey)
		}
		s.Users = append(s.Users, user)
		return nil
	})
	if err != nil {
		return User{}, err
	}
	m.lib.log.WithField("user_id", id).Info("user registered")
	return redact(user), nil
}

// Authenticate reports whether credential matches the stored hash of id.
// Unknown users never authenticate.
func (m *Membership) Authenticate(id, credential string) bool {
	var hash string
	m.lib.view(func(s *Snapshot) {
		if i := s.userIndex(id); i >= 0 {
			hash = s.Users[i].CredentialHash
		}
	})
	if hash == "" {
		return false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)); err != nil {
		m.lib.log.WithField("user_id", id).Debug("authentication rejected")
		return false
	}
	return true
}

// BorrowedSet returns the ids of the books id currently holds.
func (m *Membership) BorrowedSet(id string) ([]string, error) {
	u, err := m.Lookup(id)
	if err != nil {
		return nil, err
	}
	return u.BorrowedBooks, nil
}

// Lookup returns the user without its credential hash.
func (m *Membership) Lookup(id string) (User, error) {
	var (
		user  User
		found bool
	)
	m.lib.view(func(s *Snapshot) {
		if i := s.userIndex(id); i >= 0 {
			user, found = s.Users[i], true
			user.BorrowedBooks = append([]string{}, user.BorrowedBooks...)
		}
	})
	if !found {
		return User{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	return redact(user), nil
}

// List returns all users in registration order, without credential hashes.
func (m *Membership) List() []User {
	users := []User{}
	m.lib.view(func(s *Snapshot) {
		for _, u := range s.Users {
			u.BorrowedBooks = append([]string{}, u.BorrowedBooks...)
			users = append(users, redact(u))
		}
	})
	return users
}

func redact(u User) User {
	u.CredentialHash = ""
	return u
}
