// Package forum holds the user directory and thread store built on top of
// the document store.
package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/dominicf2001/comfyforum/internal/auth"
	"github.com/dominicf2001/comfyforum/internal/database"
)

type Users struct {
	store database.Store
}

func NewUsers(store database.Store) *Users {
	return &Users{store: store}
}

// Get returns ErrUserNotFound when no user has that name.
func (u *Users) Get(ctx context.Context, username string) (database.User, error) {
	var user database.User
	if err := u.store.Get(ctx, username, &user); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.User{}, ErrUserNotFound
		}
		return database.User{}, err
	}
	if user.Type != database.TypeUser {
		return database.User{}, ErrUserNotFound
	}
	return user, nil
}

func (u *Users) Exists(ctx context.Context, username string) (bool, error) {
	_, err := u.Get(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Create inserts the user with the username as document id, so a taken name
// fails atomically in the store with ErrDuplicateUser.
func (u *Users) Create(ctx context.Context, username, password string) (database.User, error) {
	salt := auth.GenerateSalt(username, password)
	user := database.User{
		Username: username,
		Type:     database.TypeUser,
		Salt:     salt,
		Password: auth.DeriveHash(password, salt),
	}

	_, rev, err := u.store.Create(ctx, user)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return database.User{}, ErrDuplicateUser
		}
		return database.User{}, fmt.Errorf("create user: %w", err)
	}
	user.Rev = rev

	return user, nil
}

// Authenticate loads the user and checks password against the stored hash.
func (u *Users) Authenticate(ctx context.Context, username, password string) (database.User, error) {
	user, err := u.Get(ctx, username)
	if err != nil {
		return database.User{}, err
	}
	if !auth.Verify(password, user.Salt, user.Password) {
		return database.User{}, ErrInvalidCredentials
	}
	return user, nil
}
