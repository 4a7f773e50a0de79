package forum

import "errors"

var (
	ErrDuplicateUser      = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUnknownForum       = errors.New("forum not found")
	ErrUnknownMessage     = errors.New("message not found")
)
