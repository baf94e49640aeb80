package models

import "errors"

var (
	ErrExpenseNotFound = errors.New("expense not found")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrTokenRevoked = errors.New("token has been revoked")
)
