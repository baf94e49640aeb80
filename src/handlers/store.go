package handlers

import (
	"context"

	"expense-tracker-server/src/models"
)

// ExpenseStore is the record store used by the expense handlers. Every method
// is scoped to a single user's partition.
type ExpenseStore interface {
	PutExpense(ctx context.Context, e *models.Expense) error
	ListExpensesByUser(ctx context.Context, userID string) ([]models.Expense, error)
	// UpdateExpense applies fields to an existing record and returns the
	// record as stored. It returns models.ErrExpenseNotFound when there is
	// no record with (id, userID).
	UpdateExpense(ctx context.Context, id, userID string, fields []models.FieldUpdate) (*models.Expense, error)
	DeleteExpense(ctx context.Context, id, userID string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	BumpTokenVersion(ctx context.Context, id string) (int, error)
}

// VersionRecorder is told about token versions written by this process.
type VersionRecorder interface {
	Remember(userID string, version int)
}
