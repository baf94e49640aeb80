package db

import (
	"testing"

	"expense-tracker-server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateQuery(t *testing.T) {
	table := pgx.Identifier{"ExpensesTable"}.Sanitize()
	fields := []models.FieldUpdate{
		{Field: models.FieldAmount, Value: 150.0},
		{Field: models.FieldCategory, Value: "groceries"},
		{Field: models.FieldUpdatedAt, Value: "2024-01-15T10:00:00.000Z"},
	}

	query, args, err := buildUpdateQuery(table, "expense-123", "test-user-123", fields)
	require.NoError(t, err)

	assert.Equal(t,
		`UPDATE "ExpensesTable" SET amount = $1, category = $2, updated_at = $3 WHERE id = $4 AND user_id = $5 RETURNING `+expenseSelectList,
		query)
	assert.Equal(t, []any{150.0, "groceries", "2024-01-15T10:00:00.000Z", "expense-123", "test-user-123"}, args)
}

func TestBuildUpdateQueryAllFields(t *testing.T) {
	fields := []models.FieldUpdate{
		{Field: models.FieldAmount, Value: 200.0},
		{Field: models.FieldCategory, Value: "dining"},
		{Field: models.FieldDescription, Value: "Dinner with friends"},
		{Field: models.FieldDate, Value: "2024-01-15"},
		{Field: models.FieldUpdatedAt, Value: "2024-01-16T00:00:00.000Z"},
	}

	query, args, err := buildUpdateQuery(`"expenses"`, "e1", "u1", fields)
	require.NoError(t, err)

	assert.Contains(t, query, `SET amount = $1, category = $2, description = $3, "date" = $4, updated_at = $5 WHERE id = $6 AND user_id = $7`)
	assert.Len(t, args, 7)
}

func TestBuildUpdateQueryOnlyTimestamp(t *testing.T) {
	query, args, err := buildUpdateQuery(`"expenses"`, "e1", "u1", []models.FieldUpdate{
		{Field: models.FieldUpdatedAt, Value: "2024-01-16T00:00:00.000Z"},
	})
	require.NoError(t, err)

	assert.Contains(t, query, `SET updated_at = $1 WHERE id = $2 AND user_id = $3`)
	assert.Equal(t, []any{"2024-01-16T00:00:00.000Z", "e1", "u1"}, args)
}

func TestBuildUpdateQueryRejectsUnknownField(t *testing.T) {
	_, _, err := buildUpdateQuery(`"expenses"`, "e1", "u1", []models.FieldUpdate{{Field: "userId", Value: "other"}})
	assert.Error(t, err)

	_, _, err = buildUpdateQuery(`"expenses"`, "e1", "u1", nil)
	assert.Error(t, err)
}
