package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expense-tracker-server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var expenseColumns = map[string]string{
	models.FieldAmount:      "amount",
	models.FieldCategory:    "category",
	models.FieldDescription: "description",
	models.FieldDate:        `"date"`,
	models.FieldUpdatedAt:   "updated_at",
}

// Querier is the part of *pgxpool.Pool the repositories need.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const expenseSelectList = `id, user_id, amount, category, description, "date", created_at, COALESCE(updated_at, '')`

// ExpenseRepository keeps expense records in a PostgreSQL table keyed by
// (id, user_id) with a secondary index on user_id.
type ExpenseRepository struct {
	pool  Querier
	name  string
	table string
}

func NewExpenseRepository(pool Querier, table string) *ExpenseRepository {
	return &ExpenseRepository{pool: pool, name: table, table: pgx.Identifier{table}.Sanitize()}
}

func (r *ExpenseRepository) EnsureSchema(ctx context.Context) error {
	create := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          TEXT NOT NULL,
			user_id     TEXT NOT NULL,
			amount      DOUBLE PRECISION NOT NULL,
			category    TEXT NOT NULL,
			description TEXT NOT NULL,
			"date"      TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT,
			PRIMARY KEY (id, user_id)
		)
	`, r.table)
	if _, err := r.pool.Exec(ctx, create); err != nil {
		return fmt.Errorf("ensure expense table: %w", err)
	}

	index := pgx.Identifier{r.name + "_user_id_idx"}.Sanitize()
	if _, err := r.pool.Exec(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (user_id)`, index, r.table)); err != nil {
		return fmt.Errorf("ensure user_id index: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) PutExpense(ctx context.Context, e *models.Expense) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, amount, category, description, "date", created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.table)
	_, err := r.pool.Exec(ctx, query, e.ID, e.UserID, e.Amount, e.Category, e.Description, e.Date, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) ListExpensesByUser(ctx context.Context, userID string) ([]models.Expense, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at DESC`, expenseSelectList, r.table)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Description, &e.Date, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	return expenses, nil
}

func (r *ExpenseRepository) UpdateExpense(ctx context.Context, id, userID string, fields []models.FieldUpdate) (*models.Expense, error) {
	query, args, err := buildUpdateQuery(r.table, id, userID, fields)
	if err != nil {
		return nil, err
	}

	var e models.Expense
	err = r.pool.QueryRow(ctx, query, args...).
		Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Description, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrExpenseNotFound
		}
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return &e, nil
}

func (r *ExpenseRepository) DeleteExpense(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.table)
	if _, err := r.pool.Exec(ctx, query, id, userID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// buildUpdateQuery turns the ordered field list into a single UPDATE that
// only matches the caller's own row; a missing row yields no RETURNING row.
func buildUpdateQuery(table, id, userID string, fields []models.FieldUpdate) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, errors.New("no fields to update")
	}

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		column, ok := expenseColumns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown expense field %q", f.Field)
		}
		args = append(args, f.Value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	args = append(args, id, userID)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
		table, strings.Join(sets, ", "), len(args)-1, len(args), expenseSelectList)
	return query, args, nil
}
