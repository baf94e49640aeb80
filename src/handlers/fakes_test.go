package handlers

import (
	"context"
	"errors"
	"sync"

	"expense-tracker-server/src/models"
)

type expenseKey struct{ id, userID string }

// memoryExpenses behaves like the real stores: records are keyed by
// (id, userId) and updates only touch existing records.
type memoryExpenses struct {
	mu      sync.Mutex
	records map[expenseKey]models.Expense
	order   []expenseKey
	err     error
}

func newMemoryExpenses() *memoryExpenses {
	return &memoryExpenses{records: map[expenseKey]models.Expense{}}
}

func (m *memoryExpenses) PutExpense(ctx context.Context, e *models.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	k := expenseKey{e.ID, e.UserID}
	if _, ok := m.records[k]; !ok {
		m.order = append(m.order, k)
	}
	m.records[k] = *e
	return nil
}

func (m *memoryExpenses) ListExpensesByUser(ctx context.Context, userID string) ([]models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Expense
	for _, k := range m.order {
		if e, ok := m.records[k]; ok && k.userID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryExpenses) UpdateExpense(ctx context.Context, id, userID string, fields []models.FieldUpdate) (*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	k := expenseKey{id, userID}
	e, ok := m.records[k]
	if !ok {
		return nil, models.ErrExpenseNotFound
	}
	for _, f := range fields {
		switch f.Field {
		case models.FieldAmount:
			e.Amount = f.Value.(float64)
		case models.FieldCategory:
			e.Category = f.Value.(string)
		case models.FieldDescription:
			e.Description = f.Value.(string)
		case models.FieldDate:
			e.Date = f.Value.(string)
		case models.FieldUpdatedAt:
			e.UpdatedAt = f.Value.(string)
		}
	}
	m.records[k] = e
	return &e, nil
}

func (m *memoryExpenses) DeleteExpense(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.records, expenseKey{id, userID})
	return nil
}

type memoryUsers struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	err     error
	bumpErr error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*models.User{}}
}

func (m *memoryUsers) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.byID {
		if u.Username == user.Username {
			return models.ErrUserExists
		}
	}
	stored := *user
	m.byID[user.ID] = &stored
	return nil
}

func (m *memoryUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Username == username {
			found := *u
			return &found, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (m *memoryUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	found := *u
	return &found, nil
}

func (m *memoryUsers) BumpTokenVersion(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bumpErr != nil {
		return 0, m.bumpErr
	}
	u, ok := m.byID[id]
	if !ok {
		return 0, models.ErrUserNotFound
	}
	u.TokenVersion++
	return u.TokenVersion, nil
}

func (m *memoryUsers) TokenVersion(ctx context.Context, userID string) (int, error) {
	u, err := m.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.TokenVersion, nil
}

type recordedVersions map[string]int

func (r recordedVersions) Remember(userID string, version int) { r[userID] = version }

var errStoreDown = errors.New("ProvisionedThroughputExceededException: rate exceeded")
