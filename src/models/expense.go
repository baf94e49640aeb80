package models

import "time"

// TimestampLayout renders UTC times with millisecond precision, e.g.
// 2024-01-15T10:04:05.123Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type Expense struct {
	ID          string  `json:"id" dynamodbav:"id"`
	UserID      string  `json:"userId" dynamodbav:"userId"`
	Amount      float64 `json:"amount" dynamodbav:"amount"`
	Category    string  `json:"category" dynamodbav:"category"`
	Description string  `json:"description" dynamodbav:"description"`
	Date        string  `json:"date" dynamodbav:"date"`
	CreatedAt   string  `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt   string  `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
}

// Attribute names accepted in a partial update, in the order they are applied.
const (
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldDate        = "date"
	FieldUpdatedAt   = "updatedAt"
)

// FieldUpdate is a single attribute assignment of a partial update.
type FieldUpdate struct {
	Field string
	Value any
}

func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
