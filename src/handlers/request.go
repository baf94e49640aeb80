package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expense-tracker-server/src/middleware"
	"expense-tracker-server/src/models"
	"expense-tracker-server/src/util"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

var (
	now   = time.Now
	newID = uuid.NewString
)

// requestError rejects a request with a 400. Message is the text sent to
// the client.
type requestError struct {
	reason string
}

func invalidRequest(format string, args ...any) *requestError {
	return &requestError{reason: fmt.Sprintf(format, args...)}
}

func (e *requestError) Error() string   { return "invalid request: " + e.reason }
func (e *requestError) Message() string { return "Invalid request: " + e.reason }

var (
	errMissingBody         = invalidRequest("Missing body")
	errMalformedBody       = invalidRequest("Malformed body")
	errMissingID           = invalidRequest("Missing pathParameters.id")
	errMissingRefreshToken = invalidRequest("Missing refreshToken")
	errAmountNotNumeric    = invalidRequest("amount must be numeric")
)

// requestMessage is the client-facing text for an error from readBody,
// updateFields or newExpense.
func requestMessage(err error) string {
	var re *requestError
	if errors.As(err, &re) {
		return re.Message()
	}
	return errMalformedBody.Message()
}

// pathID returns the {id} route parameter. chi matches on the escaped path
// when one is present, so the parameter is decoded here.
func pathID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(id); err == nil {
			id = decoded
		}
	}
	return strings.TrimSpace(id)
}

// readBody decodes a JSON object body keeping the raw value of every
// attribute, so callers can tell an absent field from a zero one.
func readBody(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	if r.Body == nil {
		return nil, errMissingBody
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errMalformedBody
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errMissingBody
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil || body == nil {
		return nil, errMalformedBody
	}
	return body, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// parseAmount accepts a JSON number or a numeric string.
func parseAmount(raw json.RawMessage) (float64, error) {
	if isNull(raw) {
		return 0, errAmountNotNumeric
	}

	var amount float64
	if err := json.Unmarshal(raw, &amount); err == nil {
		return amount, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, errAmountNotNumeric
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, errAmountNotNumeric
	}
	return amount, nil
}

func parseString(field string, raw json.RawMessage) (string, error) {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return "", invalidRequest("%s must be a string", field)
	}
	return s, nil
}

// updateFields collects the recognised attributes present in body, in a
// fixed order. Unrecognised attributes (including id and userId) are ignored.
func updateFields(body map[string]json.RawMessage) ([]models.FieldUpdate, error) {
	var fields []models.FieldUpdate

	if raw, ok := body[models.FieldAmount]; ok {
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		fields = append(fields, models.FieldUpdate{Field: models.FieldAmount, Value: amount})
	}
	for _, name := range []string{models.FieldCategory, models.FieldDescription, models.FieldDate} {
		raw, ok := body[name]
		if !ok {
			continue
		}
		value, err := parseString(name, raw)
		if err != nil {
			return nil, err
		}
		fields = append(fields, models.FieldUpdate{Field: name, Value: value})
	}
	return fields, nil
}

// newExpense builds a record for userID from a create body.
func newExpense(userID string, body map[string]json.RawMessage) (*models.Expense, error) {
	for _, required := range []string{models.FieldAmount, models.FieldCategory, models.FieldDescription} {
		if _, ok := body[required]; !ok {
			return nil, invalidRequest("Missing %s", required)
		}
	}

	fields, err := updateFields(body)
	if err != nil {
		return nil, err
	}

	createdAt := models.Timestamp(now())
	expense := &models.Expense{
		ID:        newID(),
		UserID:    userID,
		CreatedAt: createdAt,
	}
	for _, f := range fields {
		switch f.Field {
		case models.FieldAmount:
			expense.Amount = f.Value.(float64)
		case models.FieldCategory:
			expense.Category = f.Value.(string)
		case models.FieldDescription:
			expense.Description = f.Value.(string)
		case models.FieldDate:
			expense.Date = f.Value.(string)
		}
	}
	if expense.Date == "" {
		expense.Date = createdAt
	}
	return expense, nil
}

// callerID returns the authenticated user id or writes a 401.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		util.WriteError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return "", false
	}
	return userID, true
}
