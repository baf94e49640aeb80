package handlers

import (
	"errors"
	"log"
	"net/http"

	"expense-tracker-server/src/models"
	"expense-tracker-server/src/util"
)

func CreateExpense(store ExpenseStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		body, err := readBody(w, r)
		if err != nil {
			log.Printf("ERROR: Failed to read create expense request body for user %s: %v", userID, err)
			util.WriteError(w, http.StatusBadRequest, requestMessage(err), nil)
			return
		}
		expense, err := newExpense(userID, body)
		if err != nil {
			log.Printf("ERROR: Invalid create expense request for user %s: %v", userID, err)
			util.WriteError(w, http.StatusBadRequest, requestMessage(err), nil)
			return
		}

		if err := store.PutExpense(r.Context(), expense); err != nil {
			log.Printf("ERROR: Failed to create expense for user %s: %v", userID, err)
			util.WriteError(w, http.StatusInternalServerError, "Failed to create expense", err)
			return
		}

		log.Printf("INFO: Created expense %s for user %s, category %s", expense.ID, userID, expense.Category)
		util.WriteJSON(w, http.StatusCreated, expense)
	}
}

func GetExpenses(store ExpenseStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		expenses, err := store.ListExpensesByUser(r.Context(), userID)
		if err != nil {
			log.Printf("ERROR: Failed to retrieve expenses for user %s: %v", userID, err)
			util.WriteError(w, http.StatusInternalServerError, "Failed to retrieve expenses", err)
			return
		}
		if expenses == nil {
			expenses = []models.Expense{}
		}

		util.WriteJSON(w, http.StatusOK, expenses)
	}
}

type updateExpenseResponse struct {
	Message        string          `json:"message"`
	UpdatedExpense *models.Expense `json:"updatedExpense"`
}

func UpdateExpense(store ExpenseStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		expenseID := pathID(r)
		if expenseID == "" {
			log.Printf("ERROR: Update expense called without an id by user %s", userID)
			util.WriteError(w, http.StatusBadRequest, errMissingID.Message(), nil)
			return
		}

		body, err := readBody(w, r)
		if err != nil {
			log.Printf("ERROR: Failed to read update request body for expense %s, user %s: %v", expenseID, userID, err)
			util.WriteError(w, http.StatusBadRequest, requestMessage(err), nil)
			return
		}
		fields, err := updateFields(body)
		if err != nil {
			log.Printf("ERROR: Invalid update request for expense %s, user %s: %v", expenseID, userID, err)
			util.WriteError(w, http.StatusBadRequest, requestMessage(err), nil)
			return
		}
		fields = append(fields, models.FieldUpdate{Field: models.FieldUpdatedAt, Value: models.Timestamp(now())})

		updated, err := store.UpdateExpense(r.Context(), expenseID, userID, fields)
		if err != nil {
			if errors.Is(err, models.ErrExpenseNotFound) {
				log.Printf("ERROR: Expense %s not found for user %s", expenseID, userID)
				util.WriteError(w, http.StatusNotFound, "Expense not found", nil)
				return
			}
			log.Printf("ERROR: Failed to update expense %s for user %s: %v", expenseID, userID, err)
			util.WriteError(w, http.StatusInternalServerError, "Failed to update expense", err)
			return
		}

		log.Printf("INFO: Updated expense %s for user %s (%d fields)", expenseID, userID, len(fields))
		util.WriteJSON(w, http.StatusOK, updateExpenseResponse{
			Message:        "Expense updated successfully",
			UpdatedExpense: updated,
		})
	}
}

// DeleteExpense is idempotent: deleting a record that does not exist
// returns the same 204 as deleting one that does.
func DeleteExpense(store ExpenseStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		expenseID := pathID(r)
		if expenseID == "" {
			log.Printf("ERROR: Delete expense called without an id by user %s", userID)
			util.WriteError(w, http.StatusBadRequest, errMissingID.Message(), nil)
			return
		}

		if err := store.DeleteExpense(r.Context(), expenseID, userID); err != nil {
			log.Printf("ERROR: Failed to delete expense %s for user %s: %v", expenseID, userID, err)
			util.WriteError(w, http.StatusInternalServerError, "Failed to delete expense", err)
			return
		}

		log.Printf("INFO: Deleted expense %s for user %s", expenseID, userID)
		w.WriteHeader(http.StatusNoContent)
	}
}
