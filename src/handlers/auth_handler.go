package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"expense-tracker-server/src/auth"
	"expense-tracker-server/src/middleware"
	"expense-tracker-server/src/models"
	"expense-tracker-server/src/util"

	"golang.org/x/crypto/bcrypt"
)

var passwordCost = bcrypt.DefaultCost

func SignUp(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SignUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode sign-up request body: %v", err)
			util.WriteError(w, http.StatusBadRequest, errMalformedBody.Message(), nil)
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		req.Username = strings.ToLower(strings.TrimSpace(req.Username))

		if !util.ValidateUsername(req.Username) {
			log.Printf("ERROR: Username validation failed during sign-up - Username: %s", req.Username)
			util.WriteError(w, http.StatusBadRequest, "username must be 3-30 letters, digits, '.', '_' or '-'", nil)
			return
		}
		if !util.ValidateEmail(req.Email) {
			log.Printf("ERROR: Email validation failed during sign-up - Email: %s", req.Email)
			util.WriteError(w, http.StatusBadRequest, "invalid email format", nil)
			return
		}
		if !util.ValidatePassword(req.Password) {
			log.Printf("ERROR: Password validation failed during sign-up - Username: %s", req.Username)
			util.WriteError(w, http.StatusBadRequest, "password must be at least 8 characters with uppercase, lowercase, digit, and special character", nil)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordCost)
		if err != nil {
			log.Printf("ERROR: Failed to hash password for user %s: %v", req.Username, err)
			util.WriteError(w, http.StatusInternalServerError, "Signup failed", err)
			return
		}

		user := &models.User{
			ID:           newID(),
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hashedPassword,
		}
		if err := users.CreateUser(r.Context(), user); err != nil {
			if errors.Is(err, models.ErrUserExists) {
				log.Printf("ERROR: Sign-up failed - username already exists: %s", req.Username)
				util.WriteError(w, http.StatusConflict, "Signup failed", err)
				return
			}
			log.Printf("ERROR: Failed to create user %s: %v", req.Username, err)
			util.WriteError(w, http.StatusInternalServerError, "Signup failed", err)
			return
		}

		log.Printf("INFO: Successful sign-up - User: %s, ID: %s", user.Username, user.ID)
		util.WriteJSON(w, http.StatusCreated, map[string]string{
			"message":  "User created successfully",
			"userId":   user.ID,
			"username": user.Username,
		})
	}
}

func SignIn(users UserStore, tokens *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SignInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode sign-in request body: %v", err)
			util.WriteError(w, http.StatusBadRequest, errMalformedBody.Message(), nil)
			return
		}
		username := strings.ToLower(strings.TrimSpace(req.Username))

		user, err := users.GetUserByUsername(r.Context(), username)
		if err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				log.Printf("ERROR: Sign-in for unknown user %s from IP %s", username, r.RemoteAddr)
				util.WriteError(w, http.StatusUnauthorized, "Login failed", models.ErrInvalidCredentials)
				return
			}
			log.Printf("ERROR: Failed to look up user %s: %v", username, err)
			util.WriteError(w, http.StatusInternalServerError, "Login failed", err)
			return
		}

		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)); err != nil {
			log.Printf("ERROR: Invalid password attempt for user %s from IP %s", username, r.RemoteAddr)
			util.WriteError(w, http.StatusUnauthorized, "Login failed", models.ErrInvalidCredentials)
			return
		}

		result, err := tokens.IssueTokens(user)
		if err != nil {
			log.Printf("ERROR: Failed to issue tokens for user %s: %v", username, err)
			util.WriteError(w, http.StatusInternalServerError, "Login failed", err)
			return
		}

		log.Printf("INFO: Successful sign-in - User: %s, ID: %s", user.Username, user.ID)
		util.WriteJSON(w, http.StatusOK, result)
	}
}

func RefreshSession(users UserStore, tokens *auth.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			util.WriteError(w, http.StatusBadRequest, errMissingRefreshToken.Message(), nil)
			return
		}

		claims, err := tokens.Parse(req.RefreshToken, auth.UseRefresh)
		if err != nil {
			util.WriteError(w, http.StatusUnauthorized, "Unauthorized", err)
			return
		}

		user, err := users.GetUserByID(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				util.WriteError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}
			log.Printf("ERROR: Failed to look up user %s on refresh: %v", claims.Subject, err)
			util.WriteError(w, http.StatusInternalServerError, "Failed to refresh session", err)
			return
		}
		if user.TokenVersion != claims.Version {
			util.WriteError(w, http.StatusUnauthorized, "Unauthorized", models.ErrTokenRevoked)
			return
		}

		result, err := tokens.IssueSession(user)
		if err != nil {
			log.Printf("ERROR: Failed to issue tokens for user %s: %v", user.ID, err)
			util.WriteError(w, http.StatusInternalServerError, "Failed to refresh session", err)
			return
		}
		util.WriteJSON(w, http.StatusOK, result)
	}
}

// SignOut is a global sign-out: every token issued to the caller so far,
// on any device, stops being accepted.
func SignOut(users UserStore, versions VersionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		version, err := users.BumpTokenVersion(r.Context(), userID)
		if err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				util.WriteError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}
			log.Printf("ERROR: Failed to sign out user %s: %v", userID, err)
			util.WriteError(w, http.StatusInternalServerError, "Signout failed", err)
			return
		}
		versions.Remember(userID, version)

		log.Printf("INFO: Signed out user %s from all sessions", userID)
		util.WriteJSON(w, http.StatusOK, map[string]string{"message": "Signed out successfully"})
	}
}

func ValidateToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		util.WriteJSON(w, http.StatusOK, map[string]string{
			"userId":   userID,
			"username": middleware.Username(r.Context()),
		})
	}
}
