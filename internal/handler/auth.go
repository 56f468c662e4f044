package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"petlens/internal/dto"
	"petlens/internal/logger"
	"petlens/internal/middleware"
	"petlens/internal/service/community"
)

// decodeCredentials reads a JSON body or, failing that, form values.
func decodeCredentials(r *http.Request) (dto.Credentials, error) {
	var creds dto.Credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&creds)
		return creds, err
	}
	creds.Username = r.FormValue("username")
	creds.Password = r.FormValue("password")
	creds.Confirmation = r.FormValue("confirmation")
	return creds, nil
}

// SignUpHandler handles POST /auth/signup.
func SignUpHandler(accounts *community.AccountService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, err := decodeCredentials(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := accounts.SignUp(r.Context(), creds.Username, creds.Password, creds.Confirmation)
		if err != nil {
			writeServiceError(w, logger, err, "signing up")
			return
		}

		writeJSON(w, logger, http.StatusCreated, map[string]string{"username": user.Username})
	}
}

// LoginHandler handles POST /auth/login by validating credentials and issuing a session cookie.
func LoginHandler(accounts *community.AccountService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, err := decodeCredentials(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess, err := accounts.Login(r.Context(), creds.Username, creds.Password)
		if err != nil {
			writeServiceError(w, logger, err, "logging in")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    sess.Token,
			Path:     "/",
			Expires:  sess.ExpiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, logger, http.StatusOK, dto.SessionInfo{Username: sess.Username, ExpiresAt: sess.ExpiresAt})
	}
}

// LogoutHandler ends the session and clears the cookie.
func LogoutHandler(accounts *community.AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := middleware.Token(r); token != "" {
			accounts.Logout(token)
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// SessionHandler reports who is logged in.
func SessionHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, community.ErrUnauthenticated.Error())
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.SessionInfo{Username: sess.Username, ExpiresAt: sess.ExpiresAt})
	}
}
