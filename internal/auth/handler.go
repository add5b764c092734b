package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/propstack/buyer-intake/pkg/logging"
)

// Handler serves the demo login flow. There is no user store; any non-empty
// user id gets a session, matching the single-agent deployment model.
type Handler struct {
	sessions *Sessions
	logger   *logging.Logger
}

func NewHandler(sessions *Sessions, logger *logging.Logger) *Handler {
	return &Handler{sessions: sessions, logger: logger}
}

type loginRequest struct {
	UserID string `json:"userId"`
}

// Login issues a session cookie for the supplied user id.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	token, expires, err := h.sessions.Issue(req.UserID)
	if err != nil {
		h.logger.Error("issuing session token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, h.sessions.Cookie(token, expires))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"userId": req.UserID})
}

// Logout clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, ExpiredCookie())
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
