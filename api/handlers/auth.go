package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stridelake/stridelake/pkg/store"
)

const (
	authSuccessMessage = "You have been successfully authenticated!"
	authFailureMessage = "Authentication failed. Please try again."
)

// AuthRedirect sends the athlete to Strava to grant access.
func (h *Handlers) AuthRedirect(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Auth == nil {
		h.writeError(w, http.StatusServiceUnavailable, "strava auth is not configured")
		return
	}
	http.Redirect(w, r, h.cfg.Auth.AuthorizationURL(), http.StatusFound)
}

// AuthCallback completes the OAuth exchange, stores the athlete, and redirects to the
// result page with a success or error message.
func (h *Handlers) AuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Auth == nil {
		h.writeError(w, http.StatusServiceUnavailable, "strava auth is not configured")
		return
	}
	if err := h.authenticate(r); err != nil {
		h.log.Error("api: strava authentication failed", "error", err)
		h.redirectResult(w, r, authFailureMessage, "error")
		return
	}
	h.redirectResult(w, r, authSuccessMessage, "success")
}

func (h *Handlers) authenticate(r *http.Request) error {
	ctx := r.Context()
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		return fmt.Errorf("strava denied access: %s", errParam)
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		return errors.New("missing authorization code")
	}

	tok, err := h.cfg.Auth.ExchangeCode(ctx, code)
	if err != nil {
		return err
	}

	// The token response carries a summary athlete without the email.
	athlete, err := h.cfg.Auth.GetAthlete(ctx, tok.AccessToken)
	if err != nil {
		return err
	}

	return h.cfg.Athletes.UpsertAthlete(ctx, store.Athlete{
		AthleteID:    athlete.ID,
		Name:         athlete.FullName(),
		RefreshToken: tok.RefreshToken,
		Email:        athlete.Email,
	})
}

func (h *Handlers) redirectResult(w http.ResponseWriter, r *http.Request, message, messageType string) {
	target := h.cfg.AuthResultURL
	u, err := url.Parse(target)
	if err != nil || target == "" {
		h.writeJSON(w, http.StatusOK, map[string]string{"message": message, "message_type": messageType})
		return
	}
	q := u.Query()
	q.Set("message", message)
	q.Set("message_type", messageType)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}
