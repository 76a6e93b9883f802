package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/ports"
)

type OAuthHandler struct {
	tokens      ports.TokenService
	sync        ports.SyncService
	redirectURL string
}

func NewOAuthHandler(tokens ports.TokenService, sync ports.SyncService, redirectURL string) *OAuthHandler {
	return &OAuthHandler{
		tokens:      tokens,
		sync:        sync,
		redirectURL: redirectURL,
	}
}

// StravaCallback completes the OAuth linking flow: the provider redirects
// here with an authorization code, the code is exchanged and the credential
// stored, and a first sync is kicked off in the background before the user
// lands back on the dashboard.
func (h *OAuthHandler) StravaCallback(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	if err := h.tokens.Link(r.Context(), userID, code); err != nil {
		if errors.Is(err, domain.ErrExchangeFailed) {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.sync.MaybeSync(r.Context(), userID)

	http.Redirect(w, r, h.redirectURL, http.StatusSeeOther)
}
