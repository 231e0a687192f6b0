package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/harmoniq/internal/auth"
	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
)

// LoginPath is where browsers start the Tidal login.
const LoginPath = "/auth/login"

// AuthFlow starts logins. [*auth.Flow] implements it.
type AuthFlow interface {
	Begin(state string) (*auth.Authorization, error)
}

// CodeExchanger redeems authorization codes. [*auth.Exchanger] implements it.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, verifier string) (*auth.TokenResult, error)
}

// CredentialManager is the part of [*auth.Manager] the HTTP surface uses.
type CredentialManager interface {
	SaveToken(ctx context.Context, userID string, result *auth.TokenResult) (*models.Credential, error)
	Status(ctx context.Context, userID string) (models.CredentialState, *models.Credential, error)
	ForceRefresh(ctx context.Context, userID string) (bool, error)
	Forget(ctx context.Context, userID string) error
}

// Users resolves application users. [*repositories.UserRepository] implements it.
type Users interface {
	Get(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	FindOrCreate(email, name string) (*models.User, bool, error)
}

// AuthConfig wires an [AuthHandler].
type AuthConfig struct {
	Flow        AuthFlow
	Exchanger   CodeExchanger
	Credentials CredentialManager
	Users       Users
	Pending     auth.PendingStore
	Sessions    *Sessions
	DefaultUser string // email used when no session user applies
	Logger      *log.Logger

	// OnComplete, when set, is called once per callback that reaches a terminal outcome.
	OnComplete func(userID string, err error)
}

// AuthHandler serves the login, callback and credential inspection routes.
type AuthHandler struct {
	AuthConfig
	resolver userResolver
}

// NewAuthHandler creates an [AuthHandler]. A nil logger uses the default one.
func NewAuthHandler(cfg AuthConfig) *AuthHandler {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	cfg.Logger = shared.WithLogger(cfg.Logger, "component", "server")
	return &AuthHandler{
		AuthConfig: cfg,
		resolver:   userResolver{users: cfg.Users, sessions: cfg.Sessions, defaultUser: cfg.DefaultUser, logger: cfg.Logger},
	}
}

func (h *AuthHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: LoginPath},
		{Method: http.MethodGet, Path: "/auth/callback"},
		{Method: http.MethodGet, Path: "/auth/status"},
		{Method: http.MethodPost, Path: "/auth/refresh"},
		{Method: http.MethodPost, Path: "/auth/logout"},
	}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch routeKey(r) {
	case "GET " + LoginPath:
		h.login(w, r)
	case "GET /auth/callback":
		h.callback(w, r)
	case "GET /auth/status":
		h.status(w, r)
	case "POST /auth/refresh":
		h.refresh(w, r)
	case "POST /auth/logout":
		h.logout(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.resolve(r, forLogin)
	if err != nil {
		h.Logger.Error("failed to resolve user", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	authz, err := h.Flow.Begin("")
	if err != nil {
		h.Logger.Error("failed to start tidal login", "error", err)
		msg := "Failed to start Tidal login"
		if errors.Is(err, auth.ErrConfiguration) {
			msg = "Tidal login is not configured: " + err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	key := h.Sessions.Ensure(w, r)
	h.Sessions.SetUser(key, user.ID())

	login := auth.PendingLogin{State: authz.State, CodeVerifier: authz.CodeVerifier, UserID: user.ID()}
	if err := h.Pending.Put(r.Context(), key, login); err != nil {
		h.Logger.Error("failed to store pending login", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start Tidal login")
		return
	}

	h.Logger.Info("redirecting to tidal", "user", user.ID())
	http.Redirect(w, r, authz.URL, http.StatusFound)
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var pending *auth.PendingLogin
	if key, _, ok := h.Sessions.Get(r); ok {
		pending, _ = h.Pending.Take(r.Context(), key)
	}
	userID := ""
	if pending != nil {
		userID = pending.UserID
	}

	fail := func(status int, msg string, err error) {
		h.Logger.Warn("tidal callback failed", "user", userID, "error", err)
		h.complete(userID, err)
		writeError(w, status, msg)
	}

	if providerErr := q.Get("error"); providerErr != "" {
		err := fmt.Errorf("authorization denied: %s", providerErr)
		if desc := q.Get("error_description"); desc != "" {
			err = fmt.Errorf("authorization denied: %s: %s", providerErr, desc)
		}
		fail(http.StatusBadRequest, "Authorization failed: "+providerErr, err)
		return
	}
	if err := pending.Verify(q.Get("state")); err != nil {
		msg := "Invalid state parameter"
		if errors.Is(err, auth.ErrMissingVerifier) {
			msg = "No login in progress for this session"
		}
		fail(http.StatusBadRequest, msg, err)
		return
	}
	code := q.Get("code")
	if code == "" {
		fail(http.StatusBadRequest, "Missing authorization code", errors.New("callback carried no code"))
		return
	}

	result, err := h.Exchanger.ExchangeCode(r.Context(), code, pending.CodeVerifier)
	if err != nil {
		fail(http.StatusBadRequest, "Token exchange failed: "+err.Error(), err)
		return
	}
	if _, err := h.Credentials.SaveToken(r.Context(), userID, result); err != nil {
		fail(http.StatusInternalServerError, "Failed to store Tidal credential", err)
		return
	}

	h.Logger.Info("tidal login complete", "user", userID)
	h.complete(userID, nil)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, successPage, html.EscapeString(h.userLabel(userID)))
}

func (h *AuthHandler) status(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.resolve(r, forRead)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	state, cred, err := h.Credentials.Status(r.Context(), user.ID())
	if err != nil {
		h.Logger.Error("failed to load credential", "user", user.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load Tidal credential")
		return
	}

	body := map[string]any{
		"user_id":    user.ID(),
		"email":      user.Email(),
		"state":      state.String(),
		"authorized": state != models.StateAbsent,
	}
	if cred != nil {
		body["expires_at"] = cred.ExpiresAt
		body["scope"] = cred.Scope
		body["can_refresh"] = cred.RefreshToken != ""
		if !cred.Profile.Empty() {
			body["profile"] = cred.Profile
		}
	}
	if state == models.StateAbsent || state == models.StateTerminal {
		body["login_url"] = LoginPath
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.resolve(r, forSession)
	if errors.Is(err, errNoSession) {
		writeError(w, http.StatusUnauthorized, "Sign in first", map[string]any{"login_url": LoginPath})
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	refreshed, err := h.Credentials.ForceRefresh(r.Context(), user.ID())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"refreshed": refreshed})
	case auth.NeedsAuthorization(err):
		writeError(w, http.StatusUnauthorized, "Tidal authorization required", map[string]any{"login_url": LoginPath})
	default:
		h.Logger.Error("failed to refresh tidal token", "user", user.ID(), "error", err)
		writeError(w, http.StatusBadGateway, "Failed to refresh Tidal token")
	}
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.resolve(r, forSession)
	if err != nil && !errors.Is(err, errNoSession) {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if user != nil {
		if err := h.Credentials.Forget(r.Context(), user.ID()); err != nil {
			h.Logger.Error("failed to forget credential", "user", user.ID(), "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to remove Tidal credential")
			return
		}
	}
	h.Sessions.Clear(w, r)
	writeJSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}

func (h *AuthHandler) userLabel(userID string) string {
	if user, err := h.Users.Get(userID); err == nil {
		return user.Email()
	}
	return userID
}

func (h *AuthHandler) complete(userID string, err error) {
	if h.OnComplete != nil {
		h.OnComplete(userID, err)
	}
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Tidal Connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #000000; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Tidal Connected</h1>
        <p>Signed in as %s. You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
