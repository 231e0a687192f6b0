package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/desertthunder/harmoniq/internal/auth"
	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
	"github.com/desertthunder/harmoniq/internal/tidal"
)

// PlaylistAPI is the part of [*tidal.Client] the playlist routes use.
type PlaylistAPI interface {
	Playlist(ctx context.Context, userID, playlistID string) (*tidal.Playlist, error)
	UserPlaylists(userID, providerUserID string) *tidal.Pager
	PlaylistItems(userID, playlistID string) *tidal.Pager
}

// ProfileSource returns the user's Tidal profile, fetching it when needed. [*tasks.Syncer] implements it.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (models.Profile, error)
}

// PlaylistConfig wires a [PlaylistHandler].
type PlaylistConfig struct {
	API         PlaylistAPI
	Profiles    ProfileSource
	Users       Users
	Sessions    *Sessions
	DefaultUser string
	Logger      *log.Logger
}

// PlaylistHandler proxies the signed-in user's Tidal playlists one page at a time.
type PlaylistHandler struct {
	api      PlaylistAPI
	profiles ProfileSource
	resolver userResolver
	logger   *log.Logger
}

func NewPlaylistHandler(cfg PlaylistConfig) *PlaylistHandler {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	logger := shared.WithLogger(cfg.Logger, "component", "server")
	return &PlaylistHandler{
		api:      cfg.API,
		profiles: cfg.Profiles,
		resolver: userResolver{users: cfg.Users, sessions: cfg.Sessions, defaultUser: cfg.DefaultUser, logger: logger},
		logger:   logger,
	}
}

func (h *PlaylistHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/playlists"},
		{Method: http.MethodGet, Path: "/playlists/{id}"},
	}
}

func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.resolve(r, forRead)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "Tidal authorization required", map[string]any{"login_url": LoginPath})
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}

	if id, ok := mux.Vars(r)["id"]; ok {
		h.playlist(w, r, user.ID(), id)
		return
	}
	h.list(w, r, user.ID())
}

func (h *PlaylistHandler) list(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	profile, err := h.profiles.Profile(ctx, userID)
	if err != nil {
		h.fail(w, userID, "Failed to load Tidal profile", err)
		return
	}

	pager := h.api.UserPlaylists(userID, profile.ProviderUserID)
	if err := pager.Seek(r.URL.Query().Get("cursor")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cursor")
		return
	}

	page, err := pager.Next(ctx)
	if err != nil {
		h.fail(w, userID, "Failed to fetch playlists", err)
		return
	}
	playlists, err := page.Playlists()
	if err != nil {
		h.fail(w, userID, "Failed to decode playlists", err)
		return
	}

	if playlists == nil {
		playlists = []tidal.Playlist{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playlists":   playlists,
		"next_cursor": pager.Cursor(),
	})
}

func (h *PlaylistHandler) playlist(w http.ResponseWriter, r *http.Request, userID, playlistID string) {
	ctx := r.Context()

	playlist, err := h.api.Playlist(ctx, userID, playlistID)
	if err != nil {
		h.fail(w, userID, "Failed to fetch playlist", err)
		return
	}

	pager := h.api.PlaylistItems(userID, playlistID)
	if err := pager.Seek(r.URL.Query().Get("cursor")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cursor")
		return
	}

	page, err := pager.Next(ctx)
	if err != nil {
		h.fail(w, userID, "Failed to fetch playlist items", err)
		return
	}
	tracks, err := page.Tracks()
	if err != nil {
		h.fail(w, userID, "Failed to decode playlist items", err)
		return
	}

	if tracks == nil {
		tracks = []tidal.Track{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playlist":    playlist,
		"tracks":      tracks,
		"next_cursor": pager.Cursor(),
	})
}

// fail answers 401 when the user has to log in again, 404 when Tidal has no such resource, otherwise 502.
func (h *PlaylistHandler) fail(w http.ResponseWriter, userID, msg string, err error) {
	if auth.NeedsAuthorization(err) || errors.Is(err, shared.ErrCredentialNotFound) {
		writeError(w, http.StatusUnauthorized, "Tidal authorization required", map[string]any{"login_url": LoginPath})
		return
	}
	var apiErr *tidal.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		writeError(w, http.StatusNotFound, "Not found on Tidal")
		return
	}
	h.logger.Error(msg, "user", userID, "error", err)
	writeError(w, http.StatusBadGateway, msg)
}
