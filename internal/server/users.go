package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
)

// errNoSession is returned when a route acts only for the signed-in browser and there is none.
var errNoSession = errors.New("no signed-in session")

// resolveMode limits where a route may take its user from.
type resolveMode int

const (
	// forLogin: email query, then session, then the configured default. Missing users are created.
	forLogin resolveMode = iota
	// forRead: session, then the configured default.
	forRead
	// forSession: the session user only. Used by routes that change credentials.
	forSession
)

type userResolver struct {
	users       Users
	sessions    *Sessions
	defaultUser string
	logger      *log.Logger
}

func (u userResolver) resolve(r *http.Request, mode resolveMode) (*models.User, error) {
	var email string
	if mode == forLogin {
		email = strings.TrimSpace(r.URL.Query().Get("email"))
	}

	if email == "" {
		if _, id, ok := u.sessions.Get(r); ok && id != "" {
			if user, err := u.users.Get(id); err == nil {
				return user, nil
			}
		}
		if mode == forSession {
			return nil, errNoSession
		}
		email = u.defaultUser
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email", shared.ErrMissingArgument)
	}

	if mode != forLogin {
		return u.users.GetByEmail(email)
	}

	user, created, err := u.users.FindOrCreate(email, "")
	if err != nil {
		return nil, err
	}
	if created {
		u.logger.Info("created user", "user", user.ID(), "email", user.Email())
	}
	return user, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
