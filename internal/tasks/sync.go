package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
	"github.com/desertthunder/harmoniq/internal/tidal"
)

const maxSyncConcurrency = 10

// TidalAPI is the part of [tidal.Client] the sync tasks use.
type TidalAPI interface {
	Me(ctx context.Context, userID string) (*tidal.User, error)
	UserPlaylists(userID, providerUserID string) *tidal.Pager
}

// ProfileStore reads credentials and records their Tidal profile. [*repositories.CredentialRepository] implements it.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*models.Credential, error)
	UpdateProfile(ctx context.Context, userID string, profile models.Profile) error
}

// PlaylistStore upserts synced playlists. [*repositories.PlaylistRepository] implements it.
type PlaylistStore interface {
	Upsert(ctx context.Context, playlist *models.Playlist) (bool, error)
}

// SyncResult summarizes one user's playlist sync.
type SyncResult struct {
	UserID  string
	Profile models.Profile
	Fetched int // Playlists returned by Tidal
	Created int // New rows
	Updated int // Existing rows refreshed
}

// UserError is a failed sync for one user.
type UserError struct {
	UserID string
	Err    error
}

func (e UserError) Error() string {
	return fmt.Sprintf("user %s: %v", e.UserID, e.Err)
}

func (e UserError) Unwrap() error { return e.Err }

// SyncAllResult collects the outcome of [Syncer.SyncAll]. Results keep the input order; failed users are absent.
type SyncAllResult struct {
	Results []*SyncResult
	Errors  []UserError
}

// Syncer copies Tidal account data into the local database.
type Syncer struct {
	api       TidalAPI
	profiles  ProfileStore
	playlists PlaylistStore
	logger    *log.Logger
}

// NewSyncer creates a [Syncer]. A nil logger uses the default one.
func NewSyncer(api TidalAPI, profiles ProfileStore, playlists PlaylistStore, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.Default()
	}
	return &Syncer{
		api:       api,
		profiles:  profiles,
		playlists: playlists,
		logger:    shared.WithLogger(logger, "component", "sync"),
	}
}

// SyncProfile fetches the user's Tidal account and stores it on their credential.
func (s *Syncer) SyncProfile(ctx context.Context, userID string, progress chan<- ProgressUpdate) (models.Profile, error) {
	sendProgress(progress, fetchProfileUpdate(userID))

	me, err := s.api.Me(ctx, userID)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to fetch profile: %w", err)
	}

	profile := models.Profile{
		ProviderUserID: me.ID,
		Email:          me.Email,
		Username:       me.Username,
		Country:        me.Country,
	}
	if err := s.profiles.UpdateProfile(ctx, userID, profile); err != nil {
		return models.Profile{}, err
	}

	s.logger.Info("synced tidal profile", "user", userID, "tidal_user", profile.ProviderUserID)
	return profile, nil
}

// Profile returns the stored Tidal profile, syncing it first when it was never fetched.
func (s *Syncer) Profile(ctx context.Context, userID string) (models.Profile, error) {
	return s.ensureProfile(ctx, userID, nil)
}

func (s *Syncer) ensureProfile(ctx context.Context, userID string, progress chan<- ProgressUpdate) (models.Profile, error) {
	cred, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	if cred.Profile.ProviderUserID != "" {
		return cred.Profile, nil
	}
	return s.SyncProfile(ctx, userID, progress)
}

// SyncPlaylists records every playlist in the user's Tidal collection with status pending.
//
// The profile is synced first when it has never been fetched, since the collection is addressed by the Tidal user id.
func (s *Syncer) SyncPlaylists(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*SyncResult, error) {
	profile, err := s.ensureProfile(ctx, userID, progress)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{UserID: userID, Profile: profile}
	pager := s.api.UserPlaylists(userID, profile.ProviderUserID)

	pageNum := 0
	err = pager.All(ctx, func(page *tidal.Page) error {
		pageNum++
		sendProgress(progress, fetchPageUpdate(userID, pageNum))

		playlists, err := page.Playlists()
		if err != nil {
			return err
		}

		for _, pl := range playlists {
			created, err := s.playlists.Upsert(ctx, &models.Playlist{
				UserID:      userID,
				TidalID:     pl.ID,
				Name:        pl.Name,
				Description: pl.Description,
				ItemCount:   pl.NumberOfItems,
				SyncStatus:  models.SyncPending,
			})
			if err != nil {
				return err
			}

			result.Fetched++
			if created {
				result.Created++
			} else {
				result.Updated++
			}
			sendProgress(progress, storePlaylistUpdate(userID, result.Fetched, pl.Name))
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to sync playlists: %w", err)
	}

	s.logger.Info("synced tidal playlists", "user", userID, "fetched", result.Fetched, "created", result.Created)
	return result, nil
}

// SyncAll runs [Syncer.SyncPlaylists] for each user, at most concurrency at a time (1 to 10).
//
// One user's failure does not stop the others; failures are collected in the result.
func (s *Syncer) SyncAll(ctx context.Context, userIDs []string, concurrency int, progress chan<- ProgressUpdate) *SyncAllResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > maxSyncConcurrency {
		concurrency = maxSyncConcurrency
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		done    int
		results = make([]*SyncResult, len(userIDs))
		out     = &SyncAllResult{}
	)
	g.SetLimit(concurrency)

	for i, userID := range userIDs {
		g.Go(func() error {
			result, err := s.SyncPlaylists(ctx, userID, progress)

			mu.Lock()
			defer mu.Unlock()
			done++
			sendProgress(progress, syncUserUpdate(userID, done, len(userIDs), err))

			if err != nil {
				s.logger.Warn("sync failed", "user", userID, "error", err)
				out.Errors = append(out.Errors, UserError{UserID: userID, Err: err})
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r != nil {
			out.Results = append(out.Results, r)
		}
	}
	return out
}
