package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/shared"
)

// PlaylistRepository stores the Tidal playlists recorded by the sync task.
//
// Rows are unique per (user_id, tidal_id).
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = `
	id, user_id, tidal_id, name, description, item_count, sync_status, synced_at, created_at, updated_at
`

// Upsert inserts the playlist or updates the existing row for the same user and tidal id.
//
// Returns true when a new row was created. playlist.ID is set to the stored row's id.
func (r *PlaylistRepository) Upsert(ctx context.Context, playlist *models.Playlist) (bool, error) {
	if playlist.SyncStatus == "" {
		playlist.SyncStatus = models.SyncPending
	}
	if err := playlist.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	playlist.UpdatedAt = now
	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = now
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO tidal_playlists (
			id, user_id, tidal_id, name, description, item_count, sync_status, synced_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, tidal_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			item_count = excluded.item_count,
			sync_status = excluded.sync_status,
			synced_at = excluded.synced_at,
			updated_at = excluded.updated_at
		RETURNING id
	`

	var syncedAt any
	if playlist.SyncedAt != nil {
		syncedAt = playlist.SyncedAt.UTC()
	}

	var storedID string
	err := r.db.QueryRowContext(ctx, query,
		id,
		playlist.UserID,
		playlist.TidalID,
		playlist.Name,
		playlist.Description,
		playlist.ItemCount,
		string(playlist.SyncStatus),
		syncedAt,
		playlist.CreatedAt,
		playlist.UpdatedAt,
	).Scan(&storedID)
	if err != nil {
		return false, fmt.Errorf("failed to upsert playlist: %w", err)
	}

	playlist.ID = storedID
	return storedID == id, nil
}

// Get retrieves a user's playlist by its Tidal id.
func (r *PlaylistRepository) Get(ctx context.Context, userID, tidalID string) (*models.Playlist, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+playlistColumns+` FROM tidal_playlists WHERE user_id = ? AND tidal_id = ?`, userID, tidalID,
	)

	playlist, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, tidalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}
	return playlist, nil
}

// ListByUser returns the user's playlists ordered by name.
func (r *PlaylistRepository) ListByUser(ctx context.Context, userID string) ([]*models.Playlist, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+playlistColumns+` FROM tidal_playlists WHERE user_id = ? ORDER BY name COLLATE NOCASE ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// SetStatus updates the sync status of one playlist; synced stamps synced_at.
func (r *PlaylistRepository) SetStatus(ctx context.Context, userID, tidalID string, status models.SyncStatus) error {
	now := time.Now().UTC()

	var syncedAt any
	if status == models.SyncSynced {
		syncedAt = now
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE tidal_playlists
		SET sync_status = ?, synced_at = COALESCE(?, synced_at), updated_at = ?
		WHERE user_id = ? AND tidal_id = ?
	`, string(status), syncedAt, now, userID, tidalID)
	if err != nil {
		return fmt.Errorf("failed to update playlist status: %w", err)
	}

	return expectRow(result, shared.ErrPlaylistNotFound, tidalID)
}

func scanPlaylist(s scanner) (*models.Playlist, error) {
	var (
		p        models.Playlist
		status   string
		syncedAt sql.NullTime
	)

	err := s.Scan(
		&p.ID, &p.UserID, &p.TidalID, &p.Name, &p.Description, &p.ItemCount,
		&status, &syncedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.SyncStatus = models.SyncStatus(status)
	if syncedAt.Valid {
		t := syncedAt.Time
		p.SyncedAt = &t
	}
	return &p, nil
}
