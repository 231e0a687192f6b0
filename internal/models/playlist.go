package models

import (
	"fmt"
	"time"
)

// SyncStatus tracks how far a playlist has been synced from Tidal.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// Playlist is a Tidal playlist recorded for a user by the sync task.
type Playlist struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	TidalID     string     `json:"tidal_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ItemCount   int        `json:"item_count"`
	SyncStatus  SyncStatus `json:"sync_status"`
	SyncedAt    *time.Time `json:"synced_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p *Playlist) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("playlist owner is required")
	}
	if p.TidalID == "" {
		return fmt.Errorf("tidal playlist id is required")
	}
	switch p.SyncStatus {
	case SyncPending, SyncSynced, SyncFailed:
	default:
		return fmt.Errorf("unknown sync status %q", p.SyncStatus)
	}
	return nil
}
