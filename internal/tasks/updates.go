package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	UserID  string // User the update is about
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	FetchPlaylists
	StorePlaylists
	SyncUser
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchPlaylists:
		return "fetch_playlists"
	case StorePlaylists:
		return "store_playlists"
	case SyncUser:
		return "sync_user"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchProfileUpdate(userID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchProfile,
		UserID:  userID,
		Step:    1,
		Total:   1,
		Message: "Fetching Tidal profile...",
	}
}

func fetchPageUpdate(userID string, page int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		UserID:  userID,
		Step:    page,
		Message: fmt.Sprintf("Fetching playlists (page %d)...", page),
	}
}

func storePlaylistUpdate(userID string, step int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StorePlaylists,
		UserID:  userID,
		Step:    step,
		Message: fmt.Sprintf("Stored %s", name),
	}
}

func syncUserUpdate(userID string, step, total int, err error) ProgressUpdate {
	msg := "Synced"
	if err != nil {
		msg = fmt.Sprintf("Failed: %v", err)
	}
	return ProgressUpdate{
		Phase:   SyncUser,
		UserID:  userID,
		Step:    step,
		Total:   total,
		Message: msg,
	}
}
