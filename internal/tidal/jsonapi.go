package tidal

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	typePlaylists = "playlists"
	typeTracks    = "tracks"
	typeUsers     = "users"
)

// Resource is a JSON:API resource object or identifier. Attributes are decoded per type.
type Resource struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
	Meta       json.RawMessage `json:"meta,omitempty"`
}

// Decode unmarshals the resource's attributes into v.
func (r Resource) Decode(v any) error {
	if len(r.Attributes) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Attributes, v); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", r.Type, r.ID, err)
	}
	return nil
}

type links struct {
	Self string `json:"self,omitempty"`
	Next string `json:"next,omitempty"`
}

type document struct {
	Data     json.RawMessage `json:"data"`
	Included []Resource      `json:"included,omitempty"`
	Links    links           `json:"links"`
}

// resources returns data as a list whether the document held one resource or many.
func (d *document) resources() ([]Resource, error) {
	trimmed := bytes.TrimSpace(d.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var many []Resource
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, fmt.Errorf("failed to decode data: %w", err)
		}
		return many, nil
	}
	var one Resource
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	return []Resource{one}, nil
}

// Page is one response of a paged collection.
type Page struct {
	Data     []Resource `json:"data"`
	Included []Resource `json:"included,omitempty"`
	Next     string     `json:"next,omitempty"`
}

// resolve pairs each data entry with its included resource of type typ.
//
// Relationship endpoints return identifiers in data and the full objects in included; a plain
// collection returns full objects in data.
func (p *Page) resolve(typ string) []Resource {
	index := make(map[string]Resource, len(p.Included))
	for _, r := range p.Included {
		if r.Type == typ {
			index[r.ID] = r
		}
	}

	var out []Resource
	for _, r := range p.Data {
		if r.Type != typ {
			continue
		}
		if full, ok := index[r.ID]; ok {
			out = append(out, full)
		} else {
			out = append(out, r)
		}
	}
	return out
}

// Playlists decodes the page's playlist resources.
func (p *Page) Playlists() ([]Playlist, error) {
	var playlists []Playlist
	for _, r := range p.resolve(typePlaylists) {
		pl := Playlist{ID: r.ID}
		if err := r.Decode(&pl.PlaylistAttributes); err != nil {
			return nil, err
		}
		playlists = append(playlists, pl)
	}
	return playlists, nil
}

// Tracks decodes the page's track resources. Other item types (videos) are skipped.
func (p *Page) Tracks() ([]Track, error) {
	var tracks []Track
	for _, r := range p.resolve(typeTracks) {
		tr := Track{ID: r.ID}
		if err := r.Decode(&tr.TrackAttributes); err != nil {
			return nil, err
		}
		tracks = append(tracks, tr)
	}
	return tracks, nil
}

// User is the authenticated Tidal account (GET /users/me).
type User struct {
	ID string `json:"id"`
	UserAttributes
}

type UserAttributes struct {
	Username string `json:"username"`
	Country  string `json:"country"`
	Email    string `json:"email,omitempty"`
}

type Playlist struct {
	ID string `json:"id"`
	PlaylistAttributes
}

type PlaylistAttributes struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	NumberOfItems  int    `json:"numberOfItems"`
	Duration       string `json:"duration,omitempty"` // ISO 8601, e.g. PT1H2M
	Privacy        string `json:"privacy,omitempty"`
	PlaylistType   string `json:"playlistType,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	LastModifiedAt string `json:"lastModifiedAt,omitempty"`
}

type Track struct {
	ID string `json:"id"`
	TrackAttributes
}

type TrackAttributes struct {
	Title    string `json:"title"`
	ISRC     string `json:"isrc,omitempty"`
	Duration string `json:"duration,omitempty"`
	Explicit bool   `json:"explicit"`
}
