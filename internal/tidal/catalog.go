package tidal

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Catalog reads public catalog data as the application, authenticated by an [oauth2.TokenSource]
// (usually the client-credentials source from the auth package).
type Catalog struct {
	client *Client
}

// NewCatalog creates a [Catalog]. The token source is attached at the transport, so requests carry
// no user.
func NewCatalog(ctx context.Context, baseURL string, src oauth2.TokenSource, opts ...Option) (*Catalog, error) {
	hc := oauth2.NewClient(ctx, src)
	hc.Timeout = 10 * time.Second

	client, err := newClient(baseURL, nil, append([]Option{WithHTTPClient(hc)}, opts...)...)
	if err != nil {
		return nil, err
	}
	client.appOnly = true
	return &Catalog{client: client}, nil
}

// Track fetches one track by id.
func (c *Catalog) Track(ctx context.Context, id string) (*Track, error) {
	doc, err := c.client.get(ctx, "", "/tracks/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	r, err := single(doc, typeTracks)
	if err != nil {
		return nil, err
	}

	tr := &Track{ID: r.ID}
	if err := r.Decode(&tr.TrackAttributes); err != nil {
		return nil, err
	}
	return tr, nil
}
