package tidal

import (
	"context"
)

// Pager walks a paged collection lazily. Each [Pager.Next] performs exactly one request.
//
// The cursor is the next link as returned by the API; handing it back to [Pager.Seek] resumes the
// walk, for example across HTTP requests.
type Pager struct {
	client  *Client
	userID  string
	first   string
	next    string
	started bool
}

func newPager(c *Client, userID, first string) *Pager {
	return &Pager{client: c, userID: userID, first: first}
}

// More reports whether another page can be fetched.
func (p *Pager) More() bool {
	return !p.started || p.next != ""
}

// Next fetches the following page, or returns [ErrNoMorePages] once the collection is exhausted.
//
// A failed request leaves the position unchanged, so Next can be retried.
func (p *Pager) Next(ctx context.Context) (*Page, error) {
	if !p.More() {
		return nil, ErrNoMorePages
	}

	ref := p.first
	if p.started {
		ref = p.next
	}

	page, err := p.client.page(ctx, p.userID, ref)
	if err != nil {
		return nil, err
	}

	p.started = true
	p.next = page.Next
	return page, nil
}

// Cursor is the link to the next page, empty when there is none or nothing was fetched yet.
func (p *Pager) Cursor() string {
	return p.next
}

// Seek positions the pager at cursor. Only relative links and links on the API's own origin are accepted.
//
// An empty cursor rewinds to the first page.
func (p *Pager) Seek(cursor string) error {
	if cursor == "" {
		p.Reset()
		return nil
	}
	if _, err := p.client.resolve(cursor); err != nil {
		return err
	}
	p.started = true
	p.next = cursor
	return nil
}

// Reset rewinds to the first page.
func (p *Pager) Reset() {
	p.started = false
	p.next = ""
}

// All drains the pager, calling fn for each page.
func (p *Pager) All(ctx context.Context, fn func(*Page) error) error {
	for p.More() {
		page, err := p.Next(ctx)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}
