package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/harmoniq/internal/auth"
	"github.com/desertthunder/harmoniq/internal/formatter"
	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/server"
	"github.com/desertthunder/harmoniq/internal/shared"
	"github.com/desertthunder/harmoniq/internal/tasks"
	"github.com/desertthunder/harmoniq/internal/tidal"
	"github.com/desertthunder/harmoniq/internal/ui"
)

var loginTimeout = 2 * time.Minute

type loginOutcome struct {
	userID string
	err    error
}

// TidalLogin runs the browser login against a temporary local server.
//
// The server is the same one `serve` runs; it shuts down once the callback finishes, fails, or the timeout passes.
func (r *Runner) TidalLogin(ctx context.Context, cmd *cli.Command) error {
	d, err := r.Deps()
	if err != nil {
		return err
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	user, err := r.userFor(cmd, d, true)
	if err != nil {
		return err
	}

	outcomes := make(chan loginOutcome, 1)
	onComplete := func(userID string, err error) {
		select {
		case outcomes <- loginOutcome{userID, err}:
		default:
		}
	}

	addr := r.config.Server.Addr()
	srv := server.NewHTTPServer(addr, r.newRouter(d, r.pendingStore(), r.sessions(), onComplete))

	srvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- server.Run(srvCtx, srv, 5*time.Second, r.logger, ready)
	}()

	select {
	case <-ready:
	case err := <-done:
		return fmt.Errorf("failed to start login server: %w", err)
	}

	host := r.config.Server.Host
	if host == "" {
		host = "localhost"
	}
	loginURL := fmt.Sprintf("http://%s:%d%s?email=%s", host, r.config.Server.Port, server.LoginPath, url.QueryEscape(user.Email()))

	r.writePlain("→ Opening browser for Tidal authorization...\n")
	if err := r.openBrowser(loginURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", loginURL)
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", loginTimeout)

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	var result loginOutcome
	select {
	case result = <-outcomes:
	case err := <-done:
		if err == nil {
			err = errors.New("server stopped")
		}
		return fmt.Errorf("login server failed: %w", err)
	case <-timeout.C:
		cancel()
		<-done
		return fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, loginTimeout)
	case <-ctx.Done():
		<-done
		return ctx.Err()
	}

	cancel()
	if err := <-done; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.err != nil {
		return fmt.Errorf("authorization failed: %w", result.err)
	}

	r.writePlainln("✓ Tidal connected for %s", user.Email())
	if profile, err := d.syncer.SyncProfile(ctx, result.userID, nil); err != nil {
		r.logger.Warn("failed to fetch tidal profile", "error", err)
	} else if profile.Username != "" {
		r.writePlain("  Signed in to Tidal as %s\n", profile.Username)
	}
	r.writePlain("\nYou can now use: harmoniq tidal playlists --email %s\n", user.Email())
	return nil
}

// TidalStatus prints the user's credential state without contacting Tidal.
func (r *Runner) TidalStatus(ctx context.Context, cmd *cli.Command) error {
	d, err := r.Deps()
	if err != nil {
		return err
	}
	user, err := r.userFor(cmd, d, false)
	if err != nil {
		return err
	}

	state, cred, err := d.manager.Status(ctx, user.ID())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := map[string]any{"email": user.Email(), "state": state.String()}
		if cred != nil {
			out["credential"] = cred
		}
		return r.writeJSON(out, true)
	}

	fields := []ui.Field{
		{Label: "User", Value: user.Email()},
		{Label: "State", Value: ui.Styles.State(state)},
	}
	if cred != nil {
		fields = append(fields,
			ui.Field{Label: "Expires", Value: cred.ExpiresAt.Local().Format(time.RFC1123)},
			ui.Field{Label: "Scope", Value: cred.Scope},
			ui.Field{Label: "Refreshable", Value: yesNo(cred.RefreshToken != "")},
		)
		if !cred.Profile.Empty() {
			fields = append(fields, ui.Field{Label: "Tidal user", Value: fmt.Sprintf("%s (%s)", cred.Profile.Username, cred.Profile.ProviderUserID)})
		}
	}
	if err := ui.Styles.Fields(r.output, "Tidal credential", fields...); err != nil {
		return err
	}

	if state == models.StateAbsent || state == models.StateTerminal {
		r.writePlain("%s\n", ui.Styles.Help("Run 'harmoniq tidal login --email "+user.Email()+"' to connect."))
	}
	return nil
}

// TidalRefresh forces a token refresh.
func (r *Runner) TidalRefresh(ctx context.Context, cmd *cli.Command) error {
	d, err := r.Deps()
	if err != nil {
		return err
	}
	user, err := r.userFor(cmd, d, false)
	if err != nil {
		return err
	}

	refreshed, err := d.manager.ForceRefresh(ctx, user.ID())
	if err != nil {
		if auth.NeedsAuthorization(err) {
			return fmt.Errorf("%w (run 'harmoniq tidal login --email %s')", err, user.Email())
		}
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	if !refreshed {
		r.writePlain("Nothing to refresh: no refresh token stored for %s\n", user.Email())
		return nil
	}
	r.writePlain("✓ Token refreshed for %s\n", user.Email())
	return nil
}

// TidalLogout deletes the stored credential.
func (r *Runner) TidalLogout(ctx context.Context, cmd *cli.Command) error {
	d, err := r.Deps()
	if err != nil {
		return err
	}
	user, err := r.userFor(cmd, d, false)
	if err != nil {
		return err
	}

	if err := d.manager.Forget(ctx, user.ID()); err != nil {
		return err
	}
	r.writePlain("✓ Removed Tidal credential for %s\n", user.Email())
	return nil
}

// TidalPlaylists lists one page of playlists, or all of them with --all.
func (r *Runner) TidalPlaylists(ctx context.Context, cmd *cli.Command) error {
	d, err := r.Deps()
	if err != nil {
		return err
	}
	user, err := r.userFor(cmd, d, false)
	if err != nil {
		return err
	}

	profile, err := d.syncer.Profile(ctx, user.ID())
	if err != nil {
		return r.apiError(err, user)
	}

	pager := d.client.UserPlaylists(user.ID(), profile.ProviderUserID)
	if err := pager.Seek(cmd.String("cursor")); err != nil {
		return err
	}

	var playlists []tidal.Playlist
	collect := func(page *tidal.Page) error {
		pls, err := page.Playlists()
		playlists = append(playlists, pls...)
		return err
	}

	if cmd.Bool("all") {
		err = pager.All(ctx, collect)
	} else {
		var page *tidal.Page
		if page, err = pager.Next(ctx); err == nil {
			err = collect(page)
		}
	}
	if err != nil {
		return r.apiError(err, user)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"playlists": playlists, "next_cursor": pager.Cursor()}, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s (%d tracks)\n", i+1, p.Name, p.NumberOfItems)
		r.writePlain("   ID: %s\n", p.ID)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
	}
	if next := pager.Cursor(); next != "" {
		r.writePlainln("More: harmoniq tidal playlists --email %s --cursor '%s'", user.Email(), next)
	}
	return nil
}

// TidalSync stores profiles and playlists for one user, or every connected user with --all.
func (r *Runner) TidalSync(ctx context.Context, cmd *cli.Command) error {
	d, err := r.Deps()
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for u := range progress {
			r.writePlain("→ %s\n", u.Message)
		}
	}()
	finish := func() {
		close(progress)
		wg.Wait()
	}

	if !cmd.Bool("all") {
		user, err := r.userFor(cmd, d, false)
		if err != nil {
			finish()
			return err
		}
		res, err := d.syncer.SyncPlaylists(ctx, user.ID(), progress)
		finish()
		if err != nil {
			return r.apiError(err, user)
		}
		r.writePlain("✓ %s: %d playlists (%d new, %d updated)\n", user.Email(), res.Fetched, res.Created, res.Updated)
		return nil
	}

	ids, err := d.creds.UserIDs(ctx)
	if err != nil {
		finish()
		return err
	}
	result := d.syncer.SyncAll(ctx, ids, cmd.Int("concurrency"), progress)
	finish()

	for _, res := range result.Results {
		r.writePlain("✓ %s: %d playlists (%d new, %d updated)\n", res.UserID, res.Fetched, res.Created, res.Updated)
	}
	if len(result.Errors) == 0 {
		return nil
	}

	errs := make([]error, 0, len(result.Errors))
	for _, e := range result.Errors {
		r.writePlain("✗ %v\n", e)
		errs = append(errs, e)
	}
	return fmt.Errorf("%d of %d users failed to sync: %w", len(result.Errors), len(ids), errors.Join(errs...))
}

// TidalTrack fetches a catalog track using the application's client-credentials token.
func (r *Runner) TidalTrack(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	config, err := r.Config()
	if err != nil {
		return err
	}

	svc := auth.NewServiceConfig(config.Tidal)
	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}
	src, err := auth.NewAppTokenSource(ctx, svc)
	if err != nil {
		return err
	}
	catalog, err := tidal.NewCatalog(ctx, config.Tidal.APIBaseURL, src, tidal.WithCountryCode(config.Tidal.CountryCode))
	if err != nil {
		return err
	}

	track, err := catalog.Track(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, true)
	}
	return ui.Styles.Fields(r.output, track.Title,
		ui.Field{Label: "ID", Value: track.ID},
		ui.Field{Label: "ISRC", Value: track.ISRC},
		ui.Field{Label: "Duration", Value: formatter.FormatDuration(track.Duration)},
		ui.Field{Label: "Explicit", Value: yesNo(track.Explicit)},
	)
}

// TidalExport writes a playlist and all of its tracks to disk.
func (r *Runner) TidalExport(ctx context.Context, cmd *cli.Command) error {
	d, err := r.Deps()
	if err != nil {
		return err
	}
	user, err := r.userFor(cmd, d, false)
	if err != nil {
		return err
	}

	id, format, output := cmd.String("id"), strings.ToLower(cmd.String("format")), cmd.String("output")

	playlist, err := d.client.Playlist(ctx, user.ID(), id)
	if err != nil {
		return r.apiError(err, user)
	}

	export := &formatter.PlaylistExport{Playlist: *playlist}
	err = d.client.PlaylistItems(user.ID(), id).All(ctx, func(page *tidal.Page) error {
		tracks, err := page.Tracks()
		export.Tracks = append(export.Tracks, tracks...)
		return err
	})
	if err != nil {
		return r.apiError(err, user)
	}

	r.logger.Infof("exporting playlist %v with %v tracks as %v", id, len(export.Tracks), format)

	switch format {
	case "csv":
		res, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Playlist exported to %s\n", res.TracksFile)
		r.writePlain("✓ Metadata exported to %s\n", res.MetadataFile)
	case "md", "markdown":
		path, err := formatter.WriteMarkdownExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Playlist exported to %s\n", path)
	case "txt", "text":
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Playlist exported to %s\n", path)
	case "json":
		return r.writeJSON(export, true)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	r.writePlain("  Playlist: %s\n", export.Playlist.Name)
	r.writePlain("  Tracks: %d\n", len(export.Tracks))
	return nil
}

// apiError points the user at login when the credential is gone.
func (r *Runner) apiError(err error, user *models.User) error {
	if auth.NeedsAuthorization(err) || errors.Is(err, shared.ErrCredentialNotFound) {
		return fmt.Errorf("%w (run 'harmoniq tidal login --email %s')", err, user.Email())
	}
	return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
