package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/harmoniq/internal/auth"
	"github.com/desertthunder/harmoniq/internal/models"
	"github.com/desertthunder/harmoniq/internal/repositories"
	"github.com/desertthunder/harmoniq/internal/shared"
	"github.com/desertthunder/harmoniq/internal/tasks"
	"github.com/desertthunder/harmoniq/internal/tidal"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Config and the database are opened on first use, so commands like setup config work without either.
type Runner struct {
	configPath  string
	config      *shared.Config
	logger      *log.Logger
	output      io.Writer
	httpClient  *http.Client
	openBrowser func(string) error
	db          *sql.DB
	deps        *deps
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Logger      *log.Logger
	Output      io.Writer
	HTTPClient  *http.Client // used for every Tidal call, mostly for tests
	DB          *sql.DB
	OpenBrowser func(string) error
}

// deps is everything wired from the config and the database.
type deps struct {
	users     *repositories.UserRepository
	creds     *repositories.CredentialRepository
	playlists *repositories.PlaylistRepository
	service   auth.ServiceConfig
	flow      *auth.Flow
	exchanger *auth.Exchanger
	manager   *auth.Manager
	client    *tidal.Client
	syncer    *tasks.Syncer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		configPath:  opts.ConfigPath,
		config:      opts.Config,
		logger:      opts.Logger,
		output:      opts.Output,
		httpClient:  opts.HTTPClient,
		openBrowser: opts.OpenBrowser,
		db:          opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, tidalCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Config loads .env, the config file (defaults when it does not exist) and environment overrides, once.
func (r *Runner) Config() (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	if err := shared.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	config := shared.DefaultConfig()
	if r.configPath != "" {
		loaded, err := shared.LoadConfig(r.configPath)
		switch {
		case err == nil:
			config = loaded
		case errors.Is(err, fs.ErrNotExist):
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		default:
			return nil, err
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	level, err := shared.ParseLogLevel(config.Logging.Level)
	if err != nil {
		return nil, err
	}
	shared.SetLogLevel(r.logger, level)

	r.config = config
	return config, nil
}

// Deps opens the database and wires repositories, the token manager and the Tidal client, once.
func (r *Runner) Deps() (*deps, error) {
	if r.deps != nil {
		return r.deps, nil
	}

	config, err := r.Config()
	if err != nil {
		return nil, err
	}

	if r.db == nil {
		if r.db, err = shared.OpenDatabase(config.Database); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	d := &deps{
		users:     repositories.NewUserRepository(r.db),
		creds:     repositories.NewCredentialRepository(r.db),
		playlists: repositories.NewPlaylistRepository(r.db),
		service:   auth.NewServiceConfig(config.Tidal),
	}

	var exchangerOpts []auth.ExchangerOption
	clientOpts := []tidal.Option{
		tidal.WithCountryCode(config.Tidal.CountryCode),
		tidal.WithRateLimit(config.Tidal.RateLimit),
		tidal.WithLogger(shared.WithLogger(r.logger, "component", "tidal")),
	}
	if r.httpClient != nil {
		exchangerOpts = append(exchangerOpts, auth.WithHTTPClient(r.httpClient))
		clientOpts = append(clientOpts, tidal.WithHTTPClient(r.httpClient))
	}

	d.flow = auth.NewFlow(d.service)
	d.exchanger = auth.NewExchanger(d.service, exchangerOpts...)
	d.manager = auth.NewManager(d.creds, d.exchanger, auth.WithLogger(shared.WithLogger(r.logger, "component", "auth")))

	if d.client, err = tidal.NewClient(config.Tidal.APIBaseURL, d.manager, clientOpts...); err != nil {
		return nil, err
	}
	d.syncer = tasks.NewSyncer(d.client, d.creds, d.playlists, r.logger)

	r.deps = d
	return d, nil
}

// Close releases the database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.deps = nil, nil
	return err
}

// userFor returns the user named by --email, falling back to the configured default user.
//
// Only create resolves unknown addresses by creating the user.
func (r *Runner) userFor(cmd *cli.Command, d *deps, create bool) (*models.User, error) {
	email := cmd.String("email")
	if email == "" {
		email = r.config.Server.DefaultUser
	}
	if email == "" {
		return nil, fmt.Errorf("%w: --email", shared.ErrMissingArgument)
	}

	if !create {
		user, err := d.users.GetByEmail(email)
		if errors.Is(err, shared.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: run 'harmoniq tidal login --email %s' first", err, email)
		}
		return user, err
	}

	user, created, err := d.users.FindOrCreate(email, "")
	if err != nil {
		return nil, err
	}
	if created {
		r.logger.Info("created user", "user", user.ID(), "email", user.Email())
	}
	return user, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
