package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deemixkit/internal/formatter"
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/repositories"
	"github.com/desertthunder/deemixkit/internal/services"
	"github.com/desertthunder/deemixkit/internal/shared"
	"github.com/desertthunder/deemixkit/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	ownLogger  bool
	output     io.Writer // URL output contract only
	errOutput  io.Writer // progress, summaries, prompts
	input      io.Reader
	httpClient *http.Client
	clipboard  shared.Clipboard
	catalogs   map[models.Provider]services.Catalog
	palette    *formatter.Palette
	db         *sql.DB
	closers    []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	ErrOutput  io.Writer
	Input      io.Reader
	HTTPClient *http.Client
	Clipboard  shared.Clipboard
	Catalogs   map[models.Provider]services.Catalog
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	ownLogger := opts.Logger == nil
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Clipboard == nil {
		opts.Clipboard = shared.SystemClipboard{}
	}
	if opts.Catalogs == nil {
		opts.Catalogs = make(map[models.Provider]services.Catalog)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		ownLogger:  ownLogger,
		output:     opts.Output,
		errOutput:  opts.ErrOutput,
		input:      opts.Input,
		httpClient: opts.HTTPClient,
		clipboard:  opts.Clipboard,
		catalogs:   opts.Catalogs,
		palette:    formatter.NewPalette(shared.IsTerminal(opts.ErrOutput)),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		albumCommand, discographyCommand, playlistCommand, resolveCommand, collectionCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the configuration and applies logging settings before any command runs.
//
// An explicit --config path must exist; the default path is optional.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	switch {
	case r.configPath != "":
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	case r.config == nil:
		r.config = shared.DefaultConfig()
		if path := shared.DefaultConfigPath(); fileExists(path) {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return ctx, err
			}
			r.config, r.configPath = config, path
		}
	}

	if r.ownLogger && r.config.Log.File != "" {
		logger, closer, err := shared.NewFileLogger(r.errOutput, r.config.Log.File)
		if err != nil {
			return ctx, err
		}
		r.logger = logger
		r.closers = append(r.closers, closer)
	}

	level, err := shared.ParseLogLevel(r.config.Log.Level)
	if err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	r.logger.Debug("configuration loaded", "path", r.configPath)
	return ctx, nil
}

// Close releases the collection database and log file.
func (r *Runner) Close() error {
	var errs []error
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// catalog returns the (cached) catalog client for p.
func (r *Runner) catalog(p models.Provider) (services.Catalog, error) {
	if c, ok := r.catalogs[p]; ok {
		return c, nil
	}

	logger := shared.WithLogger(r.logger, "provider", p)
	client := r.httpClient
	if client == nil {
		client = services.NewHTTPClient(services.HTTPOptsFromConfig(r.config.HTTP, logger))
	}

	var catalog services.Catalog
	switch p {
	case models.ProviderDeezer:
		catalog = services.NewDeezerCatalog(services.DeezerOpts{
			BaseURL:  r.config.Deezer.APIURL,
			PageSize: r.config.Deezer.PageSize,
			Client:   client,
			Logger:   logger,
		})
	case models.ProviderSpotify:
		creds, err := r.config.SpotifyCredentials()
		if err != nil {
			return nil, err
		}
		spotify, err := services.NewSpotifyCatalog(services.SpotifyOpts{
			APIURL:      r.config.Spotify.APIURL,
			TokenURL:    r.config.Spotify.TokenURL,
			Credentials: creds,
			PageSize:    r.config.Spotify.PageSize,
			Client:      client,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		catalog = spotify
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", shared.ErrInvalidArgument, p)
	}

	r.catalogs[p] = catalog
	return catalog, nil
}

type flow int

const (
	flowAlbum flow = iota
	flowDiscography
	flowPlaylist
)

// pipeline builds a pipeline over catalog with the provider's delay for f.
// A classifier is attached only when skipOwned is set.
func (r *Runner) pipeline(ctx context.Context, catalog services.Catalog, f flow, skipOwned bool) (*tasks.Pipeline, error) {
	var (
		delayMS     int
		searchLimit int
	)
	switch catalog.Provider() {
	case models.ProviderSpotify:
		searchLimit = r.config.Spotify.SearchLimit
		delayMS = r.config.Spotify.DiscographyDelayMS
		if f == flowPlaylist {
			delayMS = r.config.Spotify.PlaylistDelayMS
		}
	default:
		searchLimit = r.config.Deezer.SearchLimit
		delayMS = r.config.Deezer.DiscographyDelayMS
		if f == flowPlaylist {
			delayMS = r.config.Deezer.PlaylistDelayMS
		}
	}

	opts := tasks.PipelineOpts{
		Catalog:     catalog,
		Paginator:   tasks.NewPaginator(shared.Delay(delayMS), r.logger),
		SearchLimit: searchLimit,
		Logger:      r.logger,
	}

	if skipOwned {
		matcher, err := r.matcher(ctx)
		if err != nil {
			return nil, err
		}
		opts.Classifier = matcher
	}

	return tasks.NewPipeline(opts), nil
}

// collection opens (once) the owned-collection database.
func (r *Runner) collection() (*repositories.CollectionRepository, error) {
	if r.db == nil {
		db, err := shared.OpenCollectionDatabase(r.config.Collection.DatabasePath)
		if err != nil {
			return nil, err
		}
		r.db = db
	}
	return repositories.NewCollectionRepository(r.db), nil
}

func (r *Runner) scanner(repo *repositories.CollectionRepository) *repositories.Scanner {
	lockPath := ""
	if path := r.config.Collection.DatabasePath; path != ":memory:" {
		lockPath = shared.ExpandPath(path) + ".lock"
	}
	return repositories.NewScanner(repo, repositories.ScannerOpts{LockPath: lockPath, Logger: r.logger})
}

// matcher opens the collection index, scanning the configured library first when the index is empty.
func (r *Runner) matcher(ctx context.Context) (*repositories.CollectionMatcher, error) {
	repo, err := r.collection()
	if err != nil {
		return nil, err
	}

	n, err := repo.Count()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCollectionUnavailable, err)
	}
	if n == 0 && r.config.Collection.LibraryPath != "" {
		r.status("Scanning collection...")
		result, err := r.scanner(repo).Scan(ctx, r.config.Collection.LibraryPath)
		if err != nil {
			return nil, err
		}
		r.status("Indexed %d albums from %d artists", result.Albums, result.Artists)
	}

	matcher, err := repositories.NewCollectionMatcher(repo, repositories.MatcherOptsFromConfig(r.config.Collection, r.logger))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCollectionUnavailable, err)
	}
	if err := matcher.Load(ctx); err != nil {
		return nil, err
	}
	return matcher, nil
}

// track runs fn with a progress channel whose updates are printed to the status stream.
func (r *Runner) track(fn func(progress chan<- tasks.ProgressUpdate) (*tasks.Run, error)) (*tasks.Run, error) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ArtistResolving, tasks.CatalogFetching:
				r.status("%s", update.Message)
			default:
				r.logger.Debug(update.Message, "phase", update.Phase)
			}
		}
	}()

	run, err := fn(progressCh)
	close(progressCh)
	<-done

	return run, err
}

// status writes a line to the status stream.
func (r *Runner) status(format string, args ...any) {
	fmt.Fprintf(r.errOutput, format+"\n", args...)
}

func (r *Runner) outputMode(cmd *cli.Command) string {
	if mode := cmd.String("output"); mode != "" {
		return mode
	}
	return r.config.Output.Mode
}

func (r *Runner) outputFormat(cmd *cli.Command) string {
	if format := cmd.String("format"); format != "" {
		return format
	}
	return r.config.Output.Format
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// elapsed formats a run duration for status lines.
func elapsed(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return r.writePlain("%s\n", output)
}
