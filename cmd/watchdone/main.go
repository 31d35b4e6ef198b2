package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/watchdone/watchdone/internal/adapter"
	"github.com/watchdone/watchdone/internal/domain"
	"github.com/watchdone/watchdone/internal/render"
	"github.com/watchdone/watchdone/internal/store"
	"github.com/watchdone/watchdone/internal/watchlist"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `usage: watchdone [-config FILE] <command> [flags]

commands:
  list     [-type movie|show] [-state watched|pending|started] [-pages N]
  add      -id N -type movie|show [-title S] [-date YYYY-MM-DD]
  remove   -id N
  watched  -id N [-unset]
  episode  -id N -episode E [-unset]
  info     -id N
  search   QUERY
  count
  migrate
  cache clear [-mine]
`

func main() {
	var (
		showVersion bool
		configPath  string
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&configPath, "config", "", "config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if showVersion {
		fmt.Printf("watchdone %s\n", Version)
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := render.New(os.Stdout)
	if err := run(ctx, configPath, flag.Args(), out); err != nil {
		out.Error(err)
		os.Exit(1)
	}
}

// app holds the wired components for one invocation.
type app struct {
	cfg      *adapter.Config
	logger   *slog.Logger
	cache    *store.Cache
	remote   *store.Postgres
	docs     *store.Mirrored
	commands *watchlist.Commands
	queries  *watchlist.Queries
}

func (a *app) Close() {
	if a.remote != nil {
		a.remote.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
}

func openCache(cfg *adapter.Config) (*store.Cache, error) {
	c, err := store.NewCache(cfg.Cache.Dir, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return c, nil
}

func connect(ctx context.Context, cfg *adapter.Config, logger *slog.Logger) (*app, error) {
	if cfg.Store.Migrate {
		if err := store.RunMigrations(cfg.Store.DatabaseURL); err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg, logger: logger}
	var err error
	if a.cache, err = openCache(cfg); err != nil {
		return nil, err
	}
	if a.remote, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, logger); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}
	a.docs = store.NewMirrored(a.cache, a.remote, logger)
	a.commands = watchlist.NewCommands(a.docs, cfg.User, cfg.Preferences, logger)
	a.queries = watchlist.NewQueries(a.cache, cfg.User, cfg.Preferences, logger)
	return a, nil
}

func run(ctx context.Context, configPath string, args []string, out *render.Printer) error {
	cfg, err := adapter.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)
	logger.Info("starting watchdone", "version", Version, "command", args[0])

	name, rest := args[0], args[1:]
	switch name {
	case "migrate":
		if err := store.RunMigrations(cfg.Store.DatabaseURL); err != nil {
			return err
		}
		out.Message("migrations applied")
		return nil
	case "cache":
		return runCache(cfg, rest, out)
	case "list", "add", "remove", "watched", "episode", "info", "search", "count":
	default:
		return fmt.Errorf("unknown command %q", name)
	}

	a, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	switch name {
	case "list":
		return runList(ctx, a, rest, out)
	case "add":
		return runAdd(ctx, a, rest, out)
	case "remove":
		return runRemove(ctx, a, rest, out)
	case "watched":
		return runWatched(ctx, a, rest, out)
	case "episode":
		return runEpisode(ctx, a, rest, out)
	case "info":
		return runInfo(ctx, a, rest, out)
	case "search":
		return runSearch(ctx, a, rest, out)
	default:
		total, err := a.commands.TotalItems(ctx)
		if err != nil {
			return err
		}
		out.Message("%d items", total)
		return nil
	}
}

func runCache(cfg *adapter.Config, args []string, out *render.Printer) error {
	if len(args) == 0 || args[0] != "clear" {
		return errors.New("usage: cache clear [-mine]")
	}
	fs := flag.NewFlagSet("cache clear", flag.ContinueOnError)
	mine := fs.Bool("mine", false, "only clear the current user's watchlist")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	c, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if *mine {
		coll, err := domain.CollectionFor(cfg.User, cfg.Preferences)
		if err != nil {
			return err
		}
		if err := c.InvalidateCollection(coll); err != nil {
			return err
		}
		out.Message("cleared cached %s", coll.Path())
		return nil
	}
	if err := c.InvalidateAll(); err != nil {
		return err
	}
	out.Message("cache cleared")
	return nil
}

func runList(ctx context.Context, a *app, args []string, out *render.Printer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	mediaType := fs.String("type", "", "movie or show")
	state := fs.String("state", "", "watched, pending or started")
	maxPages := fs.Int("pages", 0, "stop after N pages (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var spec domain.FilterSpec
	var err error
	if spec.MediaType, err = domain.ParseMediaType(*mediaType); err != nil {
		return err
	}
	if spec.WatchState, err = domain.ParseWatchState(*state); err != nil {
		return err
	}

	pager := watchlist.NewPager(a.docs, a.cfg.User, a.cfg.Preferences, spec,
		watchlist.WithPageSize(a.cfg.Paging.PageSize),
		watchlist.WithLookaheadSize(a.cfg.Paging.LookaheadSize),
		watchlist.WithProbeSize(a.cfg.Paging.ProbeSize),
		watchlist.WithLogger(a.logger),
	)

	n := 0
	for page, err := range pager.Pages(ctx) {
		if err != nil {
			return err
		}
		n++
		out.Page(n, page)
		if *maxPages > 0 && n >= *maxPages {
			break
		}
	}
	return nil
}

func mediaIDFlag(fs *flag.FlagSet) *int {
	return fs.Int("id", 0, "catalog media id")
}

func requireID(id int) error {
	if id <= 0 {
		return errors.New("-id is required")
	}
	return nil
}

func runAdd(ctx context.Context, a *app, args []string, out *render.Printer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	id := mediaIDFlag(fs)
	mediaType := fs.String("type", "", "movie or show")
	title := fs.String("title", "", "display title")
	date := fs.String("date", "", "release date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	mt, err := domain.ParseMediaType(*mediaType)
	if err != nil {
		return err
	}
	if mt == "" {
		return errors.New("-type is required")
	}

	d, err := a.commands.Add(ctx, domain.MediaRecord{
		ID:          *id,
		MediaType:   mt,
		Title:       strings.TrimSpace(*title),
		ReleaseDate: *date,
	})
	if err != nil {
		return err
	}
	out.Message("added %d as %s", d.Record.ID, d.ID)
	return nil
}

func runRemove(ctx context.Context, a *app, args []string, out *render.Printer) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	id := mediaIDFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	if err := a.commands.Remove(ctx, *id); err != nil {
		return err
	}
	out.Message("removed %d", *id)
	return nil
}

func runWatched(ctx context.Context, a *app, args []string, out *render.Printer) error {
	fs := flag.NewFlagSet("watched", flag.ContinueOnError)
	id := mediaIDFlag(fs)
	unset := fs.Bool("unset", false, "mark as not watched")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	rec, err := a.commands.SetWatchStatus(ctx, *id, !*unset)
	if err != nil {
		return err
	}
	out.Info(rec)
	return nil
}

func runEpisode(ctx context.Context, a *app, args []string, out *render.Printer) error {
	fs := flag.NewFlagSet("episode", flag.ContinueOnError)
	id := mediaIDFlag(fs)
	episode := fs.String("episode", "", "episode id")
	unset := fs.Bool("unset", false, "mark as not watched")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	rec, err := a.commands.SetEpisodeWatchStatus(ctx, *id, *episode, !*unset)
	if err != nil {
		return err
	}
	out.Info(rec)
	return nil
}

func runInfo(ctx context.Context, a *app, args []string, out *render.Printer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	id := mediaIDFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	rec, err := a.commands.MediaInfo(ctx, *id)
	if err != nil {
		return err
	}
	out.Info(rec)
	return nil
}

func runSearch(ctx context.Context, a *app, args []string, out *render.Printer) error {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("usage: search QUERY")
	}
	results, err := a.queries.Search(ctx, query)
	if err != nil {
		return err
	}
	records := make([]domain.MediaRecord, len(results))
	for i, r := range results {
		records[i] = r.Record
	}
	out.Search(query, records)
	return nil
}
