// Package cli implements the leafshift command-line interface.
//
// The commands convert RT Plan records between Millennium and HD collimator
// geometries, inspect and preview plans, edit the linac configuration and
// run the HTTP server. The CLI is built using cobra and supports verbose
// logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - convert: convert a plan to the other collimator family
//   - inspect: summarize a plan and whether it can be converted
//   - render: draw the aperture of one control point
//   - config: show and edit configuration and linac machines
//   - serve: run the HTTP API
//   - history: list recent conversion attempts
//   - cache: manage the conversion cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
//
// # Example
//
//	import "github.com/matzehuels/leafshift/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/matzehuels/leafshift/pkg/buildinfo"
	"github.com/matzehuels/leafshift/pkg/cache"
	"github.com/matzehuels/leafshift/pkg/config"
	"github.com/matzehuels/leafshift/pkg/history"
	"github.com/matzehuels/leafshift/pkg/i18n"
	"github.com/matzehuels/leafshift/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	lang       string
	tr         *i18n.Translator
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		tr:     i18n.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Leafshift converts RT plans between Millennium and HD MLCs",
		Long: `Leafshift adapts radiotherapy treatment plans between linacs fitted with a
Millennium 120 and an HD 120 multileaf collimator. Leaf positions are remapped
to the target leaf geometry and the plan is re-identified and unapproved.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/leafshift/config.toml)")
	root.PersistentFlags().StringVar(&c.lang, "lang", "", "message language: es or en (default from config)")

	// Register all subcommands
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the config file named by --config or the default one.
func (c *CLI) loadConfig() (*config.Config, string, error) {
	path := c.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// language returns the message language: --lang, then the config file.
func (c *CLI) language(cfg *config.Config) language.Tag {
	if c.lang != "" {
		return c.tr.Match(c.lang)
	}
	return c.tr.Match(cfg.Language)
}

// localizedError carries a translated message for display while keeping the
// original error for errors.Is and errors.As.
type localizedError struct {
	err error
	msg string
}

func (e *localizedError) Error() string { return e.msg }
func (e *localizedError) Unwrap() error { return e.err }

func (c *CLI) localize(lang language.Tag, err error) error {
	if err == nil {
		return nil
	}
	var le *localizedError
	if errors.As(err, &le) {
		return err
	}
	return &localizedError{err: err, msg: c.tr.Error(lang, err)}
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	linacs, err := cfg.OpenLinacStore()
	if err != nil {
		return nil, err
	}
	hist, err := c.newHistory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	results, keyer := c.newCache(ctx, cfg, noCache)
	return pipeline.NewRunner(results, keyer, c.Logger,
		pipeline.WithLinacs(linacs),
		pipeline.WithHistory(hist),
		pipeline.WithTTL(cfg.Cache.TTL),
	), nil
}

// newCache opens the configured cache and the keyer to use with it. An
// unavailable backend disables caching rather than failing the command.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, cache.Keyer) {
	keyer := cache.NewDefaultKeyer()
	if noCache {
		return cache.NewNullCache(), keyer
	}
	switch cfg.Cache.Backend {
	case config.CacheFile:
		dir, err := cfg.CachePath()
		if err != nil {
			return cache.NewNullCache(), keyer
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			c.Logger.Warn("file cache disabled", "dir", dir, "error", err)
			return cache.NewNullCache(), keyer
		}
		return fc, keyer
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err != nil {
			c.Logger.Warn("redis cache disabled", "addr", cfg.Cache.Redis.Addr, "error", err)
			return cache.NewNullCache(), keyer
		}
		return rc, cache.NewScopedKeyer(keyer, cache.KeyPrefix)
	}
	return cache.NewNullCache(), keyer
}

// newHistory opens the configured history store. MongoDB being unreachable
// disables history; a broken SQLite file is an error.
func (c *CLI) newHistory(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.History.Backend {
	case config.HistorySQLite:
		path, err := cfg.HistoryPath()
		if err != nil {
			return nil, err
		}
		return history.OpenSQLite(path)
	case config.HistoryMongo:
		store, err := history.OpenMongo(ctx, history.MongoOptions{
			URI:        cfg.History.Mongo.URI,
			Database:   cfg.History.Mongo.Database,
			Collection: cfg.History.Mongo.Collection,
		})
		if err != nil {
			c.Logger.Warn("mongo history disabled", "error", err)
			return history.Nop{}, nil
		}
		return store, nil
	}
	return history.Nop{}, nil
}
