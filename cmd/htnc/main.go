package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/alexshafranov/derplanner-sub000/pkg/config"
	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
	"github.com/alexshafranov/derplanner-sub000/pkg/ioctx"
)

// Config holds the global flags
type Config struct {
	Debug      bool
	ConfigFile string
	Color      string
	DebugAddr  string
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "htnc",
		Short: "HTN planning domain compiler",
		Long: `htnc checks hierarchical task network domains: it expands macros,
normalizes preconditions, links variables and infers the type of every
parameter.`,
		Example: `  # Check every domain in a directory
  htnc check ./domains

  # Print the typed tree of a domain
  htnc dump travel.htn

  # Serve compile requests on stdin/stdout
  htnc serve`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.Context(), cfg)
			if cfg.DebugAddr != "" {
				return setupDebugHandlers(cfg.DebugAddr)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	flags.StringVar(&cfg.ConfigFile, "config", "", "Path to htnc.toml (searched upwards from the working directory if not specified)")
	flags.StringVar(&cfg.Color, "color", "", `Color diagnostics: "auto", "always" or "never"`)
	flags.StringVar(&cfg.DebugAddr, "debug-addr", "", "Serve pprof and expvar handlers on this address")

	rootCmd.AddCommand(checkCmd(&cfg), dumpCmd(&cfg), serveCmd(&cfg))

	ctx := ioctx.With(context.Background(), ioctx.Streams{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	})
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(ctx context.Context, cfg Config) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(ioctx.Stderr(ctx), &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// loadSettings reads the config file named by --config, or the nearest
// htnc.toml, and applies flag overrides.
func loadSettings(cfg Config) (*config.Config, error) {
	var settings *config.Config
	if cfg.ConfigFile != "" {
		loaded, err := config.Load(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		settings = loaded
	} else {
		path, found, err := config.Find(".")
		if err != nil {
			return nil, err
		}
		if found != nil {
			slog.Debug("using config", "path", path)
			settings = found
		}
	}
	if settings == nil {
		settings = config.Default()
	}

	if cfg.Color != "" {
		settings.Color = cfg.Color
		if err := settings.Validate(); err != nil {
			return nil, errors.Wrap(err, "--color")
		}
	}
	return settings, nil
}

// formatter renders diagnostics for stderr.
func formatter(settings *config.Config, source string) diag.Formatter {
	return diag.Formatter{
		Source:  source,
		Color:   settings.UseColor(term.IsTerminal(os.Stderr.Fd())),
		Context: 1,
	}
}
