// SignStencil — Sign and banner rendering over photos.
//
// Usage:
//
//	signstencil render -i <photo> -t <template> --title <text> [options] -o <file>
//	signstencil templates
//	signstencil show <template>
//	signstencil palette -i <photo>
//	signstencil placeholder -o <file> [--color <hex>]
//	signstencil serve [--listen :8080]
//	signstencil init
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xob0t/signstencil/pkg/config"
	"github.com/xob0t/signstencil/pkg/render"
	"github.com/xob0t/signstencil/pkg/template"
)

var appVersion = "0.3.0"

// Global flags.
var (
	configPath string
	verbose    bool
	fontPath   string
	tplPath    string
	backend    string
)

var rootCmd = &cobra.Command{
	Use:           "signstencil",
	Short:         "signstencil – render signs and banners over photos",
	Long:          "SignStencil composes declarative sign templates (bars, boxes, pills and fitted text) over a photo.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
	},
}

func init() {
	rootCmd.Version = appVersion
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", config.FileName, "Config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging on stderr")
	pf.StringVar(&fontPath, "font", "", "Custom TTF font (overrides config)")
	pf.StringVar(&tplPath, "templates", "", "Extra templates: file, directory or .signpack (overrides config)")
	pf.StringVar(&backend, "backend", "", "Drawing backend: software or gg (overrides config)")

	rootCmd.AddCommand(renderCmd, templatesCmd, showCmd, paletteCmd, placeholderCmd, serveCmd, initCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, template.ErrUnknownTemplate) {
			fmt.Fprintln(os.Stderr, "Run 'signstencil templates' to list available templates.")
		}
		cancel()
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(l)
	render.SetLogger(l)
}

// infoLogger is the server's logger: requests at info, debug with -v.
func infoLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file and applies the global flags that were
// set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("font") {
		cfg.Font = fontPath
	}
	if flags.Changed("templates") {
		cfg.Templates = tplPath
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	return cfg, cfg.Validate()
}

// openRuntime loads the config and everything it points at.
func openRuntime(cmd *cobra.Command) (*config.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return config.Open(cfg)
}
