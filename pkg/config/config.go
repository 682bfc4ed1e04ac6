// Package config loads signstencil.yaml and turns it into a ready
// template catalog and renderer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xob0t/signstencil/pkg/render"
	"github.com/xob0t/signstencil/pkg/surface"
	"github.com/xob0t/signstencil/pkg/surface/ggsurface"
	"github.com/xob0t/signstencil/pkg/template"
)

// FileName is the config file looked up in the working directory.
const FileName = "signstencil.yaml"

// Backend names.
const (
	BackendSoftware = "software"
	BackendGG       = "gg"
)

// Config is the on-disk configuration shared by the CLI and the server.
type Config struct {
	Font           string  `yaml:"font,omitempty"`      // custom TTF; empty = Go fonts
	Templates      string  `yaml:"templates,omitempty"` // file, directory or .signpack
	ReferenceWidth int     `yaml:"referenceWidth"`
	MinContrast    float64 `yaml:"minContrast"`
	Backend        string  `yaml:"backend"`
	Listen         string  `yaml:"listen"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		ReferenceWidth: template.ReferenceWidth,
		MinContrast:    render.DefaultMinContrast,
		Backend:        BackendSoftware,
		Listen:         ":8080",
	}
}

// Load reads path. A missing file yields Default; zero fields in a
// present file are filled from Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	def := Default()
	if cfg.ReferenceWidth <= 0 {
		cfg.ReferenceWidth = def.ReferenceWidth
	}
	if cfg.MinContrast <= 0 {
		cfg.MinContrast = def.MinContrast
	}
	if cfg.Backend == "" {
		cfg.Backend = def.Backend
	}
	if cfg.Listen == "" {
		cfg.Listen = def.Listen
	}

	// Relative paths are taken from the config file's directory.
	dir := filepath.Dir(path)
	cfg.Font = resolvePath(dir, cfg.Font)
	cfg.Templates = resolvePath(dir, cfg.Templates)
	return cfg, cfg.Validate()
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendSoftware, BackendGG:
	default:
		return fmt.Errorf("backend %q: want %s or %s", c.Backend, BackendSoftware, BackendGG)
	}
	return nil
}

// Encode renders c as YAML.
func (c Config) Encode() ([]byte, error) {
	return yaml.Marshal(c)
}

// ── Runtime ──

// Runtime is a loaded configuration: fonts, catalog and renderer.
type Runtime struct {
	Config   Config
	Fonts    *surface.FontManager
	Catalog  *template.Catalog
	Renderer *render.Renderer

	cleanup func()
}

// Open loads fonts and templates and builds a renderer. Templates from
// cfg.Templates are added on top of the built-in catalog, replacing
// built-ins with the same id. A bundle's font is used when cfg.Font is
// empty. Close releases extracted bundle files.
func Open(cfg Config, opts ...render.Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Catalog: template.DefaultCatalog(), cleanup: func() {}}

	fontPath := cfg.Font
	if cfg.Templates != "" {
		specs, bundleFont, cleanup, err := template.Load(cfg.Templates)
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		rt.cleanup = cleanup
		for _, s := range specs {
			for _, w := range template.Warnings(&s) {
				surface.Logger().Warn("template warning", "template", s.ID, "warning", w)
			}
			rt.Catalog.Add(s)
		}
		if fontPath == "" {
			fontPath = bundleFont
		}
	}

	fonts, err := surface.NewFontManager(fontPath)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	rt.Fonts = fonts
	if custom := fonts.Custom(); custom != "" {
		surface.Logger().Debug("using custom font", "path", custom)
	} else {
		surface.Logger().Debug("using embedded Go fonts")
	}

	ropts := []render.Option{render.WithOptions(render.Options{
		ReferenceWidth: cfg.ReferenceWidth,
		MinContrast:    cfg.MinContrast,
	})}
	if strings.EqualFold(cfg.Backend, BackendGG) {
		ropts = append(ropts, render.WithBackend(ggsurface.Backend{Fonts: fonts}))
	}
	rt.Renderer = render.New(fonts, append(ropts, opts...)...)
	return rt, nil
}

// Close removes temporary files created while loading templates.
func (rt *Runtime) Close() {
	if rt != nil && rt.cleanup != nil {
		rt.cleanup()
		rt.cleanup = nil
	}
}
