package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xob0t/signstencil/clients/server"
	"github.com/xob0t/signstencil/pkg/colors"
	"github.com/xob0t/signstencil/pkg/config"
	"github.com/xob0t/signstencil/pkg/generator"
	"github.com/xob0t/signstencil/pkg/render"
	"github.com/xob0t/signstencil/pkg/template"
)

// ── templates ──

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"ls"},
	Short:   "List available templates",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		rows := [][]string{{"ID", "NAME", "PALETTE", "SHAPES", "TEXT", "DESCRIPTION"}}
		for _, s := range rt.Catalog.List() {
			rows = append(rows, []string{
				s.ID, s.Name, s.Palette.String(),
				strconv.Itoa(len(s.Shapes)), strconv.Itoa(len(s.Text)),
				mutedStyle.Render(s.Description),
			})
		}
		fmt.Fprint(cmd.OutOrStdout(), table(rows))
		return nil
	},
}

// ── show ──

var showSchema bool

var showCmd = &cobra.Command{
	Use:   "show <template>",
	Short: "Print a template as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		spec, err := rt.Catalog.Get(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if showSchema {
			fmt.Fprint(out, template.FormatSchema(spec))
		} else {
			data, err := template.EncodeYAML(*spec)
			if err != nil {
				return err
			}
			out.Write(data)
		}

		if err := template.Validate(spec); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("Error: "+err.Error()))
		}
		for _, w := range template.Warnings(spec) {
			fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("Warning: "+w))
		}
		return nil
	},
}

// ── palette ──

var paletteFlags struct {
	image string
	k     int
}

var paletteCmd = &cobra.Command{
	Use:   "palette",
	Short: "Show the dominant colours of a photo and its auto palette",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		img, _, err := generator.DecodeFile(paletteFlags.image)
		if err != nil {
			return err
		}
		img = generator.ScaleToWidth(img, template.ReferenceWidth)
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, headerStyle.Render("Dominant"))
		dom := colors.ExtractDominantColors(img, paletteFlags.k, img.Bounds())
		if len(dom) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("  no saturated colours found"))
		}
		for _, c := range dom {
			fmt.Fprintln(out, "  "+swatch(c))
		}

		p := render.AutoPalette(img)
		fmt.Fprintln(out, headerStyle.Render("Auto palette"))
		fmt.Fprintf(out, "  background %s\n  foreground %s\n  contrast   %.2f\n",
			swatch(p.Background), swatch(p.Foreground), colors.ContrastRatio(p.Foreground, p.Background))
		return nil
	},
}

// ── serve ──

var serveFlags struct {
	listen string
	open   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web editor and HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("listen") {
			cfg.Listen = serveFlags.listen
		}
		rt, err := config.Open(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		return server.Run(cmd.Context(), cfg.Listen, rt, infoLogger(), serveFlags.open)
	},
}

// ── placeholder ──

var placeholderFlags struct {
	output string
	width  int
	height int
	color  string
}

var placeholderCmd = &cobra.Command{
	Use:   "placeholder",
	Short: "Write a solid-colour background for trying out templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pf := placeholderFlags
		cfg := generator.Config{Width: pf.width, Height: pf.height, Color: pf.color}
		if err := generator.Generate(pf.output, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Done: %s\n", pf.output)
		return nil
	},
}

// ── init ──

var initFlags struct {
	dir   string
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample template, job and config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tpl, job := template.GetExampleYAML()
		cfg := config.Default()
		cfg.Templates = "templates.yaml"
		cfgData, err := cfg.Encode()
		if err != nil {
			return err
		}

		files := []struct {
			name string
			data []byte
		}{
			{"templates.yaml", []byte(tpl)},
			{"job.yaml", []byte(job)},
			{config.FileName, cfgData},
		}
		if err := os.MkdirAll(initFlags.dir, 0755); err != nil {
			return err
		}
		var created []string
		for _, f := range files {
			path := filepath.Join(initFlags.dir, f.name)
			if !initFlags.force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("Skipping existing "+path))
					continue
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			if err := os.WriteFile(path, f.data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			created = append(created, path)
		}

		out := cmd.OutOrStdout()
		for _, p := range created {
			fmt.Fprintf(out, "Created: %s\n", p)
		}
		fmt.Fprintln(out, "Run: signstencil render -i photo.jpg --job job.yaml -o sign.png")
		return nil
	},
}

func init() {
	paletteCmd.Flags().StringVarP(&paletteFlags.image, "image", "i", "", "Photo to analyse")
	paletteCmd.Flags().IntVarP(&paletteFlags.k, "count", "k", 5, "Number of dominant colours")
	paletteCmd.MarkFlagRequired("image")

	showCmd.Flags().BoolVar(&showSchema, "schema", false, "Print a readable summary instead of YAML")

	serveCmd.Flags().StringVarP(&serveFlags.listen, "listen", "l", ":8080", "Address to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveFlags.open, "open", false, "Open the editor in a browser")

	placeholderCmd.Flags().StringVarP(&placeholderFlags.output, "output", "o", "background.png", "Output file (.png, .jpg or .bmp)")
	placeholderCmd.Flags().IntVar(&placeholderFlags.width, "width", 1200, "Width in pixels")
	placeholderCmd.Flags().IntVar(&placeholderFlags.height, "height", 800, "Height in pixels")
	placeholderCmd.Flags().StringVar(&placeholderFlags.color, "color", "random", "Background color: hex or 'random'")

	initCmd.Flags().StringVarP(&initFlags.dir, "dir", "d", ".", "Directory to write into")
	initCmd.Flags().BoolVarP(&initFlags.force, "force", "f", false, "Overwrite existing files")
}
