package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xob0t/signstencil/pkg/generator"
	"github.com/xob0t/signstencil/pkg/template"
)

var renderFlags struct {
	image   string
	output  string
	tpl     string
	job     string
	texts   template.Texts
	upper   bool
	shadow  bool
	stroke  bool
	palette string
	trace   bool
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a sign over a photo",
	Long: `Render a sign template over a photo and write PNG, JPEG or BMP.

Content and toggles come from flags, a job file (--job), or both; flags
that are set win over the job file.`,
	Example: `  signstencil render -i shop.jpg -t tarja-superior-solida --title "Pizzaria Bella" --phone "(11) 5555-0100" -o sign.png
  signstencil render -i shop.jpg --job job.yaml -o sign.jpg`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	def := template.DefaultAdjustments()
	f.StringVarP(&renderFlags.image, "image", "i", "", "Background photo (png, jpeg, gif, bmp, webp)")
	f.StringVarP(&renderFlags.output, "output", "o", "sign.png", "Output file (.png, .jpg or .bmp)")
	f.StringVarP(&renderFlags.tpl, "template", "t", "", "Template id")
	f.StringVarP(&renderFlags.job, "job", "j", "", "Job file with template, texts and adjustments")
	f.StringVar(&renderFlags.texts.Title, "title", "", "Title text")
	f.StringVar(&renderFlags.texts.Subtitle, "subtitle", "", "Subtitle text")
	f.StringVar(&renderFlags.texts.Phone, "phone", "", "Phone / contact text")
	f.BoolVar(&renderFlags.upper, "upper", def.Upper, "Allow upper-casing")
	f.BoolVar(&renderFlags.shadow, "shadow", def.Shadow, "Allow text shadows")
	f.BoolVar(&renderFlags.stroke, "stroke", def.Stroke, "Allow text outlines")
	f.StringVar(&renderFlags.palette, "palette", string(def.Palette), "Palette override: auto, light or dark")
	f.BoolVar(&renderFlags.trace, "trace", false, "Print per-element layout decisions")
	renderCmd.MarkFlagRequired("image")
}

func runRender(cmd *cobra.Command, args []string) error {
	rf := &renderFlags
	flags := cmd.Flags()

	job := &template.Job{}
	if rf.job != "" {
		var err error
		if job, err = template.LoadJob(rf.job); err != nil {
			return err
		}
	}
	if flags.Changed("template") || job.Template == "" {
		job.Template = rf.tpl
	}
	if job.Template == "" {
		return fmt.Errorf("no template: pass --template or a job file")
	}
	texts := template.MergeTexts(job.Texts, rf.texts)

	adj := job.ResolvedAdjustments()
	if flags.Changed("upper") {
		adj.Upper = rf.upper
	}
	if flags.Changed("shadow") {
		adj.Shadow = rf.shadow
	}
	if flags.Changed("stroke") {
		adj.Stroke = rf.stroke
	}
	if flags.Changed("palette") {
		mode, err := template.ParsePaletteMode(rf.palette)
		if err != nil {
			return err
		}
		adj.Palette = mode
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	spec, err := rt.Catalog.Get(job.Template)
	if err != nil {
		return err
	}
	bg, format, err := generator.DecodeFile(rf.image)
	if err != nil {
		return err
	}

	start := time.Now()
	img, trace, err := rt.Renderer.RenderWithTrace(cmd.Context(), bg, spec, texts, adj)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := generator.Generate(rf.output, generator.Config{Image: img}); err != nil {
		return err
	}

	if rf.trace {
		printTrace(cmd.OutOrStdout(), trace)
	}
	size := ""
	if st, err := os.Stat(rf.output); err == nil {
		size = humanize.Bytes(uint64(st.Size()))
	}
	b := img.Bounds()
	fmt.Fprintf(cmd.OutOrStdout(), "Done: %s (%s, %dx%d from %s, %s, %s)\n",
		rf.output, size, b.Dx(), b.Dy(), format, spec.ID, time.Since(start).Round(time.Millisecond))
	return nil
}
