package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"github.com/ironsheep/posterize-mcp/internal/imaging"
	"github.com/ironsheep/posterize-mcp/internal/pipeline"
	"github.com/ironsheep/posterize-mcp/internal/posterize"
	"github.com/ironsheep/posterize-mcp/internal/session"
)

var (
	presetName string
	outDir     string
	writePrev  bool
	numWorkers int
	showBar    bool
	mimeName   string
	flagValues settingsFlags
)

// settingsFlags holds the raw flag values; only flags the user set are
// applied over the base settings.
type settingsFlags struct {
	quality        float64
	scale          float64
	bw             bool
	mode           string
	bits           int
	paletteN       int
	ditherType     string
	ditherStrength float64
	blockSize      int
	blockStrength  float64
}

var renderCmd = &cobra.Command{
	Use:   "render [IMAGE...]",
	Short: "Posterize images and write the exports",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("at least one image is required")
		}
		for _, a := range args {
			if _, err := os.Stat(a); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("input file '%s' does not exist", a)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if numWorkers < 1 {
			numWorkers = 1
		}
		settings, err := resolveSettings(presetName, flagValues, cmd.Flags().Changed)
		if err != nil {
			return err
		}
		mime, err := parseMime(mimeName)
		if err != nil {
			return err
		}

		cfg := environ()
		ConfigureLogging(cfg, cmd.ErrOrStderr())

		job := batchJob{
			Files:    args,
			Settings: settings,
			OutDir:   outDir,
			Preview:  writePrev,
			Workers:  numWorkers,
			Mime:     mime,
			Pipeline: pipelineOptions(cfg),
		}
		var progress io.Writer
		if showBar {
			progress = cmd.ErrOrStderr()
		}

		results := renderBatch(cmd.Context(), job, progress)
		return reportBatch(cmd.OutOrStdout(), results)
	},
	SilenceUsage: true,
}

func init() {
	d := posterize.DefaultSettings()
	f := renderCmd.Flags()
	f.StringVarP(&presetName, "preset", "p", "", "start from a named preset (see 'posterize presets')")
	f.StringVarP(&outDir, "out-dir", "o", ".", "output directory")
	f.BoolVar(&writePrev, "preview", false, "also write the preview frame as <export>.preview.png")
	f.IntVarP(&numWorkers, "workers", "w", 4, "number of images rendered in parallel")
	f.BoolVar(&showBar, "progress", true, "show a progress bar on stderr")
	f.StringVar(&mimeName, "format", "jpeg", "export format: jpeg, png or raw")

	f.Float64VarP(&flagValues.quality, "quality", "q", d.Quality, "encoder quality (0.05-0.95)")
	f.Float64VarP(&flagValues.scale, "scale", "s", d.Scale, "export scale (0.1-1.0)")
	f.BoolVar(&flagValues.bw, "bw", d.BW, "convert to grayscale")
	f.StringVarP(&flagValues.mode, "mode", "m", d.Mode.String(), "quantization mode: bits or palette")
	f.IntVarP(&flagValues.bits, "bits", "b", d.Bits, "bits per channel in bits mode (1-8)")
	f.IntVarP(&flagValues.paletteN, "palette", "n", d.PaletteN, "palette size in palette mode (2-256)")
	f.StringVarP(&flagValues.ditherType, "dither", "d", d.DitherType.String(), "dither: none, ordered, random or diffusion")
	f.Float64Var(&flagValues.ditherStrength, "dither-strength", d.DitherStrength, "dither strength (0-1)")
	f.IntVar(&flagValues.blockSize, "block-size", d.BlockSize, "pixelation tile size")
	f.Float64Var(&flagValues.blockStrength, "block-strength", d.BlockStrength, "pixelation strength (0-1)")
}

// resolveSettings starts from the preset, or the defaults, and applies the
// flags for which changed reports true.
func resolveSettings(preset string, v settingsFlags, changed func(string) bool) (posterize.Settings, error) {
	s := posterize.DefaultSettings()
	if preset != "" {
		p, ok := posterize.Preset(preset)
		if !ok {
			return s, fmt.Errorf("unknown preset %q (have %s)", preset, strings.Join(posterize.PresetNames(), ", "))
		}
		s = p
	}

	if changed("quality") {
		s.Quality = v.quality
	}
	if changed("scale") {
		s.Scale = v.scale
	}
	if changed("bw") {
		s.BW = v.bw
	}
	if changed("mode") {
		s.Mode = posterize.ParseMode(v.mode)
	}
	if changed("bits") {
		s.Bits = v.bits
	}
	if changed("palette") {
		s.PaletteN = v.paletteN
	}
	if changed("dither") {
		s.DitherType = posterize.ParseDitherType(v.ditherType)
	}
	if changed("dither-strength") {
		s.DitherStrength = v.ditherStrength
	}
	if changed("block-size") {
		s.BlockSize = v.blockSize
	}
	if changed("block-strength") {
		s.BlockStrength = v.blockStrength
	}
	return s.Clamp(), nil
}

func parseMime(name string) (string, error) {
	switch strings.ToLower(name) {
	case "jpeg", "jpg", "":
		return imaging.MimeJPEG, nil
	case "png":
		return imaging.MimePNG, nil
	case "raw", "zstd":
		return imaging.MimeRawZstd, nil
	default:
		return "", fmt.Errorf("unknown format %q", name)
	}
}

// batchJob renders every file with the same settings.
type batchJob struct {
	Files    []string
	Settings posterize.Settings
	OutDir   string
	Preview  bool
	Workers  int
	Mime     string
	Pipeline pipeline.Options
}

// batchResult is the outcome for one input file.
type batchResult struct {
	Input   string
	Export  *session.ExportResult
	Preview string
	Err     error
}

// renderBatch renders job.Files on job.Workers goroutines. Results keep the
// input order. A non-nil progress writer gets a progress bar.
func renderBatch(ctx context.Context, job batchJob, progress io.Writer) []batchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]batchResult, len(job.Files))
	queue := make(chan int)

	var bar *uiprogress.Bar
	if progress != nil {
		p := uiprogress.New()
		p.Out = progress
		total := len(job.Files)
		bar = p.AddBar(total).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("render (%4v/%4v)", b.Current(), total)
		})
		p.Start()
		defer p.Stop()
	}

	var wg sync.WaitGroup
	for i := 0; i < max(1, job.Workers); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// one cache per worker, emptied after every file
			decoder := imaging.NewImageCache()
			for idx := range queue {
				results[idx] = renderOne(ctx, job, decoder, job.Files[idx])
				decoder.Clear()
				if bar != nil {
					bar.Incr()
				}
			}
		}()
	}

	for i := range job.Files {
		queue <- i
	}
	close(queue)
	wg.Wait()

	return results
}

func renderOne(ctx context.Context, job batchJob, decoder imaging.Decoder, path string) batchResult {
	res := batchResult{Input: path}

	var surface *imaging.ImageSurface
	var surf imaging.Surface
	if job.Preview {
		surface = imaging.NewImageSurface(1, 1)
		surf = surface
	}

	opts := session.DefaultOptions()
	opts.Mime = job.Mime
	opts.Pipeline = job.Pipeline
	sess := session.New(opts, decoder, imaging.BlobEncoder{}, surf, nil)
	defer sess.Close()

	if _, err := sess.Load(path); err != nil {
		res.Err = err
		return res
	}
	if surface != nil {
		w, h := sess.Source().Width, sess.Source().Height
		ew, eh := pipeline.ComputeExportDimensions(w, h, job.Settings)
		surface.SetRegion(ew, eh)
	}
	if _, err := sess.Render(job.Settings, true); err != nil {
		res.Err = err
		return res
	}

	exp, err := sess.Export(ctx, job.OutDir)
	if err != nil {
		res.Err = err
		return res
	}
	res.Export = exp

	if surface != nil {
		prev := strings.TrimSuffix(exp.Path, filepath.Ext(exp.Path)) + ".preview.png"
		if err := surface.Save(prev); err != nil {
			res.Err = err
			return res
		}
		res.Preview = prev
	}
	return res
}

// reportBatch prints one line per input and returns an error naming the
// number of failures.
func reportBatch(w io.Writer, results []batchResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s: %v\n", r.Input, r.Err)
			continue
		}
		line := fmt.Sprintf("ok   %s -> %s (%dx%d, %s)", r.Input, r.Export.Path, r.Export.Width, r.Export.Height, r.Export.Size)
		if r.Preview != "" {
			line += ", preview " + r.Preview
		}
		fmt.Fprintln(w, line)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(results))
	}
	return nil
}
