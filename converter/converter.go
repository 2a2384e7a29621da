// Package converter drives an engine through document conversion and
// per-part image export.
package converter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/hashicorp/go-multierror"

	"github.com/potatoqualitee/aitools/tools/lokit/bitmap"
	"github.com/potatoqualitee/aitools/tools/lokit/engine"
)

// Config holds the conversion configuration
type Config struct {
	EnginePath   string     // Engine installation path
	InputFile    string     // Document to load
	ConvertTo    string     // Target format for conversion, empty to skip
	OutputFile   string     // Converted file path (default: input with new extension)
	ExportFormat string     // Image format for export, empty to skip
	Resolution   Resolution // Exported image size
	OutputDir    string     // Directory for exported images
	Parts        string     // Part range: "all", "0", "0-4", "0,2,4"
	Quality      int        // JPEG quality (1-100)
}

// Result holds the outcome of a run
type Result struct {
	InputFile     string
	ConvertedFile string
	OutputFiles   []string
	PartCount     int
	Success       bool
	Error         string
}

// Converter sequences engine calls for conversion and export
type Converter struct {
	engine engine.Engine
	logger *slog.Logger

	// prepareErr is the init or open failure that ended this run's use of
	// the engine.
	prepareErr error
}

// New creates a Converter that owns eng until Close.
func New(eng engine.Engine, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{engine: eng, logger: logger}
}

// Close closes the document and shuts the engine down.
func (c *Converter) Close() {
	c.engine.Shutdown()
	c.prepareErr = nil
}

// Prepare initializes the engine and opens the input file, skipping whichever
// step is already done. A failed init or open is not retried: later calls
// return the same error until Close.
func (c *Converter) Prepare(enginePath, inputFile string) error {
	if c.prepareErr != nil {
		return c.prepareErr
	}
	if err := c.prepare(enginePath, inputFile); err != nil {
		c.prepareErr = err
		return err
	}
	return nil
}

func (c *Converter) prepare(enginePath, inputFile string) error {
	if !c.engine.IsInitialized() {
		if err := c.engine.Init(enginePath); err != nil {
			return err
		}
	}
	if !c.engine.IsOpen() {
		if inputFile == "" {
			return argumentErrorf("path to file must be provided to perform conversion or exporting")
		}
		if err := c.engine.Open(inputFile); err != nil {
			return err
		}
	}
	return nil
}

// ConvertDocument saves the input document in cfg.ConvertTo format and
// returns the written path.
func (c *Converter) ConvertDocument(cfg Config) (string, error) {
	output := cfg.OutputFile
	if output == "" {
		output = replaceExt(cfg.InputFile, cfg.ConvertTo)
	}
	if same, err := samePath(output, cfg.InputFile); err == nil && same {
		return "", argumentErrorf("output file %s would overwrite the input file", output)
	}
	if err := c.Prepare(cfg.EnginePath, cfg.InputFile); err != nil {
		return "", err
	}
	if err := c.engine.SaveAs(output, cfg.ConvertTo); err != nil {
		return "", fmt.Errorf("failed to convert to %s: %w", cfg.ConvertTo, err)
	}
	return output, nil
}

// ExportImages renders the selected parts and writes one <index>.<format>
// file per part into cfg.OutputDir. A part that fails to render or encode is
// reported in the returned error and the remaining parts are still written.
func (c *Converter) ExportImages(cfg Config) ([]string, error) {
	if err := c.Prepare(cfg.EnginePath, cfg.InputFile); err != nil {
		return nil, err
	}
	parts, err := ParsePartRange(cfg.Parts, c.engine.PartCount())
	if err != nil {
		return nil, err
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	res := cfg.Resolution
	if res == (Resolution{}) {
		res = DefaultResolution
	}
	bm := bitmap.New(res.Width, res.Height)
	outputFiles := []string{}
	var result *multierror.Error

	for _, part := range parts {
		c.engine.SetPart(part)
		clear(bm.Pix)
		if err := c.engine.RenderPart(bm.Width, bm.Height, bm.Pix); err != nil {
			c.logger.Error("render failed", "part", part, "error", err)
			result = multierror.Append(result, fmt.Errorf("failed to render part %d: %w", part, err))
			continue
		}

		outputFile := filepath.Join(outputDir, fmt.Sprintf("%d.%s", part, cfg.ExportFormat))
		if err := saveImage(bm, outputFile, cfg.ExportFormat, cfg.Quality); err != nil {
			c.logger.Error("image save failed", "part", part, "path", outputFile, "error", err)
			result = multierror.Append(result, fmt.Errorf("unable to save %s: %w", outputFile, err))
			continue
		}
		c.logger.Info("part exported", "part", part, "path", outputFile)
		outputFiles = append(outputFiles, outputFile)
	}

	return outputFiles, result.ErrorOrNil()
}

// Run performs the conversion and the export requested by cfg. A failed
// conversion does not prevent the export from being attempted, unless the
// engine itself could not be started or could not open the file.
func (c *Converter) Run(cfg Config) (*Result, error) {
	result := &Result{
		InputFile:   cfg.InputFile,
		OutputFiles: []string{},
	}
	var errs *multierror.Error

	if cfg.ConvertTo != "" {
		output, err := c.ConvertDocument(cfg)
		if err != nil {
			errs = multierror.Append(errs, err)
		} else {
			result.ConvertedFile = output
		}
	}

	if cfg.ExportFormat != "" && c.prepareErr == nil {
		files, err := c.ExportImages(cfg)
		result.OutputFiles = append(result.OutputFiles, files...)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if c.engine.IsOpen() {
		result.PartCount = c.engine.PartCount()
	}

	if err := errs.ErrorOrNil(); err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.Success = true
	return result, nil
}

// replaceExt swaps the extension of path for format, appending one if path
// has none.
func replaceExt(path, format string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + format
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// saveImage writes bm to path in the specified format
func saveImage(bm *bitmap.ARGB32, path string, format string, quality int) (err error) {
	if strings.EqualFold(format, rawFormat) {
		return os.WriteFile(path, bm.ARGB(), 0644)
	}

	imgFormat, err := imaging.FormatFromExtension(format)
	if err != nil {
		return fmt.Errorf("unsupported format: %s", format)
	}
	img, err := bm.RGBA()
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	var opts []imaging.EncodeOption
	if quality > 0 {
		opts = append(opts, imaging.JPEGQuality(quality))
	}
	if err := imaging.Encode(file, img, imgFormat, opts...); err != nil {
		return fmt.Errorf("failed to encode %s: %w", strings.ToUpper(format), err)
	}
	return nil
}
