package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/potatoqualitee/aitools/tools/lokit/converter"
	"github.com/potatoqualitee/aitools/tools/lokit/engine"
	"github.com/potatoqualitee/aitools/tools/lokit/lok"
	"github.com/potatoqualitee/aitools/tools/lokit/pdfium"
)

var (
	version = "dev"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitInvalidArgs  = 1
	ExitEngineFailed = 2
)

var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newEngine builds the engine selected by --engine.
var newEngine = func(name string, v *viper.Viper, logger *slog.Logger) (engine.Engine, error) {
	switch name {
	case "lok":
		office := lok.New(logger)
		if profile := v.GetString("user-profile"); profile != "" {
			url, err := engine.FileURL(profile)
			if err != nil {
				return nil, err
			}
			office.UserProfileURL = url
		}
		return office, nil
	case "pdfium":
		return pdfium.New(logger), nil
	default:
		return nil, fmt.Errorf("unknown engine: %s (want lok or pdfium)", name)
	}
}

func init() {
	// LibreOfficeKit must be driven from the thread that initialized it.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("lokit", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.String("convert-to", "", "Convert the file to the given format (pdf, docx, odt, ...)")
	fs.String("output-file", "", "Path of the converted file (default: input with the new extension)")
	fs.String("export-as-images", "", "Export every part as an image: png, jpg, jpeg, gif, tif, tiff, bmp or argb")
	fs.String("resolution", converter.DefaultResolution.String(), "Exported image size as WxH")
	fs.StringP("output-dir", "o", ".", "Directory for exported images")
	fs.String("parts", "all", "Parts to export: all, 0, 0-4, 0,2,4")
	fs.IntP("quality", "q", 85, "JPEG quality (1-100)")
	fs.String("engine", "lok", "Engine to drive: lok or pdfium")
	fs.String("user-profile", "", "LibreOffice user profile directory")
	fs.String("lock-file", engine.DefaultLockPath(), "Lock file serializing LibreOffice instances")
	fs.Duration("lock-timeout", 5*time.Minute, "How long to wait for the engine lock (0 waits forever)")
	fs.String("log-level", "warn", "Log level: debug, info, warn or error")
	fs.String("config", "", "Config file (json, yaml or toml)")
	fs.Bool("json", false, "Output results as JSON")
	fs.BoolP("help", "h", false, "Show help")
	fs.Bool("version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lokit PATH_TO_LIBRE_OFFICE PATH_TO_FILE [options]\n\n")
		fmt.Fprintf(stderr, "Converts office documents and exports their pages, slides or sheets as images.\n\n")
		fmt.Fprintf(stderr, "Arguments:\n")
		fmt.Fprintf(stderr, "  PATH_TO_LIBRE_OFFICE  LibreOffice program directory (or LOKIT_OFFICE_PATH)\n")
		fmt.Fprintf(stderr, "  PATH_TO_FILE          Document to load\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  lokit /usr/lib/libreoffice/program report.docx --convert-to pdf\n")
		fmt.Fprintf(stderr, "  lokit /usr/lib/libreoffice/program deck.odp --export-as-images png --resolution 1280x720\n")
		fmt.Fprintf(stderr, "  LOKIT_OFFICE_PATH=/opt/libreoffice/program lokit sheet.ods --export-as-images jpg --parts 0-2\n")
		fmt.Fprintf(stderr, "  lokit --engine pdfium slides.pdf --export-as-images png -o ./images\n")
	}
	return fs
}

// loadConfig layers flags over LOKIT_* environment variables over the
// optional config file.
func loadConfig(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("LOKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	return v, nil
}

func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level, ok := logLevelMap[strings.ToLower(logLevel)]
	if !ok {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	v, err := loadConfig(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if v.GetBool("help") {
		fs.Usage()
		return ExitSuccess
	}
	if v.GetBool("version") {
		fmt.Fprintf(stdout, "lokit version %s\n", version)
		return ExitSuccess
	}

	logger := newLogger(stderr, v.GetString("log-level"))
	slog.SetDefault(logger)

	cfg, err := buildConfig(fs.Args(), v)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if len(fs.Args()) == 0 {
			fs.Usage()
		}
		return ExitInvalidArgs
	}

	engineName := strings.ToLower(v.GetString("engine"))
	eng, err := newEngine(engineName, v, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	if engineName == "lok" {
		lock, err := acquireLock(v)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitEngineFailed
		}
		defer lock.Release()
	}

	conv := converter.New(eng, logger)
	defer conv.Close()

	result, err := conv.Run(cfg)

	if v.GetBool("json") {
		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(stdout, string(jsonBytes))
	} else {
		printResult(stdout, result)
	}
	if err != nil {
		for _, e := range flatten(err) {
			fmt.Fprintf(stderr, "Error: %v\n", e)
		}
	}
	return exitCode(err)
}

// buildConfig validates every argument so that bad input is reported before
// the engine is started.
func buildConfig(args []string, v *viper.Viper) (converter.Config, error) {
	var cfg converter.Config

	switch len(args) {
	case 0:
		return cfg, errors.New("path to file must be provided")
	case 1:
		cfg.EnginePath = v.GetString("office-path")
		cfg.InputFile = args[0]
	case 2:
		cfg.EnginePath = args[0]
		cfg.InputFile = args[1]
	default:
		return cfg, fmt.Errorf("unexpected arguments: %s", strings.Join(args[2:], " "))
	}
	if cfg.EnginePath == "" && strings.EqualFold(v.GetString("engine"), "lok") {
		return cfg, errors.New("path to libre office installation must be provided to perform conversion or exporting")
	}

	cfg.ConvertTo = v.GetString("convert-to")
	cfg.OutputFile = v.GetString("output-file")
	cfg.ExportFormat = strings.ToLower(v.GetString("export-as-images"))
	cfg.OutputDir = v.GetString("output-dir")
	cfg.Parts = v.GetString("parts")
	cfg.Quality = v.GetInt("quality")

	if cfg.ConvertTo == "" && cfg.ExportFormat == "" {
		return cfg, errors.New("nothing to do: pass --convert-to or --export-as-images")
	}
	if cfg.OutputFile != "" && cfg.ConvertTo == "" {
		return cfg, errors.New("--output-file requires --convert-to")
	}
	for _, path := range []string{cfg.InputFile, cfg.OutputFile} {
		if strings.HasPrefix(path, engine.FileURLPrefix) {
			return cfg, fmt.Errorf("%s: %w", path, engine.ErrFileURL)
		}
	}

	if cfg.ExportFormat != "" {
		res, err := converter.ParseResolution(v.GetString("resolution"))
		if err != nil {
			return cfg, err
		}
		cfg.Resolution = res

		if err := converter.ValidateImageFormat(cfg.ExportFormat); err != nil {
			return cfg, err
		}
	}
	if err := converter.ValidateQuality(cfg.Quality); err != nil {
		return cfg, err
	}
	if err := converter.ValidatePartRange(cfg.Parts); err != nil {
		return cfg, err
	}

	if cfg.OutputDir != "" {
		absOutputDir, err := filepath.Abs(cfg.OutputDir)
		if err != nil {
			return cfg, fmt.Errorf("failed to resolve output path: %w", err)
		}
		cfg.OutputDir = absOutputDir
	}
	return cfg, nil
}

func acquireLock(v *viper.Viper) (*engine.Lock, error) {
	ctx := context.Background()
	if timeout := v.GetDuration("lock-timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return engine.AcquireLock(ctx, v.GetString("lock-file"))
}

func printResult(w io.Writer, result *converter.Result) {
	if result.ConvertedFile != "" {
		fmt.Fprintf(w, "Converted %s to %s\n", filepath.Base(result.InputFile), result.ConvertedFile)
	}
	if len(result.OutputFiles) > 0 {
		fmt.Fprintf(w, "Exported %d of %d part(s) from %s\n", len(result.OutputFiles), result.PartCount, filepath.Base(result.InputFile))
		for _, f := range result.OutputFiles {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
}

func flatten(err error) []error {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return []error{err}
	}
	var errs []error
	for _, e := range merr.Errors {
		errs = append(errs, flatten(e)...)
	}
	return errs
}

// exitCode reports the worst outcome: any engine or write failure wins over
// argument errors.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	code := ExitInvalidArgs
	for _, e := range flatten(err) {
		if !errors.Is(e, converter.ErrInvalidArgument) {
			code = ExitEngineFailed
		}
	}
	return code
}
