// Package config loads docscan settings from built-in defaults, DOCSCAN_*
// environment variables, an optional YAML file and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/docscan-mcp/internal/ocr"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DOCSCAN_"

// Config holds application configuration.
type Config struct {
	OutputDir     string        `yaml:"output_dir"`
	MinArea       float64       `yaml:"min_area"`
	MaxAreaRatio  float64       `yaml:"max_area_ratio"`
	JPEGQuality   int           `yaml:"jpeg_quality"`
	OCRLanguage   string        `yaml:"ocr_language"`
	InboxDir      string        `yaml:"inbox_dir"`
	Workers       int           `yaml:"workers"`
	Debounce      time.Duration `yaml:"debounce"`
	LogLevel      string        `yaml:"log_level"`
	PublicBaseURL string        `yaml:"public_base_url"` // prefix for links to delivered pages

	// LineChannelToken enables delivery through LINE. It is read from the
	// environment or the config file only, never from flags.
	LineChannelToken string `yaml:"line_channel_token"`
}

// pointer wrapper for YAML detection of presence
type fileConfig struct {
	OutputDir     *string        `yaml:"output_dir"`
	MinArea       *float64       `yaml:"min_area"`
	MaxAreaRatio  *float64       `yaml:"max_area_ratio"`
	JPEGQuality   *int           `yaml:"jpeg_quality"`
	OCRLanguage   *string        `yaml:"ocr_language"`
	InboxDir      *string        `yaml:"inbox_dir"`
	Workers       *int           `yaml:"workers"`
	Debounce      *time.Duration `yaml:"debounce"`
	LogLevel      *string        `yaml:"log_level"`
	PublicBaseURL *string        `yaml:"public_base_url"`

	LineChannelToken *string `yaml:"line_channel_token"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	opts := rectify.DefaultOptions()
	return &Config{
		OutputDir:    "output",
		MinArea:      opts.MinArea,
		MaxAreaRatio: opts.MaxAreaRatio,
		JPEGQuality:  opts.JPEGQuality,
		OCRLanguage:  ocr.DefaultLanguage,
		Workers:      2,
		Debounce:     300 * time.Millisecond,
		LogLevel:     "info",
	}
}

// flag values that remember whether the user set them
type stringFlag struct {
	val string
	set bool
}

func (s *stringFlag) String() string     { return s.val }
func (s *stringFlag) Set(v string) error { s.val = v; s.set = true; return nil }

type intFlag struct {
	val int
	set bool
}

func (i *intFlag) String() string { return strconv.Itoa(i.val) }
func (i *intFlag) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	i.val = n
	i.set = true
	return nil
}

type floatFlag struct {
	val float64
	set bool
}

func (f *floatFlag) String() string { return strconv.FormatFloat(f.val, 'g', -1, 64) }
func (f *floatFlag) Set(v string) error {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	f.val = n
	f.set = true
	return nil
}

type durationFlag struct {
	val time.Duration
	set bool
}

func (d *durationFlag) String() string { return d.val.String() }
func (d *durationFlag) Set(v string) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	d.val = dur
	d.set = true
	return nil
}

// Load builds the configuration for the named subcommand from args (which
// must not include the program or subcommand name). It returns the
// positional arguments left after flag parsing.
func Load(name string, args []string) (*Config, []string, error) {
	cfg := Defaults()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "YAML configuration file")
	outputDir := &stringFlag{val: cfg.OutputDir}
	fs.Var(outputDir, "output-dir", "directory for rectified documents")
	minArea := &floatFlag{val: cfg.MinArea}
	fs.Var(minArea, "min-area", "smallest document area in square pixels")
	maxRatio := &floatFlag{val: cfg.MaxAreaRatio}
	fs.Var(maxRatio, "max-area-ratio", "largest document area as a fraction of the photo")
	quality := &intFlag{val: cfg.JPEGQuality}
	fs.Var(quality, "jpeg-quality", "JPEG quality for written documents (1-100)")
	ocrLang := &stringFlag{val: cfg.OCRLanguage}
	fs.Var(ocrLang, "ocr-language", "Tesseract language code")
	inbox := &stringFlag{val: cfg.InboxDir}
	fs.Var(inbox, "inbox", "directory watched for new photos")
	workers := &intFlag{val: cfg.Workers}
	fs.Var(workers, "workers", "photos processed in parallel by the watcher")
	debounce := &durationFlag{val: cfg.Debounce}
	fs.Var(debounce, "debounce", "quiet period before a new photo is processed")
	logLevel := &stringFlag{val: cfg.LogLevel}
	fs.Var(logLevel, "log-level", "trace, debug, info, warn or error")
	baseURL := &stringFlag{val: cfg.PublicBaseURL}
	fs.Var(baseURL, "public-base-url", "URL prefix for delivered page links")

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, nil, err
	}

	if *configPath != "" {
		if err := mergeFile(*configPath, cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if outputDir.set {
		cfg.OutputDir = outputDir.val
	}
	if minArea.set {
		cfg.MinArea = minArea.val
	}
	if maxRatio.set {
		cfg.MaxAreaRatio = maxRatio.val
	}
	if quality.set {
		cfg.JPEGQuality = quality.val
	}
	if ocrLang.set {
		cfg.OCRLanguage = ocrLang.val
	}
	if inbox.set {
		cfg.InboxDir = inbox.val
	}
	if workers.set {
		cfg.Workers = workers.val
	}
	if debounce.set {
		cfg.Debounce = debounce.val
	}
	if logLevel.set {
		cfg.LogLevel = logLevel.val
	}
	if baseURL.set {
		cfg.PublicBaseURL = baseURL.val
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	env := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := env("OUTPUT_DIR"); ok {
		cfg.OutputDir = v
	}
	if v, ok := env("MIN_AREA"); ok {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMIN_AREA: %w", EnvPrefix, err)
		}
		cfg.MinArea = n
	}
	if v, ok := env("MAX_AREA_RATIO"); ok {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_AREA_RATIO: %w", EnvPrefix, err)
		}
		cfg.MaxAreaRatio = n
	}
	if v, ok := env("JPEG_QUALITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sJPEG_QUALITY: %w", EnvPrefix, err)
		}
		cfg.JPEGQuality = n
	}
	if v, ok := env("OCR_LANGUAGE"); ok {
		cfg.OCRLanguage = v
	}
	if v, ok := env("INBOX_DIR"); ok {
		cfg.InboxDir = v
	}
	if v, ok := env("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sWORKERS: %w", EnvPrefix, err)
		}
		cfg.Workers = n
	}
	if v, ok := env("DEBOUNCE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sDEBOUNCE: %w", EnvPrefix, err)
		}
		cfg.Debounce = d
	}
	if v, ok := env("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := env("PUBLIC_BASE_URL"); ok {
		cfg.PublicBaseURL = v
	}
	if v, ok := env("LINE_CHANNEL_TOKEN"); ok {
		cfg.LineChannelToken = v
	}
	return nil
}

func mergeFile(path string, base *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("config file is empty")
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	if fc.OutputDir != nil {
		base.OutputDir = *fc.OutputDir
	}
	if fc.MinArea != nil {
		base.MinArea = *fc.MinArea
	}
	if fc.MaxAreaRatio != nil {
		base.MaxAreaRatio = *fc.MaxAreaRatio
	}
	if fc.JPEGQuality != nil {
		base.JPEGQuality = *fc.JPEGQuality
	}
	if fc.OCRLanguage != nil {
		base.OCRLanguage = *fc.OCRLanguage
	}
	if fc.InboxDir != nil {
		base.InboxDir = *fc.InboxDir
	}
	if fc.Workers != nil {
		base.Workers = *fc.Workers
	}
	if fc.Debounce != nil {
		base.Debounce = *fc.Debounce
	}
	if fc.LogLevel != nil {
		base.LogLevel = *fc.LogLevel
	}
	if fc.PublicBaseURL != nil {
		base.PublicBaseURL = *fc.PublicBaseURL
	}
	if fc.LineChannelToken != nil {
		base.LineChannelToken = *fc.LineChannelToken
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.ExtractOptions().Validate(); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return errors.New("output dir must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ExtractOptions returns the pipeline options carried by c.
func (c *Config) ExtractOptions() rectify.Options {
	return rectify.Options{
		MinArea:      c.MinArea,
		MaxAreaRatio: c.MaxAreaRatio,
		JPEGQuality:  c.JPEGQuality,
	}
}

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}
