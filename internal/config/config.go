package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Error reports configuration that cannot be used. It is raised before any
// analysis starts.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Config struct {
	Project struct {
		Root      string `yaml:"root"`
		OutputDir string `yaml:"output_dir"` // defaults to <root>/.nullfix/out
	} `yaml:"project"`
	Checker struct {
		Command string        `yaml:"command"`
		Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
		Retries int           `yaml:"retries" validate:"gte=0,lte=10"`
	} `yaml:"checker"`
	Annotator struct {
		Nullable        string `yaml:"nullable" validate:"required"`
		Nonnull         string `yaml:"nonnull"`
		Depth           int    `yaml:"depth" validate:"gte=0"`
		KeepStyle       bool   `yaml:"keep_style"`
		TransitiveDepth int    `yaml:"transitive_depth" validate:"gte=0"`
		ConflictScope   string `yaml:"conflict_scope" validate:"oneof=location member"`
		Parallelism     int    `yaml:"parallelism" validate:"gte=1,lte=256"`
	} `yaml:"annotator"`
	Facts struct {
		// Required must name known fact files.
		Required []string `yaml:"required" validate:"dive,oneof=field_graph.tsv call_graph.tsv field_declarations.tsv method_info.tsv scope_widening.tsv fixes.json"`
	} `yaml:"facts"`
	Patcher struct {
		Command   string `yaml:"command"`
		Preflight bool   `yaml:"preflight"`
	} `yaml:"patcher"`
	Report struct {
		DB string `yaml:"db"`
	} `yaml:"report"`
	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=text json"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Checker.Timeout = 30 * time.Minute
	cfg.Checker.Retries = 1
	cfg.Annotator.Nullable = "javax.annotation.Nullable"
	cfg.Annotator.Nonnull = "javax.annotation.Nonnull"
	cfg.Annotator.Depth = 5
	cfg.Annotator.KeepStyle = true
	cfg.Annotator.TransitiveDepth = 0
	cfg.Annotator.ConflictScope = "location"
	cfg.Annotator.Parallelism = 4
	cfg.Patcher.Preflight = true
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

var validate = validator.New()

// LoadConfig reads path on top of the defaults. A missing file is not an
// error. Environment variables prefixed NULLFIX_ override the file.
func LoadConfig(path string) (Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, &Error{Err: err}
		default:
			if err := yaml.Unmarshal(file, &cfg); err != nil {
				return Config{}, &Error{Err: fmt.Errorf("parse %s: %w", path, err)}
			}
		}
	}

	// 3. Override with Environment Variables if present
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"NULLFIX_PROJECT_ROOT":        &cfg.Project.Root,
		"NULLFIX_PROJECT_OUTPUT_DIR":  &cfg.Project.OutputDir,
		"NULLFIX_CHECKER_COMMAND":     &cfg.Checker.Command,
		"NULLFIX_ANNOTATOR_NULLABLE":  &cfg.Annotator.Nullable,
		"NULLFIX_ANNOTATOR_NONNULL":   &cfg.Annotator.Nonnull,
		"NULLFIX_CONFLICT_SCOPE":      &cfg.Annotator.ConflictScope,
		"NULLFIX_PATCHER_COMMAND":     &cfg.Patcher.Command,
		"NULLFIX_REPORT_DB":           &cfg.Report.DB,
		"NULLFIX_LOG_LEVEL":           &cfg.Log.Level,
		"NULLFIX_LOG_FORMAT":          &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"NULLFIX_DEPTH":            &cfg.Annotator.Depth,
		"NULLFIX_PARALLELISM":      &cfg.Annotator.Parallelism,
		"NULLFIX_RETRIES":          &cfg.Checker.Retries,
		"NULLFIX_TRANSITIVE_DEPTH": &cfg.Annotator.TransitiveDepth,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Field: key, Err: err}
		}
		*dst = n
	}

	bools := map[string]*bool{
		"NULLFIX_KEEP_STYLE":        &cfg.Annotator.KeepStyle,
		"NULLFIX_PATCHER_PREFLIGHT": &cfg.Patcher.Preflight,
	}
	for key, dst := range bools {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &Error{Field: key, Err: err}
		}
		*dst = b
	}

	if v := os.Getenv("NULLFIX_CHECKER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &Error{Field: "NULLFIX_CHECKER_TIMEOUT", Err: err}
		}
		cfg.Checker.Timeout = d
	}
	return nil
}

// Validate checks field constraints. The first violation is reported.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &Error{
				Field: strings.ToLower(fe.Namespace()),
				Err:   fmt.Errorf("failed on %q with value %v", fe.Tag(), fe.Value()),
			}
		}
		return &Error{Err: err}
	}
	return nil
}

// OutputDir is where checker passes serialize their facts.
func (c Config) OutputDir() string {
	if c.Project.OutputDir != "" {
		return c.Project.OutputDir
	}
	return filepath.Join(c.Project.Root, ".nullfix", "out")
}

// ParseKeepStyle accepts the CLI's keep-style argument.
func ParseKeepStyle(s string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, &Error{Field: "keep-style", Err: fmt.Errorf("want true or false, got %q", s)}
	}
	return b, nil
}

// ParseDepth accepts the CLI's depth argument.
func ParseDepth(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, &Error{Field: "depth", Err: fmt.Errorf("want a non-negative integer, got %q", s)}
	}
	return n, nil
}
