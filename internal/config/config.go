package config

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fidokit/nodediff/internal/nodelist"
	"github.com/fidokit/nodediff/internal/q/cascade"
	"golang.org/x/text/encoding/charmap"
)

// Environment variables read by Load.
const (
	EnvEncoding = "NODEDIFF_ENCODING"
	EnvJobs     = "NODEDIFF_JOBS"
	EnvTempDir  = "NODEDIFF_TEMPDIR"
)

// FileName is the config file looked up in the user config directory and, walking upward, from the working directory.
var FileName = filepath.Join(".nodediff", "config.json")

// Config holds nodediff settings.
type Config struct {
	// Encoding is the IANA name of the single-byte code page nodelists are stored in. Defaults to "cp866".
	Encoding           string             `json:"encoding"`
	EncodingProvidence cascade.Providence `json:"-"`

	// Jobs bounds how many nodelists a directory batch processes at once. Defaults to 1.
	Jobs           int                `json:"jobs"`
	JobsProvidence cascade.Providence `json:"-"`

	// TempDir is where intermediate files are created. Empty means next to the file being replaced, which keeps the final rename on one filesystem.
	TempDir           string             `json:"tempdir,omitempty"`
	TempDirProvidence cascade.Providence `json:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"encoding": nodelist.DefaultEncoding,
		"jobs":     1,
		"tempdir":  "",
	}
}

var envVars = map[string]string{
	"encoding": EnvEncoding,
	"jobs":     EnvJobs,
	"tempdir":  EnvTempDir,
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	var cfg Config
	if err := cascade.New().WithDefaults(defaults()).StrictlyLoad(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the standard cascade described in the package documentation.
func Load() (Config, error) {
	return LoadFrom(cascade.InUserConfigDirectory(FileName), "")
}

// LoadFrom reads defaults, then userFile, then the nearest FileName above start (the working directory if ""), then the environment, and validates the result.
func LoadFrom(userFile, start string) (Config, error) {
	var cfg Config
	err := cascade.New().
		WithDefaults(defaults()).
		WithJSONFile(userFile).
		WithNearestJSONFile(FileName, start).
		WithEnv(envVars).
		StrictlyLoad(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load configuration: %w", err)
	}
	cfg.Encoding = strings.TrimSpace(cfg.Encoding)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := nodelist.LookupEncoding(c.Encoding); err != nil {
		return fmt.Errorf("invalid configuration: encoding (from %s): %w", c.EncodingProvidence, err)
	}
	if c.Jobs <= 0 {
		return fmt.Errorf("invalid configuration: jobs must be > 0 (got %d from %s)", c.Jobs, c.JobsProvidence)
	}
	return nil
}

// Charmap resolves Encoding.
func (c Config) Charmap() (*charmap.Charmap, error) {
	return nodelist.LookupEncoding(c.Encoding)
}

// OverrideEncoding sets Encoding from a command-line flag. A blank name leaves c unchanged.
func (c *Config) OverrideEncoding(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if _, err := nodelist.LookupEncoding(name); err != nil {
		return err
	}
	c.Encoding = name
	c.EncodingProvidence = cascade.Providence{SourceType: "flag"}
	return nil
}

// TempDirPath returns TempDir with "~" expanded, or "" when temp files go next to their target.
func (c Config) TempDirPath() string {
	if !c.TempDirProvidence.IsSet() || c.TempDirProvidence.Default() {
		return ""
	}
	return cascade.ExpandPath(strings.TrimSpace(c.TempDir))
}

// WriteJSON writes c as indented JSON.
func WriteJSON(w io.Writer, c Config) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(c)
}
