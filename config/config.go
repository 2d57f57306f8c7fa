// Package config loads the project configuration file, bbt.yaml.
//
// The file lives in the project root. Every relative path it contains is
// resolved against that directory, not the process working directory.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file name.
const FileName = "bbt.yaml"

// Diff modes.
const (
	DiffRelaxed = "relaxed"
	DiffStrict  = "strict"
)

// Translator defaults.
const (
	DefaultTranslator  = "google"
	DefaultConcurrency = 6
	DefaultBatchSize   = 50
	DefaultDelay       = 332 * time.Millisecond
	DefaultRetries     = 3
	DefaultTimeout     = 60 * time.Second
)

// ErrNotFound is returned by Load when the configuration file is missing.
var ErrNotFound = errors.New("configuration file not found")

// ErrExists is returned by Init when the configuration file already exists.
var ErrExists = errors.New("configuration file already exists")

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the bbt.yaml structure.
type Config struct {
	// Langs lists the project locales. The first one is the reference
	// locale that every other locale is translated from.
	Langs []string `yaml:"langs"`
	// Src is the directory scanned for locale files.
	Src string `yaml:"src"`
	// Test matches candidate locale files by their src-relative path.
	Test string `yaml:"test"`
	// Exclude lists directory patterns skipped while scanning. Patterns
	// ending in $ only hide the files directly inside matching directories.
	Exclude []string `yaml:"exclude,omitempty"`
	// ResourcePath is the root that regenerated locale files are written under.
	ResourcePath string `yaml:"resource_path"`
	// ExcelPath is the master table, .xlsx or .csv.
	ExcelPath string `yaml:"excel_path"`
	// DiffMode is relaxed or strict.
	DiffMode string `yaml:"diff_mode"`
	// OutExt is the extension of regenerated locale files, without the dot.
	OutExt string `yaml:"out_ext"`
	// Parser is the locale file format: json, yaml, toml or properties.
	Parser string `yaml:"parser"`
	// RemoveNullKeys drops collected keys that have no reference text.
	RemoveNullKeys bool `yaml:"remove_null_keys,omitempty"`
	// Translator tunes the translate command.
	Translator Translator `yaml:"translator"`

	// Root is the directory the file was loaded from.
	Root string `yaml:"-"`
}

// Translator holds translate command settings.
type Translator struct {
	// Name is the backend: google, deepl or chatgpt.
	Name string `yaml:"name"`
	// Concurrency bounds in-flight batches.
	Concurrency int `yaml:"concurrency"`
	// BatchSize is the number of texts per request.
	BatchSize int `yaml:"batch_size"`
	// Delay spaces out batch launches and is the base retry backoff.
	Delay time.Duration `yaml:"delay"`
	// Retries is the number of retries after the first failed attempt.
	Retries int `yaml:"retries"`
	// Timeout bounds a single request.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Proxy is an optional HTTP proxy URL.
	Proxy string `yaml:"proxy,omitempty"`
	// BaseURL overrides the backend endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
	// Model selects the chat model for the chatgpt backend.
	Model string `yaml:"model,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{Translator: Translator{Retries: DefaultRetries}}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if len(c.Langs) == 0 {
		c.Langs = []string{"zh", "en"}
	}
	if c.Src == "" {
		c.Src = "./src"
	}
	if c.Test == "" {
		c.Test = `.*\.tr$`
	}
	if c.Exclude == nil {
		c.Exclude = []string{"node_modules"}
	}
	if c.ResourcePath == "" {
		c.ResourcePath = "./"
	}
	if c.ExcelPath == "" {
		c.ExcelPath = "./bbt-lang/bbt.csv"
	}
	if c.DiffMode == "" {
		c.DiffMode = DiffRelaxed
	}
	if c.OutExt == "" {
		c.OutExt = "tr"
	}
	if c.Parser == "" {
		c.Parser = "json"
	}
	t := &c.Translator
	if t.Name == "" {
		t.Name = DefaultTranslator
	}
	if t.Concurrency <= 0 {
		t.Concurrency = DefaultConcurrency
	}
	if t.BatchSize <= 0 {
		t.BatchSize = DefaultBatchSize
	}
	if t.Delay <= 0 {
		t.Delay = DefaultDelay
	}
	if t.Retries < 0 {
		t.Retries = 0
	}
	if t.Timeout <= 0 {
		t.Timeout = DefaultTimeout
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads and validates bbt.yaml from dir. Unknown keys are rejected.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads and validates a configuration file at any path. Root is
// set to the file's directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (run \"bbt init\" to create one)", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	c.Root = root
	return c, nil
}

// Parse decodes and validates configuration data.
func Parse(data []byte) (*Config, error) {
	c := &Config{Translator: Translator{Retries: DefaultRetries}}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration for mistakes that would otherwise
// surface halfway through a command.
func (c *Config) Validate() error {
	if len(c.Langs) == 0 {
		return fmt.Errorf("langs must list at least one locale")
	}
	seen := make(map[string]bool, len(c.Langs))
	for _, lang := range c.Langs {
		if _, err := language.Parse(strings.ReplaceAll(lang, "_", "-")); err != nil {
			return fmt.Errorf("langs: %q is not a valid locale code", lang)
		}
		if seen[lang] {
			return fmt.Errorf("langs: %q is listed twice", lang)
		}
		seen[lang] = true
	}
	if _, err := regexp.Compile(c.Test); err != nil {
		return fmt.Errorf("test: %w", err)
	}
	for _, expr := range c.Exclude {
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("exclude: %w", err)
		}
	}
	switch c.DiffMode {
	case DiffRelaxed, DiffStrict:
	default:
		return fmt.Errorf("diff_mode %q is unknown (valid: relaxed, strict)", c.DiffMode)
	}
	switch strings.ToLower(filepath.Ext(c.ExcelPath)) {
	case ".xlsx", ".csv":
	default:
		return fmt.Errorf("excel_path %q must end in .xlsx or .csv", c.ExcelPath)
	}
	switch c.Parser {
	case "json", "yaml", "yml", "toml", "properties":
	default:
		return fmt.Errorf("parser %q is unknown (valid: json, yaml, toml, properties)", c.Parser)
	}
	switch c.Translator.Name {
	case "google", "deepl", "chatgpt":
	default:
		return fmt.Errorf("translator.name %q is unknown (valid: google, deepl, chatgpt)", c.Translator.Name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// ReferenceLang returns the locale other locales are translated from.
func (c *Config) ReferenceLang() string { return c.Langs[0] }

// TestRegexp compiles Test.
func (c *Config) TestRegexp() *regexp.Regexp {
	return regexp.MustCompile(c.Test)
}

// Abs resolves p against Root.
func (c *Config) Abs(p string) string {
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// MasterPath returns the absolute master table path.
func (c *Config) MasterPath() string { return c.Abs(c.ExcelPath) }

// ResourceRoot returns the absolute output root for locale files.
func (c *Config) ResourceRoot() string { return c.Abs(c.ResourcePath) }

// ---------------------------------------------------------------------------
// Init
// ---------------------------------------------------------------------------

const template = `# bbt project configuration.

# Locales, reference locale first.
langs: [zh, en]

# Directory scanned for locale files, and the pattern selecting them.
src: ./src
test: '.*\.tr$'

# Directories to skip. A pattern ending in $ only skips the files directly
# inside matching directories.
exclude:
  - node_modules

# Master table (.xlsx or .csv).
excel_path: ./bbt-lang/bbt.csv

# relaxed: merge new texts into the master table.
# strict: when the reference text changes, clear the other locales.
diff_mode: relaxed

# Where "bbt write" puts regenerated locale files, their extension and format.
resource_path: ./
out_ext: tr
parser: json

translator:
  name: google
  concurrency: 6
  batch_size: 50
  delay: 332ms
  retries: 3
`

// Init writes a commented default bbt.yaml into dir and returns its path.
func Init(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return path, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
