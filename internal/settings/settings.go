// Package settings loads the YAML run file of a publishing run.
package settings

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/lexpub/core/errors"
)

// Backend names.
const (
	BackendXHTML = "xhtml"
	BackendJSON  = "json"
	BackendODT   = "odt"
)

// Settings describes one publishing run.
type Settings struct {
	// Database is the lexical database file.
	Database string `yaml:"database"`
	// Publication names the publication to render; empty renders everything.
	Publication string `yaml:"publication,omitempty"`
	// Configuration is a YAML configuration tree; empty uses the stock tree.
	Configuration string `yaml:"configuration,omitempty"`
	// Styles is a YAML style sheet; empty uses the stock styles.
	Styles string `yaml:"styles,omitempty"`

	Backend string `yaml:"backend"`
	Output  string `yaml:"output"`
	Title   string `yaml:"title,omitempty"`
	// Bundle additionally packs the outputs into <output>.tar.xz.
	Bundle bool `yaml:"bundle,omitempty"`

	Workers        int  `yaml:"workers,omitempty"`
	SerializeReads bool `yaml:"serializeReads,omitempty"`
	CacheSize      int  `yaml:"cacheSize,omitempty"`

	WritingSystems WritingSystems    `yaml:"writingSystems"`
	Collation      Collation         `yaml:"collation,omitempty"`
	Abbreviations  map[string]string `yaml:"abbreviations,omitempty"`

	Log      Log      `yaml:"log"`
	Progress Progress `yaml:"progress,omitempty"`
}

// WritingSystems names the default vernacular and analysis writing systems.
type WritingSystems struct {
	Vernacular string `yaml:"vernacular"`
	Analysis   string `yaml:"analysis"`
}

// Collation holds the sort rules of the vernacular writing system, inline
// or in a file. RulesFile wins when both are set.
type Collation struct {
	Rules     string `yaml:"rules,omitempty"`
	RulesFile string `yaml:"rulesFile,omitempty"`
	// Disabled turns off letter headers.
	Disabled bool `yaml:"disabled,omitempty"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Progress configures the progress server. An empty Listen disables it.
type Progress struct {
	Listen         string        `yaml:"listen,omitempty"`
	AllowedOrigins []string      `yaml:"allowedOrigins,omitempty"`
	Interval       time.Duration `yaml:"interval,omitempty"`
	Metrics        bool          `yaml:"metrics,omitempty"`
}

// Defaults.
const (
	DefaultCacheSize  = 65536
	DefaultInterval   = 250 * time.Millisecond
	DefaultVernacular = "und"
	DefaultAnalysis   = "en"
)

// Default returns settings with every default applied.
func Default() *Settings {
	s := &Settings{}
	s.ApplyDefaults()
	return s
}

// Load reads the run file at path. Environment variables in the file are
// expanded and relative paths are resolved against the file's directory.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("settings file", path)
		}
		return nil, errors.NewIO("read", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &s); err != nil {
		return nil, errors.NewParse("YAML", path, err.Error())
	}
	s.resolvePaths(filepath.Dir(path))
	s.ApplyDefaults()
	return &s, nil
}

func (s *Settings) resolvePaths(dir string) {
	for _, p := range []*string{&s.Database, &s.Configuration, &s.Styles, &s.Output, &s.Collation.RulesFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// ApplyDefaults fills unset values.
func (s *Settings) ApplyDefaults() {
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = BackendXHTML
	}
	if s.Output == "" {
		s.Output = "dictionary" + Extension(s.Backend)
	}
	if s.Title == "" {
		s.Title = "Dictionary"
	}
	if s.CacheSize == 0 {
		s.CacheSize = DefaultCacheSize
	}
	if s.WritingSystems.Vernacular == "" {
		s.WritingSystems.Vernacular = DefaultVernacular
	}
	if s.WritingSystems.Analysis == "" {
		s.WritingSystems.Analysis = DefaultAnalysis
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Log.Format == "" {
		s.Log.Format = "text"
	}
	if s.Progress.Interval <= 0 {
		s.Progress.Interval = DefaultInterval
	}
}

// Validate checks the settings after defaults are applied.
func (s *Settings) Validate() error {
	switch {
	case s.Database == "":
		return errors.NewValidation("database", "required")
	case Extension(s.Backend) == "":
		return errors.NewValidation("backend", "unknown backend "+s.Backend+" (want xhtml, json or odt)")
	case s.Workers < 0:
		return errors.NewValidation("workers", "must not be negative")
	case s.CacheSize < 0:
		return errors.NewValidation("cacheSize", "must not be negative")
	case !oneOf(s.Log.Level, "debug", "info", "warn", "warning", "error"):
		return errors.NewValidation("log.level", "unknown level "+s.Log.Level)
	case !oneOf(s.Log.Format, "text", "json"):
		return errors.NewValidation("log.format", "unknown format "+s.Log.Format)
	case s.Progress.Listen == "" && s.Progress.Metrics:
		return errors.NewValidation("progress.metrics", "metrics are served by the progress server; set progress.listen")
	}
	return nil
}

// Extension returns the output file extension of a backend, or "".
func Extension(backend string) string {
	switch backend {
	case BackendXHTML:
		return ".xhtml"
	case BackendJSON:
		return ".json"
	case BackendODT:
		return ".odt"
	}
	return ""
}

// StylesheetPath returns the path of the CSS file written next to JSON
// output.
func (s *Settings) StylesheetPath() string {
	return strings.TrimSuffix(s.Output, filepath.Ext(s.Output)) + ".css"
}

// BundlePath returns the path of the publication bundle.
func (s *Settings) BundlePath() string {
	return strings.TrimSuffix(s.Output, filepath.Ext(s.Output)) + ".tar.xz"
}

// Marshal encodes the settings as YAML.
func (s *Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

func oneOf(v string, options ...string) bool {
	v = strings.ToLower(v)
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
