// Package config defines the configuration model for the servefs binary and
// the file-serving middleware, including file loading (TOML or JSON),
// defaulting, and validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Defaults applied by Normalize.
const (
	DefaultMaxAge  = 10800 // seconds
	DefaultAddress = ":8080"
)

// NotFoundMode selects what happens when the requested file does not exist.
type NotFoundMode int

const (
	// NotFoundEmpty responds with an empty 404 body.
	NotFoundEmpty NotFoundMode = iota
	// NotFoundDefer hands the request to the caller's next handler.
	NotFoundDefer
	// NotFoundSubstitute serves a configured substitute file with a 404
	// status. Substitution happens at most once per request; if the
	// substitute itself is missing, the request is deferred.
	NotFoundSubstitute
)

// NotFoundPolicy is the resolved form of the not_found option. It is decided
// once during Normalize and never re-inspected dynamically.
type NotFoundPolicy struct {
	Mode NotFoundMode
	Path string // substitute file path, relative to base_dir
}

// IndexPolicy is the resolved form of the implicit_index option.
type IndexPolicy struct {
	Enabled    bool
	Extensions []string // deduplicated, in configured order, without dots
}

// Config is the top-level configuration for the servefs binary.
type Config struct {
	Server     Server     `toml:"server" json:"server"`
	Logging    Logging    `toml:"logging" json:"logging"`
	FileServer FileServer `toml:"file_server" json:"file_server"`
}

// Server holds settings for the HTTP listener wired around the middleware.
type Server struct {
	Address     string `toml:"address" json:"address"`
	H2C         bool   `toml:"h2c" json:"h2c"`
	Gzip        *bool  `toml:"gzip" json:"gzip"`
	MetricsPath string `toml:"metrics_path" json:"metrics_path"` // empty disables /metrics
}

// Logging holds logger settings.
type Logging struct {
	Level     string `toml:"level" json:"level"`   // debug, info, warn, error
	Format    string `toml:"format" json:"format"` // json, console, auto
	AccessLog *bool  `toml:"access_log" json:"access_log"`
}

// FileServer holds the middleware options. The not_found and implicit_index
// fields accept more than one shape in config files (bool or string, bool or
// string list); Normalize converts them into NotFoundPolicy and IndexPolicy
// exactly once.
type FileServer struct {
	BaseDir       string            `toml:"base_dir" json:"base_dir"`
	MaxAge        *int              `toml:"max_age" json:"max_age"` // seconds, >= 0
	ETag          *bool             `toml:"etag" json:"etag"`
	LastModified  *bool             `toml:"last_modified" json:"last_modified"`
	Conditional   *bool             `toml:"conditional" json:"conditional"`
	Range         *bool             `toml:"range" json:"range"`
	TrailingSlash *bool             `toml:"trailing_slash" json:"trailing_slash"`
	HushErrors    *bool             `toml:"hush_errors" json:"hush_errors"`
	NotFound      any               `toml:"not_found" json:"not_found"`
	ImplicitIndex any               `toml:"implicit_index" json:"implicit_index"`
	MimeTypes     map[string]string `toml:"mime_types" json:"mime_types"`

	// Resolved by Normalize.
	NotFoundPolicy NotFoundPolicy `toml:"-" json:"-"`
	IndexPolicy    IndexPolicy    `toml:"-" json:"-"`
}

// Error describes a configuration problem, optionally tied to a file.
type Error struct {
	FilePath string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.FilePath != "" {
		if e.Err != nil {
			return fmt.Sprintf("config %s: %s: %v", e.FilePath, e.Message, e.Err)
		}
		return fmt.Sprintf("config %s: %s", e.FilePath, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("config: %s", e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Default returns a fully normalized configuration with every field at its
// documented default.
func Default() *Config {
	cfg := &Config{}
	// Normalize cannot fail on a zero config.
	if err := cfg.Normalize(); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads and parses a configuration file. Files ending in .toml or .json
// are parsed accordingly; anything else is tried as TOML first, then JSON.
// The returned configuration is normalized and validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{FilePath: path, Message: "failed to read configuration file", Err: err}
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		if err = toml.Unmarshal(data, cfg); err != nil {
			if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
				return nil, &Error{FilePath: path, Message: "file is neither valid TOML nor valid JSON", Err: err}
			}
			err = nil
		}
	}
	if err != nil {
		return nil, &Error{FilePath: path, Message: "failed to parse configuration file", Err: err}
	}

	if err := cfg.Normalize(); err != nil {
		if cerr, ok := err.(*Error); ok {
			cerr.FilePath = path
		}
		return nil, err
	}
	return cfg, nil
}

// Normalize applies defaults and resolves the dynamically shaped options.
// It is idempotent.
func (c *Config) Normalize() error {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.Gzip == nil {
		c.Server.Gzip = boolPtr(true)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
	if c.Logging.AccessLog == nil {
		c.Logging.AccessLog = boolPtr(true)
	}
	return c.FileServer.Normalize()
}

// Normalize applies the middleware option defaults and converts not_found
// and implicit_index into their tagged policy forms.
func (f *FileServer) Normalize() error {
	if f.BaseDir == "" {
		f.BaseDir = "."
	}
	if f.MaxAge == nil {
		f.MaxAge = intPtr(DefaultMaxAge)
	} else if *f.MaxAge < 0 {
		return &Error{Message: fmt.Sprintf("max_age must be >= 0, got %d", *f.MaxAge)}
	}
	if f.ETag == nil {
		f.ETag = boolPtr(true)
	}
	if f.LastModified == nil {
		f.LastModified = boolPtr(true)
	}
	if f.Conditional == nil {
		f.Conditional = boolPtr(true)
	}
	if f.Range == nil {
		f.Range = boolPtr(true)
	}
	if f.TrailingSlash == nil {
		f.TrailingSlash = boolPtr(true)
	}
	if f.HushErrors == nil {
		f.HushErrors = boolPtr(false)
	}

	policy, err := resolveNotFound(f.NotFound)
	if err != nil {
		return err
	}
	f.NotFoundPolicy = policy

	index, err := resolveImplicitIndex(f.ImplicitIndex)
	if err != nil {
		return err
	}
	f.IndexPolicy = index

	for ext, typ := range f.MimeTypes {
		if typ == "" {
			return &Error{Message: fmt.Sprintf("empty MIME type for extension %q", ext)}
		}
	}
	return nil
}

func resolveNotFound(v any) (NotFoundPolicy, error) {
	switch val := v.(type) {
	case nil:
		return NotFoundPolicy{Mode: NotFoundEmpty}, nil
	case bool:
		if val {
			return NotFoundPolicy{Mode: NotFoundEmpty}, nil
		}
		return NotFoundPolicy{Mode: NotFoundDefer}, nil
	case string:
		if val == "" {
			return NotFoundPolicy{}, &Error{Message: "not_found file path must not be empty"}
		}
		return NotFoundPolicy{Mode: NotFoundSubstitute, Path: val}, nil
	default:
		return NotFoundPolicy{}, &Error{Message: fmt.Sprintf("not_found must be a bool or a file path, got %T", v)}
	}
}

func resolveImplicitIndex(v any) (IndexPolicy, error) {
	switch val := v.(type) {
	case nil:
		return IndexPolicy{Enabled: true, Extensions: []string{"html"}}, nil
	case bool:
		if val {
			return IndexPolicy{Enabled: true, Extensions: []string{"html"}}, nil
		}
		return IndexPolicy{Enabled: false}, nil
	case []string:
		return indexPolicyFromList(val)
	case []any:
		exts := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := e.(string)
			if !ok {
				return IndexPolicy{}, &Error{Message: fmt.Sprintf("implicit_index list must contain strings, got %T", e)}
			}
			exts = append(exts, s)
		}
		return indexPolicyFromList(exts)
	default:
		return IndexPolicy{}, &Error{Message: fmt.Sprintf("implicit_index must be a bool or a list of extensions, got %T", v)}
	}
}

func indexPolicyFromList(exts []string) (IndexPolicy, error) {
	if len(exts) == 0 {
		return IndexPolicy{}, &Error{Message: "implicit_index extension list must not be empty"}
	}
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" {
			return IndexPolicy{}, &Error{Message: "implicit_index extensions must not be empty"}
		}
		if strings.ContainsAny(ext, "/\\") {
			return IndexPolicy{}, &Error{Message: fmt.Sprintf("invalid implicit_index extension %q", ext)}
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return IndexPolicy{Enabled: true, Extensions: out}, nil
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
