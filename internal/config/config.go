// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/grace-tui/internal/counsel"
	"github.com/jeranaias/grace-tui/internal/gemini"
	"github.com/jeranaias/grace-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete grace configuration.
type Config struct {
	Gemini  GeminiConfig  `toml:"gemini" json:"gemini"`
	Persona PersonaConfig `toml:"persona" json:"persona"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
	UI      UIConfig      `toml:"ui" json:"ui"`

	// keySource names where the API key came from ("file", an env var name,
	// or "" when unset). Never persisted.
	keySource string
}

// GeminiConfig configures the remote model.
type GeminiConfig struct {
	APIKey  string `toml:"api_key" json:"api_key"`
	BaseURL string `toml:"base_url" json:"base_url"`
	// Models are tried in order until one answers.
	Models            []string `toml:"models" json:"models"`
	TimeoutSecs       int      `toml:"timeout_secs" json:"timeout_secs"`
	RequestsPerMinute int      `toml:"requests_per_minute" json:"requests_per_minute"`
	// Temperature is omitted from requests when unset.
	Temperature     *float64 `toml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxOutputTokens int      `toml:"max_output_tokens" json:"max_output_tokens"`
}

// PersonaConfig holds the counselor's texts.
type PersonaConfig struct {
	Name              string `toml:"name" json:"name"`
	Tagline           string `toml:"tagline" json:"tagline"`
	SystemInstruction string `toml:"system_instruction,multiline" json:"system_instruction"`
	OpeningPrompt     string `toml:"opening_prompt" json:"opening_prompt"`
	Greeting          string `toml:"greeting" json:"greeting"`
	ClosingPrompt     string `toml:"closing_prompt" json:"closing_prompt"`
	Farewell          string `toml:"farewell" json:"farewell"`
	Apology           string `toml:"apology" json:"apology"`
}

// StorageConfig configures the transcript archive.
type StorageConfig struct {
	DatabasePath string `toml:"database_path" json:"database_path"`
	// Autosave archives the transcript after every reply.
	Autosave bool `toml:"autosave" json:"autosave"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	Path  string `toml:"path" json:"path"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`
	// WordWrap caps the bubble width in columns; 0 uses the terminal width.
	WordWrap       int  `toml:"word_wrap" json:"word_wrap"`
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	p := counsel.DefaultPersona()
	dir, _ := Dir()
	return &Config{
		Gemini: GeminiConfig{
			BaseURL:           gemini.DefaultBaseURL,
			Models:            p.Models,
			TimeoutSecs:       60,
			RequestsPerMinute: 15,
		},
		Persona: PersonaConfig{
			Name:              p.Name,
			Tagline:           p.Tagline,
			SystemInstruction: p.SystemInstruction,
			OpeningPrompt:     p.OpeningPrompt,
			Greeting:          p.Greeting,
			ClosingPrompt:     p.ClosingPrompt,
			Farewell:          p.Farewell,
			Apology:           p.Apology,
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(dir, "transcripts.db"),
			Autosave:     true,
		},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(dir, "grace.log"),
		},
		UI: UIConfig{
			Theme:          "auto",
			ShowTimestamps: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// PathEnv overrides the config file location.
const PathEnv = "GRACE_CONFIG"

// Dir returns ~/.grace.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".grace"), nil
}

// DefaultPath returns the config file path: $GRACE_CONFIG or
// ~/.grace/config.toml.
func DefaultPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(PathEnv)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions tightens a config file that holds a key to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=value pairs from the given files (default ".env").
// Variables already in the environment win. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the config file at path (DefaultPath when empty), layers the
// environment on top and validates the result. A missing file is not an
// error: defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return ValidateErrors{{Field: keys[0], Message: "unknown key (all unknown: " + strings.Join(keys, ", ") + ")"}}
	}
	if strings.TrimSpace(cfg.Gemini.APIKey) != "" {
		cfg.keySource = "file"
	}
	return nil
}

// SetDefaults fills zero values that have a meaningful default.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = d.Gemini.BaseURL
	}
	if len(trimList(c.Gemini.Models)) == 0 {
		c.Gemini.Models = d.Gemini.Models
	}
	if c.Gemini.TimeoutSecs == 0 {
		c.Gemini.TimeoutSecs = d.Gemini.TimeoutSecs
	}
	if c.Persona.Name == "" {
		c.Persona.Name = d.Persona.Name
	}
	if c.Persona.Tagline == "" {
		c.Persona.Tagline = d.Persona.Tagline
	}
	if c.Persona.Apology == "" {
		c.Persona.Apology = d.Persona.Apology
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = d.Storage.DatabasePath
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// APIKeyEnvVars are checked in order; the first non-empty one wins.
var APIKeyEnvVars = []string{
	"GRACE_API_KEY",
	"GEMINI_API_KEY",
	"VITE_API_KEY",
	"NEXT_PUBLIC_API_KEY",
	"API_KEY",
}

// ApplyEnvOverrides layers GRACE_* variables over the file values.
func (c *Config) ApplyEnvOverrides() {
	for _, name := range APIKeyEnvVars {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			c.Gemini.APIKey = key
			c.keySource = name
			break
		}
	}

	// GRACE_MODELS: comma-separated candidate list
	if models := os.Getenv("GRACE_MODELS"); strings.TrimSpace(models) != "" {
		c.Gemini.Models = trimList(strings.Split(models, ","))
	}

	if base := os.Getenv("GRACE_BASE_URL"); base != "" {
		c.Gemini.BaseURL = base
	}

	if db := os.Getenv("GRACE_DB"); db != "" {
		c.Storage.DatabasePath = db
	}

	if level := os.Getenv("GRACE_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if theme := os.Getenv("GRACE_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// APIKeySource reports where the key came from: "file", an environment
// variable name, or "" if there is no key.
func (c *Config) APIKeySource() string {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return ""
	}
	if c.keySource == "" {
		return "file"
	}
	return c.keySource
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Gemini.TimeoutSecs) * time.Second
}

// CounselPersona builds the controller persona from the config.
func (c *Config) CounselPersona() counsel.Persona {
	return counsel.Persona{
		Name:              c.Persona.Name,
		Tagline:           c.Persona.Tagline,
		Models:            trimList(c.Gemini.Models),
		SystemInstruction: c.Persona.SystemInstruction,
		OpeningPrompt:     c.Persona.OpeningPrompt,
		Greeting:          c.Persona.Greeting,
		ClosingPrompt:     c.Persona.ClosingPrompt,
		Farewell:          c.Persona.Farewell,
		Apology:           c.Persona.Apology,
	}
}

// GenerationConfig returns the sampling parameters, or nil when none are set.
func (c *Config) GenerationConfig() *gemini.GenerationConfig {
	if c.Gemini.Temperature == nil && c.Gemini.MaxOutputTokens == 0 {
		return nil
	}
	gc := &gemini.GenerationConfig{MaxOutputTokens: c.Gemini.MaxOutputTokens}
	if c.Gemini.Temperature != nil {
		t := *c.Gemini.Temperature
		gc.Temperature = &t
	}
	return gc
}

// NewClient builds a Gemini client from the config.
func (c *Config) NewClient() *gemini.Client {
	return gemini.NewClient(c.Gemini.APIKey).
		WithBaseURL(c.Gemini.BaseURL).
		WithTimeout(c.Timeout()).
		WithRateLimit(c.Gemini.RequestsPerMinute)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration as TOML, atomically and with 0600
// permissions since it may hold the API key.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# grace configuration file\n")
	buf.WriteString("# Environment variables (GRACE_API_KEY, GRACE_MODELS, ...) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validThemes    = map[string]bool{"dark": true, "light": true, "auto": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
)

// Validate validates the configuration and returns any errors. A missing API
// key is not a validation error; the session reports it when it starts.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if len(trimList(c.Gemini.Models)) == 0 {
		errs = append(errs, ValidationError{Field: "gemini.models", Message: "at least one model is required"})
	}
	if c.Gemini.BaseURL != "" {
		if u, err := url.Parse(c.Gemini.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{Field: "gemini.base_url", Message: fmt.Sprintf("invalid URL %q", c.Gemini.BaseURL)})
		}
	}
	if c.Gemini.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{Field: "gemini.timeout_secs", Message: "must be positive"})
	}
	if c.Gemini.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "gemini.requests_per_minute", Message: "cannot be negative"})
	}
	if t := c.Gemini.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, ValidationError{Field: "gemini.temperature", Message: "must be between 0 and 2"})
	}
	if c.Gemini.MaxOutputTokens < 0 {
		errs = append(errs, ValidationError{Field: "gemini.max_output_tokens", Message: "cannot be negative"})
	}

	if strings.TrimSpace(c.Persona.SystemInstruction) == "" {
		errs = append(errs, ValidationError{Field: "persona.system_instruction", Message: "cannot be blank"})
	}
	if strings.TrimSpace(c.Persona.OpeningPrompt) == "" && strings.TrimSpace(c.Persona.Greeting) == "" {
		errs = append(errs, ValidationError{Field: "persona.greeting", Message: "set opening_prompt or greeting"})
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{Field: "log.level", Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)})
	}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{Field: "ui.theme", Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)})
	}
	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "cannot be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "gemini.models").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return nil, nil
		}
		return field.Elem().Interface(), nil
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type; lists are comma-separated.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	if err := setFieldValue(field, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if key == "gemini.api_key" {
		c.keySource = "file"
	}
	return nil
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(strings.TrimSpace(key), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return reflect.Value{}, fmt.Errorf("invalid key %q, expected section.name", key)
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", part)
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the exported field whose toml tag name is name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := strings.Split(f.Tag.Get("toml"), ",")[0]
		if strings.EqualFold(tag, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if field.Kind() == reflect.Ptr {
		elem := reflect.New(field.Type().Elem())
		if err := setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strings.TrimSpace(strVal), 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strings.TrimSpace(strVal))
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				field.Set(reflect.ValueOf(trimList(strings.Split(strVal, ","))))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dot notation.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		sec := t.Field(i)
		if !sec.IsExported() || sec.Type.Kind() != reflect.Struct {
			continue
		}
		secName := strings.Split(sec.Tag.Get("toml"), ",")[0]
		for j := 0; j < sec.Type.NumField(); j++ {
			name := strings.Split(sec.Type.Field(j).Tag.Get("toml"), ",")[0]
			keys = append(keys, secName+"."+name)
		}
	}
	return keys
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Gemini.Models = append([]string(nil), c.Gemini.Models...)
	if c.Gemini.Temperature != nil {
		t := *c.Gemini.Temperature
		clone.Gemini.Temperature = &t
	}
	return &clone
}

// String returns the config as indented JSON with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Gemini.APIKey != "" {
		safe.Gemini.APIKey = "[REDACTED fingerprint=" + gemini.Fingerprint(c.Gemini.APIKey) + "]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
