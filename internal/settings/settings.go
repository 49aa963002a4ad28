package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dshills/launchsearch/internal/filters"
)

const (
	envPrefix  = "LAUNCHSEARCH"
	configName = "launchsearch"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid settings")

// Sources holds the per-source enable flags
type Sources struct {
	Apps          bool `mapstructure:"apps" json:"apps"`
	AppShortcuts  bool `mapstructure:"appShortcuts" json:"appShortcuts"`
	Calculator    bool `mapstructure:"calculator" json:"calculator"`
	UnitConverter bool `mapstructure:"unitConverter" json:"unitConverter"`
	Contacts      bool `mapstructure:"contacts" json:"contacts"`
	Calendar      bool `mapstructure:"calendar" json:"calendar"`
	Files         bool `mapstructure:"files" json:"files"`
	Websites      bool `mapstructure:"websites" json:"websites"`
	Wikipedia     bool `mapstructure:"wikipedia" json:"wikipedia"`
	Locations     bool `mapstructure:"locations" json:"locations"`
	Favorites     bool `mapstructure:"favorites" json:"favorites"`
}

// Behavior holds search behavior settings
type Behavior struct {
	LaunchOnEnter      bool          `mapstructure:"launchOnEnter" json:"launchOnEnter"`
	ResultsBottomUp    bool          `mapstructure:"resultsBottomUp" json:"resultsBottomUp"`
	DefaultFilter      filters.State `mapstructure:"defaultFilter" json:"defaultFilter"`
	ShortcutCandidates int           `mapstructure:"shortcutCandidates" json:"shortcutCandidates" validate:"min=1,max=100"`
	ShortcutWorkers    int           `mapstructure:"shortcutWorkers" json:"shortcutWorkers" validate:"min=1,max=64"`
	ShortcutCacheTTL   time.Duration `mapstructure:"shortcutCacheTTL" json:"shortcutCacheTTL" validate:"min=0"`
	ArticlesDelay      time.Duration `mapstructure:"articlesDelay" json:"articlesDelay" validate:"min=0"`
	PlacesDelay        time.Duration `mapstructure:"placesDelay" json:"placesDelay" validate:"min=0"`
}

// Storage selects the persistence backend
type Storage struct {
	Backend string `mapstructure:"backend" json:"backend" validate:"required,oneof=sqlite badger"`
	Path    string `mapstructure:"path" json:"path" validate:"required"`
}

// Catalog points at the installed apps catalog
type Catalog struct {
	Path        string `mapstructure:"path" json:"path"`
	OpenCommand string `mapstructure:"openCommand" json:"openCommand"`
}

// Executor configures action execution
type Executor struct {
	PoolSize int `mapstructure:"poolSize" json:"poolSize" validate:"min=1,max=256"`
}

// Settings is an immutable snapshot of the launcher settings
type Settings struct {
	Sources  Sources  `mapstructure:"sources" json:"sources"`
	Behavior Behavior `mapstructure:"behavior" json:"behavior"`
	Storage  Storage  `mapstructure:"storage" json:"storage"`
	Catalog  Catalog  `mapstructure:"catalog" json:"catalog"`
	Executor Executor `mapstructure:"executor" json:"executor"`
}

// Default returns the built-in settings
func Default() Settings {
	v := viper.New()
	setDefaults(v)
	var s Settings
	// Defaults always decode.
	_ = v.Unmarshal(&s)
	s.Storage.Path = expandHome(s.Storage.Path)
	return s
}

func setDefaults(v *viper.Viper) {
	for _, key := range []string{
		"apps", "appShortcuts", "calculator", "unitConverter", "contacts", "calendar",
		"files", "websites", "wikipedia", "locations", "favorites",
	} {
		v.SetDefault("sources."+key, true)
	}

	def := filters.Default()
	v.SetDefault("behavior.defaultFilter.allowNetwork", def.AllowNetwork)
	v.SetDefault("behavior.defaultFilter.hiddenItems", def.HiddenItems)
	for _, c := range filters.Categories {
		v.SetDefault("behavior.defaultFilter."+string(c), def.Enabled(c))
	}

	v.SetDefault("behavior.launchOnEnter", true)
	v.SetDefault("behavior.resultsBottomUp", false)
	v.SetDefault("behavior.shortcutCandidates", 12)
	v.SetDefault("behavior.shortcutWorkers", 4)
	v.SetDefault("behavior.shortcutCacheTTL", 30*time.Second)
	v.SetDefault("behavior.articlesDelay", 750*time.Millisecond)
	v.SetDefault("behavior.placesDelay", 250*time.Millisecond)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", filepath.Join("~", ".launchsearch", "launchsearch.db"))

	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.openCommand", "")

	v.SetDefault("executor.poolSize", 4)
}

// validate is a single instance of Validate, it caches struct info
var validate = validator.New()

// Validate checks field constraints
func Validate(s Settings) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("field '%s': rule '%s' (value: '%v')", e.StructNamespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Manager loads settings and serves the current snapshot. When watching, edits
// to the settings file are picked up; invalid edits keep the previous snapshot.
type Manager struct {
	v       *viper.Viper
	current atomic.Pointer[Settings]
	logger  *slog.Logger

	mu        sync.Mutex
	listeners []func(Settings)
}

// Option configures a Manager
type Option func(*loadOptions)

type loadOptions struct {
	envFiles []string
	logger   *slog.Logger
}

// WithEnvFiles loads the given .env files instead of ./.env
func WithEnvFiles(files ...string) Option {
	return func(o *loadOptions) {
		o.envFiles = files
	}
}

// WithLogger sets the logger for the manager
func WithLogger(logger *slog.Logger) Option {
	return func(o *loadOptions) {
		o.logger = logger
	}
}

// Load reads settings from configFile, or from launchsearch.{yaml,toml,json}
// in ~/.launchsearch and the working directory when configFile is empty.
// Environment variables prefixed with LAUNCHSEARCH_ override file values.
func Load(configFile string, opts ...Option) (*Manager, error) {
	o := loadOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	// Missing .env files are fine.
	if len(o.envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(o.envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".launchsearch"))
		}
		v.AddConfigPath(".")
		v.SetConfigName(configName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		o.logger.Debug("no settings file found, using defaults")
	} else {
		o.logger.Debug("using settings file", "path", v.ConfigFileUsed())
	}

	m := &Manager{v: v, logger: o.logger}
	s, err := m.decode()
	if err != nil {
		return nil, err
	}
	m.current.Store(&s)
	return m, nil
}

// Static returns a manager that always serves s
func Static(s Settings) *Manager {
	m := &Manager{logger: slog.Default()}
	m.current.Store(&s)
	return m
}

func (m *Manager) decode() (Settings, error) {
	var s Settings
	if err := m.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.Storage.Path = expandHome(s.Storage.Path)
	if err := Validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Settings returns the current snapshot
func (m *Manager) Settings() Settings {
	return *m.current.Load()
}

// ConfigFile returns the settings file in use, empty when running on defaults
func (m *Manager) ConfigFile() string {
	if m.v == nil {
		return ""
	}
	return m.v.ConfigFileUsed()
}

// OnChange registers fn to run after every successful reload
func (m *Manager) OnChange(fn func(Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Watch starts reloading settings when the file changes on disk.
// It is a no-op when no file was loaded.
func (m *Manager) Watch() {
	if m.ConfigFile() == "" {
		return
	}
	m.v.OnConfigChange(m.handleChange)
	m.v.WatchConfig()
}

func (m *Manager) handleChange(e fsnotify.Event) {
	s, err := m.decode()
	if err != nil {
		m.logger.Error("settings reload rejected", "path", e.Name, "err", err)
		return
	}
	m.current.Store(&s)
	m.logger.Info("settings reloaded", "path", e.Name, "op", e.Op.String())

	m.mu.Lock()
	listeners := append([]func(Settings){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}
