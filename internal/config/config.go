package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/burnmedia/burnmedia/internal/burn"
	"github.com/burnmedia/burnmedia/internal/history"
	"github.com/burnmedia/burnmedia/internal/logging"
	"github.com/burnmedia/burnmedia/internal/recorder"
)

// BurnConfig holds the defaults for new burn jobs.
type BurnConfig struct {
	Eject        bool   `mapstructure:"eject"`
	CloseMedia   bool   `mapstructure:"close_media"`
	Verification string `mapstructure:"verification"`
	Simulate     bool   `mapstructure:"simulate"`
	StatusBuffer int    `mapstructure:"status_buffer"`
}

// ToolsConfig names the preferred native tools. Empty means the first one
// found on PATH.
type ToolsConfig struct {
	Recorder     string `mapstructure:"recorder"`
	ImageBuilder string `mapstructure:"image_builder"`
}

// HistoryConfig configures the burn history store.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Limit   int    `mapstructure:"limit"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Console    string            `mapstructure:"console"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	Device      string            `mapstructure:"device"`
	VolumeLabel string            `mapstructure:"volume_label"`
	Burn        BurnConfig        `mapstructure:"burn"`
	Tools       ToolsConfig       `mapstructure:"tools"`
	Messages    map[string]string `mapstructure:"messages"`
	History     HistoryConfig     `mapstructure:"history"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// NewViper returns a viper instance with defaults, config paths and
// environment binding set up. A non-empty file replaces the search paths.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/burnmedia/config.yaml
//   - $HOME/.config/burnmedia/config.yaml
//
// Environment variables are prefixed with BURNMEDIA_ (e.g., BURNMEDIA_DEVICE).
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("BURNMEDIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("device", "")
	v.SetDefault("volume_label", DefaultVolumeLabel)
	v.SetDefault("burn.eject", false)
	v.SetDefault("burn.close_media", true)
	v.SetDefault("burn.verification", DefaultVerification)
	v.SetDefault("burn.simulate", false)
	v.SetDefault("burn.status_buffer", DefaultStatusBuffer)
	v.SetDefault("tools.recorder", "")
	v.SetDefault("tools.image_builder", "")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means history.DefaultPath
	v.SetDefault("history.limit", DefaultHistoryLimit)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath
	v.SetDefault("logging.console", "")

	return v, nil
}

// Load loads configuration from file and environment variables.
func Load(file string) (*Config, error) {
	v, err := NewViper(file)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Decode reads the config file, if any, and unmarshals v. Flags bound to v
// before the call take precedence over the file.
func Decode(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := recorder.ParseVerification(cfg.Burn.Verification); err != nil {
		return nil, err
	}
	if cfg.Burn.StatusBuffer < 0 {
		return nil, fmt.Errorf("burn.status_buffer must not be negative, got %d", cfg.Burn.StatusBuffer)
	}

	var err error
	if cfg.History.Path, err = ExpandPath(cfg.History.Path); err != nil {
		return nil, err
	}
	if cfg.Logging.Path, err = ExpandPath(cfg.Logging.Path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Verification returns the parsed burn.verification level.
func (c *Config) Verification() recorder.Verification {
	v, _ := recorder.ParseVerification(c.Burn.Verification)
	return v
}

// Label expands the volume_label layout for now. Supported verbs are
// %Y (year), %m and %d (zero padded month and day), %n and %e (unpadded
// month and day) and %% for a literal percent sign.
func (c *Config) Label(now time.Time) string {
	return ExpandLabel(c.VolumeLabel, now)
}

// ExpandLabel expands the date verbs in layout.
func ExpandLabel(layout string, now time.Time) string {
	if layout == "" {
		return burn.DefaultVolumeLabel(now)
	}
	var b strings.Builder
	for i := 0; i < len(layout); i++ {
		if layout[i] != '%' || i == len(layout)-1 {
			b.WriteByte(layout[i])
			continue
		}
		i++
		switch layout[i] {
		case 'Y':
			fmt.Fprintf(&b, "%d", now.Year())
		case 'm':
			fmt.Fprintf(&b, "%02d", int(now.Month()))
		case 'd':
			fmt.Fprintf(&b, "%02d", now.Day())
		case 'n':
			fmt.Fprintf(&b, "%d", int(now.Month()))
		case 'e':
			fmt.Fprintf(&b, "%d", now.Day())
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(layout[i])
		}
	}
	return b.String()
}

// Phrases returns the progress phrase table with the messages.* overrides
// applied.
func (c *Config) Phrases() burn.Messages {
	return burn.DefaultMessages().Override(c.Messages)
}

// LogConfig converts the logging section for logging.Init.
func (c *Config) LogConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if c.Logging.Level != "" {
		cfg.Level = c.Logging.Level
	}
	if c.Logging.Path != "" {
		cfg.Path = c.Logging.Path
	}
	cfg.ConsoleLevel = c.Logging.Console
	cfg.Components = c.Logging.Components
	return cfg
}

// HistoryPath returns the history store directory.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return history.DefaultPath()
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "burnmedia"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "burnmedia"), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	content := fmt.Sprintf(`# burnmedia configuration

# Recorder to burn with, e.g. /dev/sr0 (empty means the first usable one)
device: ""

# Volume label layout: %%Y year, %%m/%%d padded month/day, %%n/%%e unpadded
volume_label: "%s"

burn:
  # Eject the disc after a successful burn
  eject: false
  # Close the disc so no further sessions can be appended
  close_media: true
  # Read-back check: none, quick or full
  verification: %s
  # Run the laser off; nothing is recorded
  simulate: false
  status_buffer: %d

# Preferred native tools (empty means the first found on PATH)
tools:
  recorder: ""        # cdrecord or wodim
  image_builder: ""   # genisoimage, mkisofs or xorriso

# Progress phrases, keyed by write action or phase name
messages: {}
  # progress: "Progress: %%d%%%%"
  # adding_file: "Adding \"%%s\" to image..."
  # writing_data: "Writing data..."
  # completed: "Finished Burning Disc!"

history:
  enabled: true
  # Empty means $XDG_DATA_HOME/burnmedia/history
  path: ""
  limit: %d

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/burnmedia/burnmedia.log)
  path: ""
  # Also log to stderr at this level (empty disables)
  console: ""
  components:
    burn: %s
    cdrecord: %s
    mkisofs: %s
    workspace: %s
`, DefaultVolumeLabel, DefaultVerification, DefaultStatusBuffer, DefaultHistoryLimit,
		DefaultLogComponents["burn"], DefaultLogComponents["cdrecord"],
		DefaultLogComponents["mkisofs"], DefaultLogComponents["workspace"])

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return path, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}
