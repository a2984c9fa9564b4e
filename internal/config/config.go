package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/blacktop/tootshare/internal/logutil"
	"github.com/blacktop/tootshare/internal/share"
)

const (
	envPrefix = "TOOTSHARE"
	envConfig = "TOOTSHARE_CONFIG"

	defaultDatabase = "tootshare.db"
)

var visibilities = []string{"public", "unlisted", "private", "direct"}

// Config is the full application configuration.
type Config struct {
	Instance    string   `mapstructure:"instance"`
	AccessToken string   `mapstructure:"access_token"`
	PostTypes   []string `mapstructure:"post_types"`

	FeaturedImages   bool `mapstructure:"featured_images"`
	AttachedImages   bool `mapstructure:"attached_images"`
	ReferencedImages bool `mapstructure:"referenced_images"`
	MaxImages        int  `mapstructure:"max_images"`

	StatusTemplate    string `mapstructure:"status_template"`
	ContentWarning    bool   `mapstructure:"content_warning"`
	CustomStatusField bool   `mapstructure:"custom_status_field"`
	OptIn             bool   `mapstructure:"opt_in"`
	MaxLength         int    `mapstructure:"max_length"`
	Visibility        string `mapstructure:"visibility"`
	MaxUploadSize     string `mapstructure:"max_upload_size"`

	// MaxUploadBytes is MaxUploadSize parsed at load.
	MaxUploadBytes uint64 `mapstructure:"-"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	Verbose      bool   `mapstructure:"verbose"`
	Database     string `mapstructure:"database"`
}

// Load reads configuration from defaults, an optional YAML file, an optional
// .env file and TOOTSHARE_* environment variables, in increasing precedence.
// An empty path falls back to $TOOTSHARE_CONFIG; a missing file is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		logutil.Debugf("no .env file loaded: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(envConfig)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
			logutil.Debugf("config file %s not found, using defaults", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := share.DefaultOptions()
	v.SetDefault("instance", "")
	v.SetDefault("access_token", "")
	v.SetDefault("post_types", d.PostTypes)
	v.SetDefault("featured_images", d.Images.Featured)
	v.SetDefault("attached_images", d.Images.Attached)
	v.SetDefault("referenced_images", d.Images.Referenced)
	v.SetDefault("max_images", d.MaxImages)
	v.SetDefault("status_template", d.StatusTemplate)
	v.SetDefault("content_warning", false)
	v.SetDefault("custom_status_field", false)
	v.SetDefault("opt_in", false)
	v.SetDefault("max_length", d.MaxLength)
	v.SetDefault("visibility", d.Visibility)
	v.SetDefault("max_upload_size", share.DefaultMaxUploadSize)
	v.SetDefault("debug_logging", false)
	v.SetDefault("verbose", false)
	v.SetDefault("database", defaultDatabase)
}

// normalize clamps numeric fields and rejects values that cannot work.
func (c *Config) normalize() error {
	c.Instance = strings.TrimRight(strings.TrimSpace(c.Instance), "/")
	c.AccessToken = strings.TrimSpace(c.AccessToken)

	types := make([]string, 0, len(c.PostTypes))
	for _, t := range c.PostTypes {
		if t = strings.TrimSpace(t); t != "" && !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	c.PostTypes = types

	c.MaxImages = max(0, min(c.MaxImages, share.MaxImages))
	if c.MaxLength <= 0 {
		c.MaxLength = share.DefaultMaxLength
	}

	c.Visibility = strings.ToLower(strings.TrimSpace(c.Visibility))
	if c.Visibility == "" {
		c.Visibility = share.DefaultVisibility
	}
	if !slices.Contains(visibilities, c.Visibility) {
		return fmt.Errorf("invalid visibility %q (want one of %s)", c.Visibility, strings.Join(visibilities, ", "))
	}

	size := strings.TrimSpace(c.MaxUploadSize)
	if size == "" {
		size = share.DefaultMaxUploadSize
	}
	maxBytes, err := humanize.ParseBytes(size)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size %q: %w", c.MaxUploadSize, err)
	}
	c.MaxUploadSize = size
	c.MaxUploadBytes = maxBytes

	if c.Database == "" {
		c.Database = defaultDatabase
	}
	return nil
}

// Options converts the configuration into composer options.
func (c Config) Options() share.Options {
	return share.Options{
		Instance:    c.Instance,
		AccessToken: c.AccessToken,
		PostTypes:   c.PostTypes,
		Images: share.ImageOptions{
			Featured:   c.FeaturedImages,
			Attached:   c.AttachedImages,
			Referenced: c.ReferencedImages,
		},
		MaxImages:         c.MaxImages,
		StatusTemplate:    c.StatusTemplate,
		ContentWarning:    c.ContentWarning,
		CustomStatusField: c.CustomStatusField,
		OptIn:             c.OptIn,
		MaxLength:         c.MaxLength,
		Visibility:        c.Visibility,
		MaxUploadBytes:    c.MaxUploadBytes,
	}
}
