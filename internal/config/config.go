package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type SiteConfig struct {
	URL           string   `mapstructure:"url"`
	ExternalHosts []string `mapstructure:"external_hosts"`
}

type PathsConfig struct {
	Mirror  string `mapstructure:"mirror"`
	Output  string `mapstructure:"output"`
	History string `mapstructure:"history"`
}

type DocsetConfig struct {
	Name      string `mapstructure:"name"`
	BundleID  string `mapstructure:"bundle_id"`
	Platform  string `mapstructure:"platform"`
	IndexPage string `mapstructure:"index_page"`
}

// StripConfig lists site chrome removed from every page.
type StripConfig struct {
	Chrome         []string `mapstructure:"chrome"`
	PaddingClasses []string `mapstructure:"padding_classes"`
	HashLinks      string   `mapstructure:"hash_links"`
}

// PagesConfig names pages that get extra extraction, as paths relative to
// the site root without the .html suffix.
type PagesConfig struct {
	Functions    string   `mapstructure:"functions"`
	Variants     []string `mapstructure:"variants"`
	Placeholders []string `mapstructure:"placeholders"`
}

type ClassTableConfig struct {
	Selector      string   `mapstructure:"selector"`
	HiddenClasses []string `mapstructure:"hidden_classes"`
}

type VersionConfig struct {
	Selector string `mapstructure:"selector"`
}

type MirrorConfig struct {
	Command     string   `mapstructure:"command"`
	StartPaths  []string `mapstructure:"start_paths"`
	RejectRegex string   `mapstructure:"reject_regex"`
}

type Config struct {
	Site       SiteConfig          `mapstructure:"site"`
	Paths      PathsConfig         `mapstructure:"paths"`
	Docset     DocsetConfig        `mapstructure:"docset"`
	Strip      StripConfig         `mapstructure:"strip"`
	Pages      PagesConfig         `mapstructure:"pages"`
	ClassTable ClassTableConfig    `mapstructure:"class_table"`
	Version    VersionConfig       `mapstructure:"version"`
	Mirror     MirrorConfig        `mapstructure:"mirror"`
	Sanity     map[string][]string `mapstructure:"sanity"`
}

// cacheBase returns the base cache directory for twdocset.
// Checks XDG_CACHE_HOME, then ~/.cache, then /tmp/twdocset as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "twdocset")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "twdocset")
	}
	return filepath.Join(os.TempDir(), "twdocset")
}

// dataBase returns the base directory for state that must survive cache
// cleanups. Checks XDG_DATA_HOME, then ~/.local/share.
func dataBase() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "twdocset")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "twdocset")
	}
	return filepath.Join(os.TempDir(), "twdocset")
}

// MirrorDir returns the default directory the site is mirrored into.
func MirrorDir() string {
	return filepath.Join(cacheBase(), "mirror")
}

// HistoryDir returns the default directory holding archived versions.
func HistoryDir() string {
	return filepath.Join(dataBase(), "history")
}

func InitializeViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, "twdocset"))
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "twdocset"))
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("TWDOCSET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.url", "https://tailwindcss.com/")
	v.SetDefault("site.external_hosts", []string{"fonts.googleapis.com", "fonts.gstatic.com"})

	v.SetDefault("paths.mirror", MirrorDir())
	v.SetDefault("paths.output", ".")
	v.SetDefault("paths.history", HistoryDir())

	v.SetDefault("docset.name", "Tailwind CSS")
	v.SetDefault("docset.bundle_id", "tailwindcss")
	v.SetDefault("docset.platform", "tailwindcss")
	v.SetDefault("docset.index_page", "docs/installation")

	v.SetDefault("strip.chrome", []string{
		"div.sticky.top-0.z-40",
		"div.fixed.z-20.inset-0",
		"footer",
		"#headlessui-portal-root",
	})
	v.SetDefault("strip.padding_classes", []string{"lg:pl-[19.5rem]", "lg:pl-[19rem]"})
	v.SetDefault("strip.hash_links", `a[href^="#"][aria-label="Anchor"], h1 > a[href^="#"] > div, h2 > a[href^="#"] > div, h3 > a[href^="#"] > div`)

	v.SetDefault("pages.functions", "docs/functions-and-directives")
	v.SetDefault("pages.variants", []string{"docs/dark-mode", "docs/hover-focus-and-other-states"})
	v.SetDefault("pages.placeholders", []string{"{modifier}", "group-{modifier}", "peer-{modifier}", "*"})

	v.SetDefault("class_table.selector", "#class-table")
	v.SetDefault("class_table.hidden_classes", []string{"overflow-hidden", "max-h-[60vh]", "lg:max-h-[60vh]"})

	v.SetDefault("version.selector", "header")

	v.SetDefault("mirror.command", "wget")
	v.SetDefault("mirror.start_paths", []string{"/", "/docs/installation"})
	v.SetDefault("mirror.reject_regex", `/(_next/image|favicons?/|.*\.(mp4|webm))`)
}

// decode turns viper settings into a Config; comma separated strings from
// the environment become slices.
func decode(settings map[string]interface{}) (*Config, error) {
	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// Defaults returns the built-in configuration without reading files or the
// environment.
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	config, err := decode(v.AllSettings())
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func Load() (*Config, error) {
	if err := InitializeViper(); err != nil {
		return nil, err
	}

	config, err := decode(viper.AllSettings())
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks settings that would otherwise fail deep inside a build.
func (c *Config) Validate() error {
	if c.Site.URL == "" {
		return fmt.Errorf("site.url is required")
	}
	if !strings.HasSuffix(c.Site.URL, "/") {
		c.Site.URL += "/"
	}
	if c.Docset.Name == "" {
		return fmt.Errorf("docset.name is required")
	}
	return nil
}

// DocsetDir returns the bundle directory name, e.g. "Tailwind_CSS.docset".
func (c *Config) DocsetDir() string {
	return strings.ReplaceAll(c.Docset.Name, " ", "_") + ".docset"
}
