// Package config handles updater settings and release descriptor parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override (RFID_UPDATER_MAX_RETRIES).
	EnvPrefix = "RFID_UPDATER"

	// FileName is the base name searched for when no config file is given.
	FileName = "updater"

	// DefaultLogFile is where the file half of the log sink writes.
	DefaultLogFile = "logs/update.log"
)

// DefaultProcesses are the executables terminated when none are configured.
var DefaultProcesses = []string{"main.exe"}

// DefaultPayloadIndicators mark a directory as the real payload root when a
// release archive wraps everything in a single top-level folder.
var DefaultPayloadIndicators = []string{".exe", ".dll", ".so", ".dylib", "assets", "PyQt6", "repositories"}

// CurlSettings tunes the external curl download strategy.
type CurlSettings struct {
	Path           string `mapstructure:"path"`
	ConnectTimeout int    `mapstructure:"connect_timeout"`
	MaxTime        int    `mapstructure:"max_time"`
	Retries        int    `mapstructure:"retries"`
}

// HTTPSettings tunes the in-process HTTP download strategy.
type HTTPSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ReleaseSettings locates the release feed used for auto-detection.
type ReleaseSettings struct {
	APIURL string `mapstructure:"api_url"`
	Owner  string `mapstructure:"owner"`
	Repo   string `mapstructure:"repo"`
	// Asset is the archive name template; {tag} and {version} are substituted.
	Asset string `mapstructure:"asset"`
	Token string `mapstructure:"token"`
}

// Settings is the fully merged updater configuration.
type Settings struct {
	UpdateURL         string          `mapstructure:"update_url"`
	InstallDir        string          `mapstructure:"install_dir"`
	BackupDir         string          `mapstructure:"backup_dir"`
	StagingDir        string          `mapstructure:"staging_dir"`
	CurrentVersion    string          `mapstructure:"current_version"`
	Processes         []string        `mapstructure:"processes"`
	Services          []string        `mapstructure:"services"`
	MaxRetries        int             `mapstructure:"max_retries"`
	RetryBase         time.Duration   `mapstructure:"retry_base"`
	SettleTime        time.Duration   `mapstructure:"settle_time"`
	Force             bool            `mapstructure:"force"`
	Silent            bool            `mapstructure:"silent"`
	AutoRestore       bool            `mapstructure:"auto_restore"`
	RequireBackup     bool            `mapstructure:"require_backup"`
	LogFile           string          `mapstructure:"log_file"`
	LogLevel          string          `mapstructure:"log_level"`
	PayloadIndicators []string        `mapstructure:"payload_indicators"`
	Curl              CurlSettings    `mapstructure:"curl"`
	HTTP              HTTPSettings    `mapstructure:"http"`
	Release           ReleaseSettings `mapstructure:"release"`

	// ConfigFile is the file the settings were read from, empty if none.
	ConfigFile string `mapstructure:"-"`
}

// Options controls where Load looks for settings.
type Options struct {
	// ConfigFile is an explicit config path. A missing explicit file is an error.
	ConfigFile string
	// SearchPaths are directories searched for updater.{yaml,toml,json}.
	SearchPaths []string
	// Flags are bound over every other source. FlagKeys maps flag names to
	// setting keys; flags not listed are bound under their own name with
	// dashes turned into underscores.
	Flags    *pflag.FlagSet
	FlagKeys map[string]string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("update_url", "")
	v.SetDefault("install_dir", ".")
	v.SetDefault("backup_dir", "")
	v.SetDefault("staging_dir", "")
	v.SetDefault("current_version", "")
	v.SetDefault("processes", DefaultProcesses)
	v.SetDefault("services", []string{})
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_base", time.Second)
	v.SetDefault("settle_time", 2*time.Second)
	v.SetDefault("force", false)
	v.SetDefault("silent", false)
	v.SetDefault("auto_restore", false)
	v.SetDefault("require_backup", false)
	v.SetDefault("log_file", DefaultLogFile)
	v.SetDefault("log_level", "info")
	v.SetDefault("payload_indicators", DefaultPayloadIndicators)

	v.SetDefault("curl.path", "curl")
	v.SetDefault("curl.connect_timeout", 30)
	v.SetDefault("curl.max_time", 300)
	v.SetDefault("curl.retries", 3)

	v.SetDefault("http.timeout", 5*time.Minute)

	v.SetDefault("release.api_url", "https://api.github.com")
	v.SetDefault("release.owner", "quanghiep03198")
	v.SetDefault("release.repo", "rfid-agent")
	v.SetDefault("release.asset", "rfid-agent-{tag}-windows-x64.zip")
	v.SetDefault("release.token", "")
}

// Load merges defaults, the config file, RFID_UPDATER_* environment variables
// and command-line flags, in increasing order of precedence.
func Load(opts Options) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, fmt.Errorf("specified config file not found: %s", opts.ConfigFile)
		}
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(FileName)
		for _, p := range opts.SearchPaths {
			v.AddConfigPath(p)
		}
		if len(opts.SearchPaths) == 0 {
			v.AddConfigPath(".")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags, opts.FlagKeys); err != nil {
			return nil, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	s.ConfigFile = v.ConfigFileUsed()

	if s.Release.Token == "" {
		s.Release.Token = os.Getenv("GITHUB_TOKEN")
	}
	if len(s.Processes) == 0 {
		s.Processes = DefaultProcesses
	}

	if err := Validate(&s); err != nil {
		return nil, err
	}

	return &s, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key, ok := keys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		if key == "" {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("failed to bind flag --%s: %w", f.Name, err)
		}
	})
	return bindErr
}
