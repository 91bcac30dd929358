// Package config handles shell-wide configuration: option defaults,
// prompt templates, and file lookup locations. You can view the
// defaults a shell started with by inspecting ShellConfig.
package config

import (
	"os"
	"path/filepath"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/imdario/mergo"
	yaml "github.com/jesseduffield/yaml"
)

// UserConfig holds the fields a user may override in config.yml.
type UserConfig struct {
	// Options carries the `set -o longname` defaults a new shell
	// starts with (e.g. "errexit", "nounset", "noglob").
	Options []string `yaml:"options,omitempty"`

	// IFS is the default field-splitting separator; POSIX says a new
	// shell starts with `<space><tab><newline>` if unset.
	IFS string `yaml:"ifs,omitempty"`

	// PS1, PS2, PS4 are the primary, continuation, and xtrace prompts.
	PS1 string `yaml:"ps1,omitempty"`
	PS2 string `yaml:"ps2,omitempty"`
	PS4 string `yaml:"ps4,omitempty"`

	// HistFile is the default command-history file path, relative to
	// $HOME unless absolute.
	HistFile string `yaml:"histFile,omitempty"`

	// EnvFile holds a startup-file path (POSIX's $ENV). It is loaded and
	// merged like the other fields; the shell does not read or source
	// the file it names.
	EnvFile string `yaml:"envFile,omitempty"`
}

// GetDefaultConfig returns the compiled-in defaults a fresh shell
// starts from, before any user config.yml or $ENV override is applied.
func GetDefaultConfig() UserConfig {
	return UserConfig{
		Options:  nil,
		IFS:      " \t\n",
		PS1:      "$ ",
		PS2:      "> ",
		PS4:      "+ ",
		HistFile: ".tarnsh_history",
		EnvFile:  "",
	}
}

// ShellConfig is the fully-resolved configuration for one shell
// invocation: compiled-in defaults merged with a user config file.
type ShellConfig struct {
	Name       string
	Version    string
	Debug      bool
	ConfigDir  string
	UserConfig *UserConfig
}

// NewShellConfig resolves $XDG_CONFIG_HOME/tarnsh (creating it if
// needed), loads config.yml onto the compiled-in defaults, and returns
// the merged result. Mirrors the teacher's NewAppConfig/
// loadUserConfigWithDefaults split.
func NewShellConfig(version string, debug bool) (*ShellConfig, error) {
	configDir, err := findOrCreateConfigDir("tarnsh")
	if err != nil {
		return nil, err
	}

	userConfig, err := loadUserConfigWithDefaults(configDir)
	if err != nil {
		return nil, err
	}

	return &ShellConfig{
		Name:       "tarnsh",
		Version:    version,
		Debug:      debug || os.Getenv("TARNSH_DEBUG") == "1",
		ConfigDir:  configDir,
		UserConfig: userConfig,
	}, nil
}

func configDir(projectName string) string {
	if envDir := os.Getenv("TARNSH_CONFIG_DIR"); envDir != "" {
		return envDir
	}
	dirs := xdg.New("", projectName)
	return dirs.ConfigHome()
}

func findOrCreateConfigDir(projectName string) (string, error) {
	dir := configDir(projectName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func loadUserConfigWithDefaults(configDir string) (*UserConfig, error) {
	base := GetDefaultConfig()
	return loadUserConfig(configDir, &base)
}

// loadUserConfig reads config.yml (creating an empty one if absent)
// and merges it onto base with mergo, the same merge strategy the
// teacher uses for its CommandObject/i18n config overlays: fields the
// file sets win, fields it omits keep base's value.
func loadUserConfig(configDir string, base *UserConfig) (*UserConfig, error) {
	fileName := filepath.Join(configDir, "config.yml")

	if _, err := os.Stat(fileName); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		f, err := os.Create(fileName)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	content, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	var fromFile UserConfig
	if err := yaml.Unmarshal(content, &fromFile); err != nil {
		return nil, err
	}

	if err := mergo.Merge(base, fromFile, mergo.WithOverride); err != nil {
		return nil, err
	}
	return base, nil
}

// ConfigFilename returns the path of the resolved config.yml.
func (c *ShellConfig) ConfigFilename() string {
	return filepath.Join(c.ConfigDir, "config.yml")
}
