// Package presubmitfile locates and loads the .presubmit.yaml project configuration.
package presubmitfile

import (
	"errors"
	"fmt"
	"go/build"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file searched for from the working directory upwards.
const FileName = ".presubmit.yaml"

// EnvPrefix prefixes environment overrides, e.g. PRESUBMIT_TAGS.
const EnvPrefix = "PRESUBMIT"

var (
	ErrNotFound = errors.New(FileName + " not found")
	ErrExists   = errors.New(FileName + " already exists")
)

// Tool is an external tool the pipeline needs, installed on demand.
type Tool struct {
	Name   string   `mapstructure:"name" yaml:"name"`
	Probe  []string `mapstructure:"probe" yaml:"probe,omitempty"`
	Source string   `mapstructure:"source" yaml:"source,omitempty"`
}

// Check is a project-specific check added to the default Go checks.
type Check struct {
	Name         string   `mapstructure:"name" yaml:"name"`
	Command      []string `mapstructure:"command" yaml:"command"`
	Dir          string   `mapstructure:"dir" yaml:"dir,omitempty"`
	DependsOn    []string `mapstructure:"depends_on" yaml:"depends_on,omitempty"`
	FailOnOutput bool     `mapstructure:"fail_on_output" yaml:"fail_on_output,omitempty"`
}

// Config is the effective presubmit configuration.
type Config struct {
	Root       string   `yaml:"-"` // project root, set by Resolve
	Dirs       []string `mapstructure:"dirs" yaml:"dirs"`
	Tags       string   `mapstructure:"tags" yaml:"tags"`
	Build      bool     `mapstructure:"build" yaml:"build"`
	Test       bool     `mapstructure:"test" yaml:"test"`
	Vet        bool     `mapstructure:"vet" yaml:"vet"`
	Lint       bool     `mapstructure:"lint" yaml:"lint"`
	Fmt        bool     `mapstructure:"fmt" yaml:"fmt"`
	InstallDir string   `mapstructure:"install_dir" yaml:"install_dir,omitempty"`
	Tools      []Tool   `mapstructure:"tools" yaml:"tools,omitempty"`
	Checks     []Check  `mapstructure:"checks" yaml:"checks,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Dirs:  []string{"."},
		Build: true,
		Test:  true,
		Vet:   true,
		Lint:  true,
		Fmt:   true,
	}
}

// FindFile returns explicitPath if set, otherwise searches from startDir upwards.
// The search stops at a directory containing .git, at the home directory, or at the filesystem root.
func FindFile(startDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("presubmit file not found: %w", err)
		}
		return explicitPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		path := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		if currentDir == homeDir || isGitRoot(currentDir) {
			break
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached filesystem root
			break
		}
		currentDir = parentDir
	}

	return "", ErrNotFound
}

// FindRoot returns the nearest directory at or above startDir containing .git,
// or startDir itself when there is none.
func FindRoot(startDir string) (string, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	for dir := start; ; {
		if isGitRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}

// Load reads the file at path (defaults only when path is empty) and applies
// PRESUBMIT_* environment overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(cfg.Dirs) == 0 {
		cfg.Dirs = []string{"."}
	}
	return cfg, nil
}

// Resolve finds and loads the configuration for startDir. The root is rootOverride
// when set, otherwise the directory holding the config file, otherwise FindRoot(startDir).
func Resolve(startDir, explicitPath, rootOverride string) (Config, error) {
	path, err := FindFile(startDir, explicitPath)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Config{}, err
	}

	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}

	switch {
	case rootOverride != "":
		cfg.Root, err = filepath.Abs(rootOverride)
	case path != "":
		cfg.Root, err = filepath.Abs(filepath.Dir(path))
	default:
		cfg.Root, err = FindRoot(startDir)
	}
	if err != nil {
		return Config{}, err
	}

	cfg.InstallDir = resolveInstallDir(cfg.Root, cfg.InstallDir)
	return cfg, nil
}

// Write stores cfg as YAML at path. Existing files are kept unless force is set.
func Write(path string, cfg Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, raw, 0o644) //nolint:gosec // project config is meant to be committed and shared
}

// DefaultInstallDir is where `go install` puts binaries: $GOBIN, else bin under the first GOPATH entry.
func DefaultInstallDir() string {
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		return gobin
	}
	gopath := filepath.SplitList(build.Default.GOPATH)
	if len(gopath) == 0 {
		return ""
	}
	return filepath.Join(gopath[0], "bin")
}

func resolveInstallDir(root, dir string) string {
	switch {
	case dir == "":
		return DefaultInstallDir()
	case strings.HasPrefix(dir, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, dir[2:])
		}
		return dir
	case filepath.IsAbs(dir):
		return dir
	default:
		return filepath.Join(root, dir)
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("dirs", d.Dirs)
	v.SetDefault("tags", d.Tags)
	v.SetDefault("build", d.Build)
	v.SetDefault("test", d.Test)
	v.SetDefault("vet", d.Vet)
	v.SetDefault("lint", d.Lint)
	v.SetDefault("fmt", d.Fmt)
	v.SetDefault("install_dir", d.InstallDir)
}

func isGitRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
