package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/faultkit/logger"
)

// FileSystem abstracts the file operations the loader needs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem implements FileSystem on the real file system.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Options holds the loader's file system and optional explicit paths.
type Options struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// Option configures Load.
type Option func(*Options)

// WithFileSystem sets the file system the loader searches.
func WithFileSystem(fs FileSystem) Option {
	return func(o *Options) { o.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) Option {
	return func(o *Options) { o.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) Option {
	return func(o *Options) { o.EnvFile = path }
}

// Files are the config and env files Load reads.
type Files struct {
	ConfigFile string
	EnvFile    string
}

// Resolve finds the files for service: the explicit paths when given,
// else the first config.yml and .env found in the standard locations.
func Resolve(service string, o Options) Files {
	files := Files{ConfigFile: o.ConfigFile, EnvFile: o.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = firstExisting(o.FileSystem, searchDirs(service), "config.yml")
	}
	if files.EnvFile == "" {
		files.EnvFile = firstExisting(o.FileSystem, searchDirs(service), ".env."+service, ".env")
	}
	return files
}

// searchDirs lists the directories searched for service files, nearest
// first. A dashed name also matches its last segment, so "game-api" finds
// cmd/api.
func searchDirs(service string) []string {
	names := []string{service}
	if i := strings.LastIndex(service, "-"); i != -1 {
		names = append(names, service[i+1:])
	}

	var dirs []string
	for _, up := range []string{".", "..", "../.."} {
		for _, n := range names {
			dirs = append(dirs, up+"/cmd/"+n)
		}
		dirs = append(dirs, up+"/config", up)
	}
	return dirs
}

func firstExisting(fs FileSystem, dirs []string, names ...string) string {
	for _, name := range names {
		for _, dir := range dirs {
			path := dir + "/" + name
			if fs.Exists(path) {
				return path
			}
		}
	}
	return ""
}

// Load reads configuration for service into cfg. Environment variables
// override the YAML config file; the .env file only supplies variables that
// are not already set. Nested keys are matched from UPPER_SNAKE variables, so
// RESILIENCE_RATE_LIMITER_API_CAPACITY sets resilience.rate_limiter.api.capacity.
func Load(service string, cfg interface{}, opts ...Option) error {
	o := Options{FileSystem: OSFileSystem{}}
	for _, opt := range opts {
		opt(&o)
	}
	files := Resolve(service, o)

	v := viper.New()
	if files.ConfigFile != "" && o.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", files.ConfigFile, err)
		}
	}

	if files.EnvFile != "" && o.FileSystem.Exists(files.EnvFile) {
		if err := o.FileSystem.LoadEnv(files.EnvFile); err != nil {
			logger.Warn("Failed to load env file", map[string]interface{}{
				"file":            files.EnvFile,
				logger.FieldError: err.Error(),
			})
		}
	}
	bindEnv(v)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for service %s: %w", service, err)
	}
	return nil
}

// bindEnv sets every environment variable under each key it could name.
func bindEnv(v *viper.Viper) {
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		for _, k := range envKeys(key) {
			v.Set(k, value)
		}
	}
}

// envKeys returns the config keys an UPPER_SNAKE variable may address.
// Underscores are ambiguous, so every split into a dotted prefix and an
// underscored suffix is produced:
//
//	ERRORS_EXPOSE_DETAIL -> errors_expose_detail, errors.expose.detail,
//	                        errors.expose_detail
func envKeys(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}

	keys := []string{lower, strings.Join(parts, ".")}
	seen := map[string]bool{keys[0]: true, keys[1]: true}
	for i := 1; i < len(parts)-1; i++ {
		for j := i + 1; j <= len(parts); j++ {
			k := strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:j], "_")
			if j < len(parts) {
				k += "." + strings.Join(parts[j:], ".")
			}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}
