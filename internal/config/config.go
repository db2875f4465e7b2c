package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amanrag/configs"
	"github.com/Aman-CERP/amanrag/internal/logging"
)

// ProjectFile is the per-project config file name.
const ProjectFile = ".amanrag.yaml"

// Config represents the complete amanrag configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Paths   PathsConfig  `yaml:"paths" json:"paths"`
	Ingest  IngestConfig `yaml:"ingest" json:"ingest"`
	Search  SearchConfig `yaml:"search" json:"search"`
	Watch   WatchConfig  `yaml:"watch" json:"watch"`
	Server  ServerConfig `yaml:"server" json:"server"`
}

// PathsConfig locates the source directory and the persisted table.
// Relative paths resolve against the project root.
type PathsConfig struct {
	// Sources is the directory of documents to ingest.
	Sources string `yaml:"sources" json:"sources"`
	// Data is the directory holding the table and the writer lock.
	Data string `yaml:"data" json:"data"`
	// Table is the table file name inside Data. A ".zst" suffix stores it
	// zstd-compressed.
	Table string `yaml:"table" json:"table"`
}

// IngestConfig controls how source files are read.
type IngestConfig struct {
	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
	// IncludeHidden ingests dot-files.
	IncludeHidden bool `yaml:"include_hidden" json:"include_hidden"`
	// Workers bounds concurrent file reads.
	Workers int `yaml:"workers" json:"workers"`
}

// SearchConfig holds retrieval parameters. Field weights (title 2, body 1)
// are fixed and not configurable.
type SearchConfig struct {
	// TopK is the default number of results.
	TopK int `yaml:"top_k" json:"top_k"`
	// K1 controls term-frequency saturation.
	K1 float64 `yaml:"k1" json:"k1"`
	// B controls document-length normalization (0..1).
	B float64 `yaml:"b" json:"b"`
	// CacheSize is the number of table versions whose statistics are kept.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// WatchConfig configures `amanrag watch`.
type WatchConfig struct {
	// Debounce is how long events must settle before a rebuild.
	Debounce string `yaml:"debounce" json:"debounce"`
}

// ServerConfig configures logging for long-running commands.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns the defaults: documents in ./docs, table in
// ./data/index.json.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Sources: "docs",
			Data:    "data",
			Table:   "index.json",
		},
		Ingest: IngestConfig{
			MaxFileSize: 10 * 1024 * 1024,
			Workers:     runtime.NumCPU(),
		},
		Search: SearchConfig{
			TopK:      3,
			K1:        1.2,
			B:         0.75,
			CacheSize: 8,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// GetUserConfigPath returns the user-level config file:
//   - $XDG_CONFIG_HOME/amanrag/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/amanrag/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amanrag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "amanrag", "config.yaml")
	}
	return filepath.Join(home, ".config", "amanrag", "config.yaml")
}

// Load builds the configuration for the project rooted at dir, in order of
// increasing precedence:
//  1. Defaults
//  2. User config (~/.config/amanrag/config.yaml)
//  3. Project config (.amanrag.yaml or .amanrag.yml in dir)
//  4. .env in dir (never overrides variables already set)
//  5. Environment variables (AMANRAG_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectFile, ".amanrag.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith copies non-zero values from other into c. IncludeHidden can
// only be switched on this way; use AMANRAG_INCLUDE_HIDDEN=false to turn it
// back off.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.Sources != "" {
		c.Paths.Sources = other.Paths.Sources
	}
	if other.Paths.Data != "" {
		c.Paths.Data = other.Paths.Data
	}
	if other.Paths.Table != "" {
		c.Paths.Table = other.Paths.Table
	}

	if other.Ingest.MaxFileSize != 0 {
		c.Ingest.MaxFileSize = other.Ingest.MaxFileSize
	}
	if other.Ingest.IncludeHidden {
		c.Ingest.IncludeHidden = true
	}
	if other.Ingest.Workers != 0 {
		c.Ingest.Workers = other.Ingest.Workers
	}

	if other.Search.TopK != 0 {
		c.Search.TopK = other.Search.TopK
	}
	if other.Search.K1 != 0 {
		c.Search.K1 = other.Search.K1
	}
	if other.Search.B != 0 {
		c.Search.B = other.Search.B
	}
	if other.Search.CacheSize != 0 {
		c.Search.CacheSize = other.Search.CacheSize
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies AMANRAG_* variables. Unlike file values, an
// explicit zero from the environment is honored (e.g. AMANRAG_BM25_B=0).
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("AMANRAG_SOURCES"); v != "" {
		c.Paths.Sources = v
	}
	if v := os.Getenv("AMANRAG_DATA_DIR"); v != "" {
		c.Paths.Data = v
	}
	if v := os.Getenv("AMANRAG_TABLE"); v != "" {
		c.Paths.Table = v
	}
	if v := os.Getenv("AMANRAG_INCLUDE_HIDDEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AMANRAG_INCLUDE_HIDDEN: %w", err)
		}
		c.Ingest.IncludeHidden = b
	}
	if v := os.Getenv("AMANRAG_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AMANRAG_WORKERS: %w", err)
		}
		c.Ingest.Workers = n
	}
	if v := os.Getenv("AMANRAG_TOP_K"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AMANRAG_TOP_K: %w", err)
		}
		c.Search.TopK = n
	}
	if v := os.Getenv("AMANRAG_BM25_K1"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("AMANRAG_BM25_K1: %w", err)
		}
		c.Search.K1 = f
	}
	if v := os.Getenv("AMANRAG_BM25_B"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("AMANRAG_BM25_B: %w", err)
		}
		c.Search.B = f
	}
	if v := os.Getenv("AMANRAG_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := os.Getenv("AMANRAG_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Paths.Sources == "" {
		return fmt.Errorf("paths.sources must not be empty")
	}
	if c.Paths.Data == "" {
		return fmt.Errorf("paths.data must not be empty")
	}
	if c.Paths.Table == "" || strings.ContainsRune(c.Paths.Table, filepath.Separator) {
		return fmt.Errorf("paths.table must be a plain file name, got %q", c.Paths.Table)
	}
	if c.Ingest.MaxFileSize < 0 {
		return fmt.Errorf("ingest.max_file_size must be non-negative, got %d", c.Ingest.MaxFileSize)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest.workers must be at least 1, got %d", c.Ingest.Workers)
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("search.top_k must be at least 1, got %d", c.Search.TopK)
	}
	if c.Search.K1 <= 0 {
		return fmt.Errorf("search.k1 must be positive, got %g", c.Search.K1)
	}
	if c.Search.B < 0 || c.Search.B > 1 {
		return fmt.Errorf("search.b must be between 0 and 1, got %g", c.Search.B)
	}
	if c.Search.CacheSize < 1 {
		return fmt.Errorf("search.cache_size must be at least 1, got %d", c.Search.CacheSize)
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}
	if !logging.ValidLevel(c.Server.LogLevel) {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	return nil
}

// DebounceDuration parses Watch.Debounce.
func (c *Config) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("watch.debounce: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("watch.debounce must be non-negative, got %s", d)
	}
	return d, nil
}

// SourceDir resolves Paths.Sources against root.
func (c *Config) SourceDir(root string) string {
	return resolve(root, c.Paths.Sources)
}

// DataDir resolves Paths.Data against root.
func (c *Config) DataDir(root string) string {
	return resolve(root, c.Paths.Data)
}

// TablePath is the persisted document table.
func (c *Config) TablePath(root string) string {
	return filepath.Join(c.DataDir(root), c.Paths.Table)
}

// LockPath is the single-writer ingestion lock.
func (c *Config) LockPath(root string) string {
	return filepath.Join(c.DataDir(root), "ingest.lock")
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// project config file. It returns the absolute startDir if neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	current := absDir
	for {
		if dirExists(filepath.Join(current, ".git")) ||
			fileExists(filepath.Join(current, ProjectFile)) ||
			fileExists(filepath.Join(current, ".amanrag.yml")) {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return absDir, nil
		}
		current = parent
	}
}

// WriteYAML writes the configuration to path. An existing file is first
// copied to path.bak.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return writeWithBackup(path, data)
}

// WriteProjectTemplate writes the commented default project config to
// path, keeping any previous file as path+".bak".
func WriteProjectTemplate(path string) error {
	return writeWithBackup(path, []byte(configs.ProjectConfigTemplate))
}

func writeWithBackup(path string, data []byte) error {
	if existing, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".bak", existing, 0o644); err != nil {
			return fmt.Errorf("failed to back up config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
