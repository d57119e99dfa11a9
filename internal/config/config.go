// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Server  ServerConfig
	Backend BackendConfig
	Auth    AuthConfig
	Catalog CatalogConfig
	Chat    ChatConfig
	Scan    ScanConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataPath    string // SQLite file, chat transcripts and the session key live here
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s), event streams extend it
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins of the web client
}

// BackendConfig points at the hosted backend. An empty URL selects local mode.
type BackendConfig struct {
	URL          string
	AnonKey      string
	FunctionsURL string // Defaults to {URL}/functions/v1
}

// AuthConfig holds session configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for session tokens (32 bytes)
	SessionKey      []byte
	SessionDuration time.Duration
}

// CatalogConfig holds catalog cache configuration.
type CatalogConfig struct {
	TTL      time.Duration
	SeedPath string // YAML catalog loaded into the local store
}

// ChatConfig holds chat assistant configuration.
type ChatConfig struct {
	TokenInterval time.Duration // Pause between revealed words
	MaxTokens     int
}

// ScanConfig holds image scan configuration.
type ScanConfig struct {
	Function       string
	MatchThreshold float64
	MaxDimension   int
}

// LocalMode reports whether the server runs against the embedded SQLite
// backend instead of the hosted one.
func (c *Config) LocalMode() bool {
	return c.Backend.URL == ""
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bottleservice", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for local data")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins")

	// Backend flags
	backendURL := fs.String("backend-url", "", "Hosted backend URL (empty for local mode)")
	anonKey := fs.String("backend-anon-key", "", "Public API key of the hosted backend")
	functionsURL := fs.String("functions-url", "", "Edge functions base URL")

	sessionDuration := fs.String("session-duration", "", "Session lifetime (default: 168h)")
	catalogTTL := fs.String("catalog-ttl", "", "Catalog cache TTL (default: 5m)")
	seedPath := fs.String("catalog-seed", "", "YAML catalog seed for local mode")
	tokenInterval := fs.String("chat-token-interval", "", "Pause between revealed words (default: 50ms)")
	maxTokens := fs.String("chat-max-tokens", "", "Max tokens per answer (default: 1024)")
	matchThreshold := fs.String("scan-match-threshold", "", "Minimum scan match similarity (default: 0.6)")
	maxDimension := fs.String("scan-max-dimension", "", "Longest image side sent for recognition (default: 1024)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			DataPath:    getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "")),
		},
		Backend: BackendConfig{
			URL:          strings.TrimRight(getConfigValue(*backendURL, "BACKEND_URL", ""), "/"),
			AnonKey:      getConfigValue(*anonKey, "BACKEND_ANON_KEY", ""),
			FunctionsURL: strings.TrimRight(getConfigValue(*functionsURL, "FUNCTIONS_URL", ""), "/"),
		},
		Catalog: CatalogConfig{
			SeedPath: getConfigValue(*seedPath, "CATALOG_SEED_PATH", ""),
		},
		Scan: ScanConfig{
			Function: getConfigValue("", "SCAN_FUNCTION", "bottle-scan"),
		},
	}

	if cfg.Backend.FunctionsURL == "" && cfg.Backend.URL != "" {
		cfg.Backend.FunctionsURL = cfg.Backend.URL + "/functions/v1"
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*sessionDuration, "SESSION_DURATION", "168h", &cfg.Auth.SessionDuration},
		{*catalogTTL, "CATALOG_TTL", "5m", &cfg.Catalog.TTL},
		{*tokenInterval, "CHAT_TOKEN_INTERVAL", "50ms", &cfg.Chat.TokenInterval},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	var err error
	if cfg.Chat.MaxTokens, err = getIntConfigValue(*maxTokens, "CHAT_MAX_TOKENS", 1024); err != nil {
		return nil, err
	}
	if cfg.Scan.MaxDimension, err = getIntConfigValue(*maxDimension, "SCAN_MAX_DIMENSION", 1024); err != nil {
		return nil, err
	}
	if cfg.Scan.MatchThreshold, err = getFloatConfigValue(*matchThreshold, "SCAN_MATCH_THRESHOLD", 0.6); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if cfg.Catalog.SeedPath != "" {
		if cfg.Catalog.SeedPath, err = expandPath(cfg.Catalog.SeedPath, ""); err != nil {
			return nil, fmt.Errorf("invalid catalog seed path: %w", err)
		}
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.App.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	// Local mode signs anyone in with any email.
	if c.LocalMode() && c.App.Environment == "production" {
		return errors.New("BACKEND_URL is required in production")
	}
	if !c.LocalMode() && c.Backend.AnonKey == "" {
		return errors.New("BACKEND_ANON_KEY is required with BACKEND_URL")
	}

	if c.Scan.MatchThreshold <= 0 || c.Scan.MatchThreshold > 1 {
		return fmt.Errorf("invalid scan match threshold: %v (must be in (0, 1])", c.Scan.MatchThreshold)
	}
	if c.Scan.MaxDimension < 64 {
		return fmt.Errorf("invalid scan max dimension: %d (must be at least 64)", c.Scan.MaxDimension)
	}
	if c.Chat.MaxTokens <= 0 {
		return fmt.Errorf("invalid chat max tokens: %d", c.Chat.MaxTokens)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data directory to ~/Bottleservice.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Bottleservice")

	expanded, err := expandPath(c.App.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.App.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) (int, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return n, nil
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) (float64, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return f, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
