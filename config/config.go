// Package config loads server configuration from .env, the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/inquiry-desk/inquiry"
)

// Config is the server configuration.
type Config struct {
	HTTP struct {
		Port           int
		AllowedOrigins []string
	}

	// DataDir holds one CSV per period.
	DataDir string
	// IdentityFile is the id,pw,role table. Defaults to DataDir/users.csv.
	IdentityFile string
	// AuditDB is the SQLite audit log path. ":memory:" keeps it in process.
	AuditDB string

	Years  []int
	Branch string

	Log struct {
		Level  string
		Format string
	}
}

// Load builds a Config. Precedence, lowest first: defaults, .env file,
// environment, command-line args.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{}
	cfg.HTTP.Port = parseInt(getEnv("DESK_PORT", "8080"), 8080)
	cfg.HTTP.AllowedOrigins = splitList(getEnv("DESK_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080"))
	cfg.DataDir = getEnv("DESK_DATA_DIR", "data")
	cfg.IdentityFile = getEnv("DESK_IDENTITY_FILE", "")
	cfg.AuditDB = getEnv("DESK_AUDIT_DB", "audit.db")
	cfg.Branch = getEnv("DESK_BRANCH", "글로리지점")
	cfg.Log.Level = getEnv("DESK_LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("DESK_LOG_FORMAT", "json")

	years, err := parseYears(getEnv("DESK_YEARS", ""))
	if err != nil {
		return nil, err
	}
	cfg.Years = years

	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	flags.IntVar(&cfg.HTTP.Port, "port", cfg.HTTP.Port, "HTTP server port")
	flags.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Directory holding period stores")
	flags.StringVar(&cfg.IdentityFile, "users", cfg.IdentityFile, "Identity file (default <data>/users.csv)")
	flags.StringVar(&cfg.AuditDB, "audit", cfg.AuditDB, "SQLite audit log path")
	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if cfg.IdentityFile == "" {
		cfg.IdentityFile = filepath.Join(cfg.DataDir, "users.csv")
	}
	return cfg, nil
}

// NewLogger builds a zap logger. format "console" selects the development encoder.
func NewLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	var zc zap.Config
	if format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.OutputPaths = []string{"stdout"}
		zc.ErrorOutputPaths = []string{"stderr"}
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseYears(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return append([]int(nil), inquiry.DefaultYears...), nil
	}
	var years []int
	for _, part := range splitList(s) {
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid DESK_YEARS entry %q: %w", part, err)
		}
		years = append(years, y)
	}
	return years, nil
}
