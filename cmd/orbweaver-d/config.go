package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAddr         = "127.0.0.1:8090"
	defaultStoreKind    = "json"
	defaultRedisChannel = "orbweaver:frames"
)

type Config struct {
	Addr         string
	SettingsPath string
	StoreKind    string
	MetadataPath string
	DBPath       string
	RedisAddr    string
	RedisChannel string
	ArchiveDir   string
	Watch        bool
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	defaultMetadataPath := filepath.Join(cwd, "metadata.json")
	defaultDBPath := filepath.Join(cwd, "orbweaver.db")
	defaultSettingsPath := filepath.Join(cwd, "settings.yaml")

	addr := addrFromEnv(defaultAddr)
	settingsPath := envOrDefault("ORBWEAVER_SETTINGS_PATH", defaultSettingsPath)
	storeKind := envOrDefault("ORBWEAVER_STORE", defaultStoreKind)
	metadataPath := envOrDefault("ORBWEAVER_METADATA_PATH", defaultMetadataPath)
	dbPath := envOrDefault("ORBWEAVER_DB_PATH", defaultDBPath)
	redisAddr := os.Getenv("ORBWEAVER_REDIS_ADDR")
	redisChannel := envOrDefault("ORBWEAVER_REDIS_CHANNEL", defaultRedisChannel)
	archiveDir := os.Getenv("ORBWEAVER_ARCHIVE_DIR")

	flagSet := flag.NewFlagSet("orbweaver-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")
	flagSettings := flagSet.String("settings", settingsPath, "path to settings YAML")
	flagStore := flagSet.String("store", storeKind, "metadata store kind: json|sqlite")
	flagMetadata := flagSet.String("metadata", metadataPath, "path to metadata JSON (store=json)")
	flagDB := flagSet.String("db", dbPath, "path to SQLite database (store=sqlite)")
	flagRedis := flagSet.String("redis", redisAddr, "redis address for the frame relay (empty disables)")
	flagRedisChannel := flagSet.String("redis-channel", redisChannel, "redis channel for the frame relay")
	flagArchive := flagSet.String("archive", archiveDir, "directory for graph snapshots after each rebuild (empty disables)")
	flagWatch := flagSet.Bool("watch", false, "rebuild automatically when the metadata file changes")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	config := Config{
		Addr:         strings.TrimSpace(*flagAddr),
		SettingsPath: resolvePath(*flagSettings, cwd),
		StoreKind:    strings.ToLower(strings.TrimSpace(*flagStore)),
		MetadataPath: resolvePath(*flagMetadata, cwd),
		DBPath:       resolvePath(*flagDB, cwd),
		RedisAddr:    strings.TrimSpace(*flagRedis),
		RedisChannel: strings.TrimSpace(*flagRedisChannel),
		ArchiveDir:   resolvePath(*flagArchive, cwd),
		Watch:        *flagWatch,
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}
	if config.StoreKind != "json" && config.StoreKind != "sqlite" {
		return Config{}, fmt.Errorf("unsupported store kind: %s", config.StoreKind)
	}
	if config.RedisAddr != "" && config.RedisChannel == "" {
		return Config{}, errors.New("redis relay requires a channel")
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("ORBWEAVER_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("ORBWEAVER_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
