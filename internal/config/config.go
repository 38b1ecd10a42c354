// Package config provides functionality for managing configuration options
// for the application using a config file, command-line flags and
// environment variables.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `yaml:"server_address"`

	// ResultHostname is the base URL used for result links.
	ResultHostname string `yaml:"base_url"`

	// GRPCAddress enables the gRPC health server when set.
	GRPCAddress string `yaml:"grpc_address"`

	// StoreBackend selects the key-value store: redis, postgres or memory.
	StoreBackend string `yaml:"store_backend"`

	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `yaml:"database_dsn"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	StoreTimeout    time.Duration `yaml:"store_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`

	// TrackReconnects downgrades the store state when a periodic ping fails.
	TrackReconnects bool `yaml:"track_reconnects"`

	// EnableList exposes GET /getAll.
	EnableList bool `yaml:"enable_list"`

	// TrustedSubnet restricts GET /getAll to clients inside this CIDR.
	TrustedSubnet string `yaml:"trusted_subnet"`

	// EnablePprof indicates whether to enable pprof for performance profiling.
	EnablePprof bool `yaml:"enable_pprof"`

	// EnableHTTPS indicates whether to enable https.
	EnableHTTPS bool `yaml:"enable_https"`

	EnableTracing bool `yaml:"enable_tracing"`

	// Config is the path of a YAML or JSON config file.
	Config string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Options {
	return Options{
		Port:            ":5000",
		ResultHostname:  "http://localhost:5000",
		StoreBackend:    BackendRedis,
		RedisHost:       "redis",
		RedisPort:       "6379",
		LogLevel:        "info",
		ProbeTimeout:    5 * time.Second,
		StoreTimeout:    3 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MonitorInterval: 2 * time.Second,
		TrackReconnects: true,
		EnableList:      true,
	}
}

// Parse reads the process arguments and environment.
func Parse() (*Options, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs builds the configuration from defaults, then the config file,
// then explicitly set flags, then environment variables.
func ParseArgs(args []string) (*Options, error) {
	def := Default()
	flags := def

	fs := flag.NewFlagSet("shortener", flag.ContinueOnError)
	fs.StringVar(&flags.Port, "a", def.Port, "run on ip:port server")
	fs.StringVar(&flags.ResultHostname, "b", def.ResultHostname, "result base url")
	fs.StringVar(&flags.GRPCAddress, "g", def.GRPCAddress, "grpc health server address")
	fs.StringVar(&flags.StoreBackend, "s", def.StoreBackend, "store backend: redis, postgres or memory")
	fs.StringVar(&flags.DatabaseDSN, "d", def.DatabaseDSN, "db address")
	fs.StringVar(&flags.LogLevel, "l", def.LogLevel, "log level")
	fs.BoolVar(&flags.EnablePprof, "p", def.EnablePprof, "enable pprof")
	fs.BoolVar(&flags.EnableHTTPS, "t", def.EnableHTTPS, "enable https")
	fs.StringVar(&flags.Config, "c", "", "path to config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := def

	path := flags.Config
	if path == "" {
		path = os.Getenv("CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &opts); err != nil {
			return nil, err
		}
		opts.Config = path
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			opts.Port = flags.Port
		case "b":
			opts.ResultHostname = flags.ResultHostname
		case "g":
			opts.GRPCAddress = flags.GRPCAddress
		case "s":
			opts.StoreBackend = flags.StoreBackend
		case "d":
			opts.DatabaseDSN = flags.DatabaseDSN
		case "l":
			opts.LogLevel = flags.LogLevel
		case "p":
			opts.EnablePprof = flags.EnablePprof
		case "t":
			opts.EnableHTTPS = flags.EnableHTTPS
		}
	})

	if err := applyEnv(&opts); err != nil {
		return nil, err
	}

	switch opts.StoreBackend {
	case BackendRedis, BackendPostgres, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.StoreBackend)
	}
	if opts.StoreBackend == BackendPostgres && opts.DatabaseDSN == "" {
		return nil, fmt.Errorf("store backend %q requires DATABASE_DSN", BackendPostgres)
	}

	return &opts, nil
}

func loadFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(opts *Options) error {
	if port := os.Getenv("PORT"); port != "" {
		opts.Port = ":" + port
	}

	strs := map[string]*string{
		"SERVER_ADDRESS": &opts.Port,
		"BASE_URL":       &opts.ResultHostname,
		"GRPC_ADDRESS":   &opts.GRPCAddress,
		"STORE_BACKEND":  &opts.StoreBackend,
		"REDIS_HOST":     &opts.RedisHost,
		"REDIS_PORT":     &opts.RedisPort,
		"REDIS_PASSWORD": &opts.RedisPassword,
		"DATABASE_DSN":   &opts.DatabaseDSN,
		"LOG_LEVEL":      &opts.LogLevel,
		"LOG_FILE":       &opts.LogFile,
		"TRUSTED_SUBNET": &opts.TrustedSubnet,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"PROBE_TIMEOUT":    &opts.ProbeTimeout,
		"STORE_TIMEOUT":    &opts.StoreTimeout,
		"SHUTDOWN_TIMEOUT": &opts.ShutdownTimeout,
		"MONITOR_INTERVAL": &opts.MonitorInterval,
	}
	for name, dst := range durations {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
	}

	bools := map[string]*bool{
		"TRACK_RECONNECTS": &opts.TrackReconnects,
		"ENABLE_LIST":      &opts.EnableList,
		"ENABLE_PPROF":     &opts.EnablePprof,
		"ENABLE_HTTPS":     &opts.EnableHTTPS,
		"ENABLE_TRACING":   &opts.EnableTracing,
	}
	for name, dst := range bools {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		opts.RedisDB = db
	}

	return nil
}
