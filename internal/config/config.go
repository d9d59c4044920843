package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures every setting required to boot the forecasting service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Sampler    SamplerConfig    `yaml:"sampler"`
	Blend      BlendConfig      `yaml:"blend"`
	Live       LiveConfig       `yaml:"live"`
	Forecaster ForecasterConfig `yaml:"forecaster"`
	Artifact   ArtifactConfig   `yaml:"artifact"`
	Actions    ActionsConfig    `yaml:"actions"`
	History    HistoryConfig    `yaml:"history"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ServerConfig controls the gRPC and HTTP listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// PipelineConfig controls the periodic driver and window geometry.
type PipelineConfig struct {
	Interval            time.Duration `yaml:"interval"`
	Backoff             time.Duration `yaml:"backoff"`
	BufferCapacity      int           `yaml:"bufferCapacity"`
	WindowSize          int           `yaml:"windowSize"`
	Horizon             int           `yaml:"horizon"`
	CongestionThreshold float64       `yaml:"congestionThreshold"`
	ActualOverlayPoints int           `yaml:"actualOverlayPoints"`
	WarmupSamples       int           `yaml:"warmupSamples"`
}

// SamplerConfig controls the synthetic scenario schedule.
type SamplerConfig struct {
	Seed       int64         `yaml:"seed"`
	PhaseTicks int           `yaml:"phaseTicks"`
	Schedule   []PhaseConfig `yaml:"schedule"`
}

// PhaseConfig is one (regime, duration) entry of a scenario schedule.
type PhaseConfig struct {
	Regime string `yaml:"regime"`
	Ticks  int    `yaml:"ticks"`
}

// BlendConfig controls the synthetic/live convex combination.
type BlendConfig struct {
	LiveWeight float64 `yaml:"liveWeight"`
}

// LiveConfig selects where live controller metrics come from.
type LiveConfig struct {
	Source     string        `yaml:"source"`
	Controller string        `yaml:"controller"`
	BaseURL    string        `yaml:"baseURL"`
	StatsPath  string        `yaml:"statsPath"`
	Timeout    time.Duration `yaml:"timeout"`
	Seed       int64         `yaml:"seed"`
}

// ForecasterConfig controls model architecture and the offline training pass.
type ForecasterConfig struct {
	HiddenSize     int     `yaml:"hiddenSize"`
	Layers         int     `yaml:"layers"`
	Epochs         int     `yaml:"epochs"`
	BatchSize      int     `yaml:"batchSize"`
	LearningRate   float64 `yaml:"learningRate"`
	Patience       int     `yaml:"patience"`
	MinDelta       float64 `yaml:"minDelta"`
	TrainingPoints int     `yaml:"trainingPoints"`
	TrainRatio     float64 `yaml:"trainRatio"`
	Seed           int64   `yaml:"seed"`
}

// ArtifactConfig selects the durable store for the trained forecaster.
type ArtifactConfig struct {
	Backend string       `yaml:"backend"`
	Path    string       `yaml:"path"`
	Valkey  ValkeyConfig `yaml:"valkey"`
	MinIO   MinIOConfig  `yaml:"minio"`
}

// ValkeyConfig controls the Valkey-backed artifact store.
type ValkeyConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// MinIOConfig controls the S3-compatible artifact store.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL"`
}

// ActionsConfig controls the remediation engine.
type ActionsConfig struct {
	CommandsPath  string        `yaml:"commandsPath"`
	MaxPendingAge time.Duration `yaml:"maxPendingAge"`
}

// HistoryConfig controls the bounded history buffers.
type HistoryConfig struct {
	Predictions int `yaml:"predictions"`
	Alerts      int `yaml:"alerts"`
	ActionLog   int `yaml:"actionLog"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sampleRatio"`
	ServiceName string  `yaml:"serviceName"`
	Environment string  `yaml:"environment"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("NETFORECAST_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return defaultConfig()
}

// RollbackWindow is the time span one forecast covers: interval × horizon.
func (p PipelineConfig) RollbackWindow() time.Duration {
	return p.Interval * time.Duration(p.Horizon)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Pipeline.Interval <= 0 {
		problems = append(problems, "pipeline.interval must be positive")
	}
	if c.Pipeline.WindowSize <= 0 {
		problems = append(problems, "pipeline.windowSize must be positive")
	}
	if c.Pipeline.Horizon <= 0 {
		problems = append(problems, "pipeline.horizon must be positive")
	}
	if c.Pipeline.BufferCapacity < c.Pipeline.WindowSize {
		problems = append(problems, "pipeline.bufferCapacity must hold at least one window")
	}
	if c.Pipeline.CongestionThreshold <= 0 || c.Pipeline.CongestionThreshold > 100 {
		problems = append(problems, "pipeline.congestionThreshold must be in (0,100]")
	}
	if c.Blend.LiveWeight < 0 || c.Blend.LiveWeight > 1 {
		problems = append(problems, "blend.liveWeight must be in [0,1]")
	}
	if c.Forecaster.TrainRatio <= 0 || c.Forecaster.TrainRatio > 1 {
		problems = append(problems, "forecaster.trainRatio must be in (0,1]")
	}
	for i, phase := range c.Sampler.Schedule {
		if !KnownRegime(phase.Regime) {
			problems = append(problems, fmt.Sprintf("sampler.schedule[%d]: unknown regime %q", i, phase.Regime))
		}
		if phase.Ticks <= 0 {
			problems = append(problems, fmt.Sprintf("sampler.schedule[%d]: ticks must be positive", i))
		}
	}
	switch strings.ToLower(c.Live.Source) {
	case "simulated", "http", "none":
	default:
		problems = append(problems, fmt.Sprintf("live.source: unknown source %q", c.Live.Source))
	}
	switch strings.ToLower(c.Artifact.Backend) {
	case "file", "valkey", "minio", "memory":
	default:
		problems = append(problems, fmt.Sprintf("artifact.backend: unknown backend %q", c.Artifact.Backend))
	}
	switch strings.ToLower(strings.TrimSpace(c.Tracing.Exporter)) {
	case "", "none", "stdout", "otlphttp", "http":
	default:
		problems = append(problems, fmt.Sprintf("tracing.exporter: unknown exporter %q", c.Tracing.Exporter))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// KnownRegime reports whether name is a recognised scenario regime or alias.
func KnownRegime(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "normal", "growth", "microburst", "overload", "ddos", "attack", "degradation":
		return true
	}
	return false
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50061",
			HTTPAddress:     ":8080",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Pipeline: PipelineConfig{
			Interval:            2 * time.Second,
			Backoff:             5 * time.Second,
			BufferCapacity:      1000,
			WindowSize:          20,
			Horizon:             6,
			CongestionThreshold: 80,
			ActualOverlayPoints: 30,
			WarmupSamples:       0,
		},
		Sampler: SamplerConfig{Seed: 7, PhaseTicks: 60},
		Blend:   BlendConfig{LiveWeight: 0.4},
		Live: LiveConfig{
			Source:     "simulated",
			Controller: "adaptive",
			StatsPath:  "/api/metrics",
			Timeout:    time.Second,
			Seed:       11,
		},
		Forecaster: ForecasterConfig{
			HiddenSize:     64,
			Layers:         2,
			Epochs:         40,
			BatchSize:      64,
			LearningRate:   1e-3,
			Patience:       8,
			MinDelta:       1e-4,
			TrainingPoints: 2000,
			TrainRatio:     0.8,
			Seed:           42,
		},
		Artifact: ArtifactConfig{
			Backend: "file",
			Path:    "models/forecaster.nfa",
			Valkey: ValkeyConfig{
				DialTimeout:  2 * time.Second,
				ReadTimeout:  2 * time.Second,
				WriteTimeout: 2 * time.Second,
				MaxRetries:   2,
			},
			MinIO: MinIOConfig{Bucket: "netforecast-artifacts"},
		},
		Actions: ActionsConfig{MaxPendingAge: 2 * time.Minute},
		History: HistoryConfig{Predictions: 300, Alerts: 100, ActionLog: 200},
		Tracing: TracingConfig{Exporter: "none", SampleRatio: 1, ServiceName: "netforecast"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NETFORECAST_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("NETFORECAST_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("NETFORECAST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NETFORECAST_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("NETFORECAST_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.Interval = d
		}
	}
	if v := os.Getenv("NETFORECAST_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.Backoff = d
		}
	}
	if v := os.Getenv("NETFORECAST_CONGESTION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pipeline.CongestionThreshold = f
		}
	}
	if v := os.Getenv("NETFORECAST_LIVE_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Blend.LiveWeight = f
		}
	}
	if v := os.Getenv("NETFORECAST_LIVE_SOURCE"); v != "" {
		cfg.Live.Source = v
	}
	if v := os.Getenv("NETFORECAST_LIVE_CONTROLLER"); v != "" {
		cfg.Live.Controller = v
	}
	if v := os.Getenv("NETFORECAST_LIVE_BASE_URL"); v != "" {
		cfg.Live.BaseURL = v
	}
	if v := os.Getenv("NETFORECAST_ARTIFACT_BACKEND"); v != "" {
		cfg.Artifact.Backend = v
	}
	if v := os.Getenv("NETFORECAST_ARTIFACT_PATH"); v != "" {
		cfg.Artifact.Path = v
	}
	if v := os.Getenv("NETFORECAST_VALKEY_ADDR"); v != "" {
		cfg.Artifact.Valkey.Addr = v
	}
	if v := os.Getenv("NETFORECAST_VALKEY_USERNAME"); v != "" {
		cfg.Artifact.Valkey.Username = v
	}
	if v := os.Getenv("NETFORECAST_VALKEY_PASSWORD"); v != "" {
		cfg.Artifact.Valkey.Password = v
	}
	if v := os.Getenv("NETFORECAST_VALKEY_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Artifact.Valkey.DB = db
		}
	}
	if v := os.Getenv("NETFORECAST_VALKEY_TLS"); strings.EqualFold(v, "true") || v == "1" {
		cfg.Artifact.Valkey.TLS = true
	}
	if v := os.Getenv("NETFORECAST_MINIO_ENDPOINT"); v != "" {
		cfg.Artifact.MinIO.Endpoint = v
	}
	if v := os.Getenv("NETFORECAST_MINIO_ACCESS_KEY"); v != "" {
		cfg.Artifact.MinIO.AccessKey = v
	}
	if v := os.Getenv("NETFORECAST_MINIO_SECRET_KEY"); v != "" {
		cfg.Artifact.MinIO.SecretKey = v
	}
	if v := os.Getenv("NETFORECAST_MINIO_BUCKET"); v != "" {
		cfg.Artifact.MinIO.Bucket = v
	}
	if v := os.Getenv("NETFORECAST_MINIO_USE_SSL"); strings.EqualFold(v, "true") || v == "1" {
		cfg.Artifact.MinIO.UseSSL = true
	}
	if v := os.Getenv("NETFORECAST_COMMANDS_PATH"); v != "" {
		cfg.Actions.CommandsPath = v
	}
	if v := os.Getenv("NETFORECAST_MAX_PENDING_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Actions.MaxPendingAge = d
		}
	}
	if v := os.Getenv("NETFORECAST_OTEL_EXPORTER"); v != "" {
		cfg.Tracing.Exporter = v
	}
	if v := os.Getenv("NETFORECAST_OTEL_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
}
