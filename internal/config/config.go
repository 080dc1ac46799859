package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/boundary-pipeline/internal/domain"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	Worker   WorkerConfig
	Pipeline PipelineConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	MapsCacheTTL time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

// WorkerConfig - фоновый воркер архивации диагностики из Redis Stream в PostgreSQL
type WorkerConfig struct {
	Enabled       bool
	ConsumerGroup string
	// ConsumerName должен переживать перезапуск, иначе pending-список теряет владельца
	ConsumerName string
	BatchSize    int
}

// PipelineConfig - параметры запуска конвейера разбиения и упрощения
type PipelineConfig struct {
	BaseDir           string
	SkipExisting      bool
	PoolSize          int
	JobTimeout        time.Duration
	QualityLevels     int
	QualityMaxEpsilon float64
	// QualityEpsilons задает лестницу явно, тогда QualityLevels = len
	QualityEpsilons []float64
	Validate        bool
	Rewind          bool
	DefinitionFile  string
	DiagnosticsLog  string
}

type MetricsConfig struct {
	TextfilePath string
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("SKIP_EXISTING", true)
	viper.SetDefault("TOPOLOGY_VALIDATE", true)

	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	epsilons, err := parseEpsilons(viper.GetString("QUALITY_EPSILONS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("API_HOST"),
			Port: viper.GetInt("API_PORT"),
			Env:  viper.GetString("API_ENV"),
		},
		Database: DatabaseConfig{
			Enabled:         viper.GetBool("DB_ENABLED"),
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			MapsCacheTTL: time.Duration(viper.GetInt("MAPS_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
			File:  viper.GetString("LOG_FILE"),
		},
		Worker: WorkerConfig{
			Enabled:       viper.GetBool("WORKER_ENABLED"),
			ConsumerGroup: viper.GetString("WORKER_CONSUMER_GROUP"),
			ConsumerName:  viper.GetString("WORKER_CONSUMER_NAME"),
			BatchSize:     viper.GetInt("WORKER_BATCH_SIZE"),
		},
		Pipeline: PipelineConfig{
			BaseDir:           viper.GetString("BASE_DIR"),
			SkipExisting:      viper.GetBool("SKIP_EXISTING"),
			PoolSize:          viper.GetInt("WORKER_POOL_SIZE"),
			JobTimeout:        time.Duration(viper.GetInt("JOB_TIMEOUT")) * time.Second,
			QualityLevels:     viper.GetInt("QUALITY_LEVELS"),
			QualityMaxEpsilon: viper.GetFloat64("QUALITY_MAX_EPSILON"),
			QualityEpsilons:   epsilons,
			Validate:          viper.GetBool("TOPOLOGY_VALIDATE"),
			Rewind:            viper.GetBool("GEOJSON_REWIND"),
			DefinitionFile:    viper.GetString("PIPELINE_CONFIG"),
			DiagnosticsLog:    viper.GetString("DIAGNOSTICS_LOG"),
		},
		Metrics: MetricsConfig{
			TextfilePath: viper.GetString("METRICS_TEXTFILE"),
		},
	}

	cfg.applyDefaults()
	if err := cfg.Pipeline.validateLadder(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Cache.MapsCacheTTL == 0 {
		c.Cache.MapsCacheTTL = time.Hour
	}
	if c.Worker.ConsumerGroup == "" {
		c.Worker.ConsumerGroup = "diagnostics-archive-workers"
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 50
	}
	if c.Pipeline.BaseDir == "" {
		c.Pipeline.BaseDir = "."
	}
	if c.Pipeline.PoolSize <= 0 {
		c.Pipeline.PoolSize = 8
	}
	if n := len(c.Pipeline.QualityEpsilons); n > 0 {
		c.Pipeline.QualityLevels = n
	}
	if c.Pipeline.QualityLevels <= 0 {
		c.Pipeline.QualityLevels = 4
	}
	if c.Pipeline.QualityMaxEpsilon == 0 {
		c.Pipeline.QualityMaxEpsilon = 0.01
	}
	if c.Pipeline.DefinitionFile == "" {
		c.Pipeline.DefinitionFile = "pipeline.yaml"
	}
	if c.Pipeline.DiagnosticsLog == "" {
		c.Pipeline.DiagnosticsLog = filepath.Join("log", "diagnostics.jsonl")
	}
}

// Ladder возвращает лестницу качества: явный список QUALITY_EPSILONS или
// linspace(0, max, levels) в обратном порядке
func (c *PipelineConfig) Ladder() []domain.QualityLevel {
	if len(c.QualityEpsilons) == 0 {
		return domain.QualityLadder(c.QualityLevels, c.QualityMaxEpsilon)
	}
	ladder := make([]domain.QualityLevel, len(c.QualityEpsilons))
	for i, eps := range c.QualityEpsilons {
		ladder[i] = domain.QualityLevel{Index: i + 1, Epsilon: eps}
	}
	return ladder
}

func (c *PipelineConfig) validateLadder() error {
	if c.QualityMaxEpsilon < 0 {
		return fmt.Errorf("QUALITY_MAX_EPSILON must not be negative: %g", c.QualityMaxEpsilon)
	}
	ladder := c.Ladder()
	for _, q := range ladder {
		if q.Epsilon < 0 {
			return fmt.Errorf("quality level %d has negative epsilon %g", q.Index, q.Epsilon)
		}
	}
	if !domain.ValidLadder(ladder) {
		return fmt.Errorf("quality ladder must not increase epsilon with level: %v", c.QualityEpsilons)
	}
	return nil
}

// parseEpsilons разбирает "0.01,0.005,0"
func parseEpsilons(raw string) ([]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid QUALITY_EPSILONS value %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Resolve возвращает путь относительно BaseDir, абсолютные пути не меняются
func (c *PipelineConfig) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
