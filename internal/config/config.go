package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	mu   sync.RWMutex
	conf *Config
)

// Config struct is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Interview InterviewConfig `mapstructure:"interview"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds settings for the gateway HTTP server.
type ServerConfig struct {
	Port               string   `mapstructure:"port" validate:"required"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMinute uint     `mapstructure:"rate_limit_per_minute" validate:"gte=1"`
	MaxUploadMB        int64    `mapstructure:"max_upload_mb" validate:"gte=1"`
}

// ProviderConfig holds the upstream AI provider settings. An empty APIKey
// is allowed at load time; the gateways answer 500 for every call instead.
type ProviderConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	TranscriptionModel string        `mapstructure:"transcription_model" validate:"required"`
	EvaluationModel    string        `mapstructure:"evaluation_model" validate:"required"`
	Temperature        float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// GatewayConfig is what the interview client uses to reach the server.
type GatewayConfig struct {
	URL     string        `mapstructure:"url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// InterviewConfig holds the pacing of an interview session.
type InterviewConfig struct {
	QuestionsFile       string        `mapstructure:"questions_file" validate:"required"`
	StartCountdown      int           `mapstructure:"start_countdown" validate:"gte=0"`
	AnswerCountdown     int           `mapstructure:"answer_countdown" validate:"gte=0"`
	Tick                time.Duration `mapstructure:"tick" validate:"gt=0"`
	DefaultSuggestedSec int           `mapstructure:"default_suggested_sec" validate:"gte=1"`
	SpeechRate          float64       `mapstructure:"speech_rate" validate:"gt=0"`
	Muted               bool          `mapstructure:"muted"`
	Synthesizer         string        `mapstructure:"synthesizer"`
	RecorderCommand     string        `mapstructure:"recorder_command"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Console    bool   `mapstructure:"console"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_per_minute", 30)
	v.SetDefault("server.max_upload_mb", 25)

	// Provider defaults
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.transcription_model", "whisper-1")
	v.SetDefault("provider.evaluation_model", "gpt-4o-mini")
	v.SetDefault("provider.temperature", 0.2)
	v.SetDefault("provider.timeout", 30*time.Second)

	// Gateway client defaults
	v.SetDefault("gateway.url", "http://localhost:5050")
	v.SetDefault("gateway.timeout", 30*time.Second)

	// Interview defaults
	v.SetDefault("interview.questions_file", "config/questions.yaml")
	v.SetDefault("interview.start_countdown", 3)
	v.SetDefault("interview.answer_countdown", 3)
	v.SetDefault("interview.tick", time.Second)
	v.SetDefault("interview.default_suggested_sec", 45)
	v.SetDefault("interview.speech_rate", 1.0)
	v.SetDefault("interview.muted", false)
	v.SetDefault("interview.synthesizer", "") // first of espeak, say found
	v.SetDefault("interview.recorder_command", "rec")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/prepai.db")
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "prepai-db")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs
}

func newViper(projectRoot string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// e.g. PREPAI_SERVER_PORT
	v.SetEnvPrefix("PREPAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The provider credential keeps its conventional name as well.
	_ = v.BindEnv("provider.api_key", "PREPAI_PROVIDER_API_KEY", "OPENAI_API_KEY")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

func read(projectRoot string) (*viper.Viper, *Config, error) {
	v := newViper(projectRoot)
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	c, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return v, c, nil
}

// Load reads the configuration from projectRoot/config/config.yaml, the
// environment and the defaults.
func Load(projectRoot string) (*Config, error) {
	_, c, err := read(projectRoot)
	return c, err
}

// Init loads the configuration into the package-level value returned by
// Get and watches the config file for changes.
func Init(projectRoot string, log *zap.Logger) error {
	v, c, err := read(projectRoot)
	if err != nil {
		return err
	}
	Set(c)

	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
			reloaded, err := decode(v)
			if err != nil {
				log.Error("Error reloading configuration", zap.Error(err))
				return
			}
			Set(reloaded)
		})
	}

	log.Info("Configuration loaded successfully")
	return nil
}

// Get returns the current configuration.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return conf
}

// Set replaces the current configuration.
func Set(c *Config) {
	mu.Lock()
	conf = c
	mu.Unlock()
}
