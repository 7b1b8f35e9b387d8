package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration. It is built once at
// startup and passed to every constructor; nothing reads it from ambient
// global state.
type Config struct {
	Naver      NaverConfig      `yaml:"naver" mapstructure:"naver"`
	NewsAPI    NewsAPIConfig    `yaml:"newsapi" mapstructure:"newsapi"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Cohere     CohereConfig     `yaml:"cohere" mapstructure:"cohere"`
	Webex      WebexConfig      `yaml:"webex" mapstructure:"webex"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" mapstructure:"checkpoint"`
	Collect    CollectConfig    `yaml:"collect" mapstructure:"collect"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// NaverConfig holds Naver open API credentials.
type NaverConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
}

// NewsAPIConfig holds newsapi.org credentials.
type NewsAPIConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// AnthropicConfig holds judgment-service settings.
type AnthropicConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	Model        string `yaml:"model" mapstructure:"model"`
	SummaryModel string `yaml:"summary_model" mapstructure:"summary_model"`
}

// CohereConfig holds embedding-service settings.
type CohereConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
}

// WebexConfig holds delivery-channel settings.
type WebexConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	RoomID string `yaml:"room_id" mapstructure:"room_id"`
	// Digest sends one combined document instead of per-article messages.
	Digest bool `yaml:"digest" mapstructure:"digest"`
}

// CheckpointConfig configures the durable handoff between collect and send.
type CheckpointConfig struct {
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	Region    string `yaml:"region" mapstructure:"region"`
	LocalPath string `yaml:"local_path" mapstructure:"local_path"`
}

// CollectConfig configures news collection.
type CollectConfig struct {
	Keywords         []string `yaml:"keywords" mapstructure:"keywords"`
	KeywordsFile     string   `yaml:"keywords_file" mapstructure:"keywords_file"`
	TargetPerKeyword int      `yaml:"target_per_keyword" mapstructure:"target_per_keyword"`
	MaxPages         int      `yaml:"max_pages" mapstructure:"max_pages"`
	PageSize         int      `yaml:"page_size" mapstructure:"page_size"`
	// Timezone is the fixed reference zone for the prior-day window.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// PipelineConfig configures the filtering stages.
type PipelineConfig struct {
	RateLimitPerMinute int     `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	HeadlineThreshold  float64 `yaml:"headline_threshold" mapstructure:"headline_threshold"`
	ContentThreshold   float64 `yaml:"content_threshold" mapstructure:"content_threshold"`
	MinContentChars    int     `yaml:"min_content_chars" mapstructure:"min_content_chars"`
}

// Workers returns the bounded fan-out size for judgment stages.
func (p PipelineConfig) Workers() int {
	w := p.RateLimitPerMinute / 6
	if w > 10 {
		w = 10
	}
	if w < 1 {
		w = 1
	}
	return w
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NEWSWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.summary_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("cohere.model", "embed-multilingual-v3.0")
	v.SetDefault("cohere.dimension", 768)
	v.SetDefault("checkpoint.prefix", "briefs")
	v.SetDefault("checkpoint.region", "ap-northeast-2")
	v.SetDefault("checkpoint.local_path", "newswatch.db")
	v.SetDefault("collect.keywords", []string{"AI"})
	v.SetDefault("collect.target_per_keyword", 30)
	v.SetDefault("collect.max_pages", 10)
	v.SetDefault("collect.page_size", 100)
	v.SetDefault("collect.timezone", "Asia/Seoul")
	v.SetDefault("pipeline.rate_limit_per_minute", 60)
	v.SetDefault("pipeline.headline_threshold", 0.85)
	v.SetDefault("pipeline.content_threshold", 0.90)
	v.SetDefault("pipeline.min_content_chars", 200)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Collect.KeywordsFile != "" {
		keywords, err := LoadKeywords(cfg.Collect.KeywordsFile)
		if err != nil {
			return nil, err
		}
		cfg.Collect.Keywords = keywords
	}

	return &cfg, nil
}

// keywordsFile is the schema of a standalone keyword list.
type keywordsFile struct {
	Keywords []string `yaml:"keywords"`
}

// LoadKeywords reads search keywords from a YAML file, overriding the
// inline keyword list.
func LoadKeywords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read keywords file %s", path)
	}
	var kf keywordsFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, eris.Wrap(err, "config: parse keywords file")
	}
	if len(kf.Keywords) == 0 {
		return nil, eris.Errorf("config: keywords file %s lists no keywords", path)
	}
	return kf.Keywords, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
