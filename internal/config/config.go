package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Auth       AuthConfig
	S3         S3Config
	Log        LogConfig
	Extractor  ExtractorConfig
	Recognizer RecognizerConfig
	CORS       CORSConfig
	Queue      QueueConfig
	Table      TableConfig
	Batch      BatchConfig
	Notify     NotifyConfig
}

// NotifyConfig holds failure alert settings. Provider is "ses", "log", or empty to disable.
type NotifyConfig struct {
	Provider     string   `mapstructure:"provider"`
	Region       string   `mapstructure:"region"`
	FromAddress  string   `mapstructure:"from_address"`
	FromName     string   `mapstructure:"from_name"`
	Recipients   []string `mapstructure:"recipients"`
	DashboardURL string   `mapstructure:"dashboard_url"`
}

// QueueConfig holds parse queue worker settings.
type QueueConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	PollIntervalSecs int  `mapstructure:"poll_interval_secs"`
	MaxRetries       int  `mapstructure:"max_retries"`
	Concurrency      int  `mapstructure:"concurrency"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ProviderConfig holds settings for a single extraction service provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	Endpoint     string `mapstructure:"endpoint"`
	APIVersion   string `mapstructure:"api_version"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ExtractorConfig holds extraction service settings with multi-provider support.
type ExtractorConfig struct {
	// Flat fields describe a single provider when no primary is set.
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	Endpoint     string `mapstructure:"endpoint"`
	APIVersion   string `mapstructure:"api_version"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`

	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`

	// Mode selects how multiple providers combine: "fallback" or "hedged".
	Mode string `mapstructure:"mode"`

	// Prompt overrides; empty means the built-in text.
	ExtractPrompt string `mapstructure:"extract_prompt"`
	ClusterPrompt string `mapstructure:"cluster_prompt"`
}

// PrimaryConfig returns the primary provider config, falling back to the flat fields.
func (e *ExtractorConfig) PrimaryConfig() *ProviderConfig {
	if e.Primary.Provider != "" {
		return &e.Primary
	}
	return &ProviderConfig{
		Provider:     e.Provider,
		APIKey:       e.APIKey,
		DefaultModel: e.DefaultModel,
		Endpoint:     e.Endpoint,
		APIVersion:   e.APIVersion,
		MaxRetries:   e.MaxRetries,
		TimeoutSecs:  e.TimeoutSecs,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (e *ExtractorConfig) SecondaryConfig() *ProviderConfig {
	if e.Secondary.Provider != "" {
		return &e.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (e *ExtractorConfig) TertiaryConfig() *ProviderConfig {
	if e.Tertiary.Provider != "" {
		return &e.Tertiary
	}
	return nil
}

// RecognizerConfig holds document-recognition (OCR) service settings.
type RecognizerConfig struct {
	Provider    string `mapstructure:"provider"`
	Host        string `mapstructure:"host"`
	AppID       string `mapstructure:"app_id"`
	SecretCode  string `mapstructure:"secret_code"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// TableConfig holds the keyword sets used by the section splitter and table classifier.
type TableConfig struct {
	HeaderKeywords    []string `mapstructure:"header_keywords"`
	HeaderIndicators  []string `mapstructure:"header_indicators"`
	PriceKeywords     []string `mapstructure:"price_keywords"`
	SurchargeKeywords []string `mapstructure:"surcharge_keywords"`
	SurchargePhrases  []string `mapstructure:"surcharge_phrases"`
}

// BatchConfig holds cartesian risk thresholds, batch sizes and retry policy.
type BatchConfig struct {
	LowThreshold    int           `mapstructure:"low_threshold"`
	HighThreshold   int           `mapstructure:"high_threshold"`
	NormalSize      int           `mapstructure:"normal_size"`
	WeakRiskSize    int           `mapstructure:"weak_risk_size"`
	HighRiskSize    int           `mapstructure:"high_risk_size"`
	FixedSize       int           `mapstructure:"fixed_size"`
	MaxRetries      int           `mapstructure:"max_retries"`
	BaseInterval    time.Duration `mapstructure:"base_interval"`
	DefaultStrategy string        `mapstructure:"default_strategy"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	Environment    string        `mapstructure:"environment"`
	MaxBodySizeMB  int64         `mapstructure:"max_body_size_mb"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// AuthConfig holds bearer token settings for the API.
type AuthConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Secret      string        `mapstructure:"secret"`
	Issuer      string        `mapstructure:"issuer"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultTableConfig returns the built-in keyword sets for freight-rate tables.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		HeaderKeywords: []string{
			"港口", "港", "费用", "费", "价格", "单价", "航线", "船期", "时间", "日期",
			"币种", "箱型", "类型", "目的地", "起运港", "卸货港",
			"POL", "POD", "PDL", "FREIGHT", "DATE", "CURRENCY", "CONTAINER TYPE",
		},
		HeaderIndicators: []string{
			"PORT", "LOAD", "DISCHARGE", "DESTINATION", "ORIGIN", "POL", "POD", "PDL",
			"FREIGHT", "DATE", "CURRENCY", "CONTAINER TYPE", "VIA", "20GP", "40GP",
			"40HQ", "CY", "CFS",
		},
		PriceKeywords: []string{
			"date", "pol", "pod", "port of load", "port of discharge", "pdl", "via",
			"freight", "price", "destination", "country",
		},
		SurchargeKeywords: []string{
			"additional", "surcharge", "surcharges", "on top", "remarks", "css", "hcs",
			"pnc", "faf", "buc", "isps", "thc", "ctn", "srs", "fes", "baf", "brc", "lws",
			"slf", "cls", "gfs", "wrs", "dof", "doc", "pad", "ovw", "ccc", "pcs", "ams",
			"isp", "tad", "pts", "subject to", "overweight", "onc",
		},
		SurchargePhrases: []string{"additional", "surcharge", "on top"},
	}
}

// DefaultBatchConfig returns the built-in risk thresholds and batch policy.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		LowThreshold:    2,
		HighThreshold:   10,
		NormalSize:      20,
		WeakRiskSize:    10,
		HighRiskSize:    1,
		FixedSize:       10,
		MaxRetries:      3,
		BaseInterval:    2 * time.Second,
		DefaultStrategy: "risk",
	}
}

// Load reads configuration from environment variables with the FREIGHT_ prefix.
// When FREIGHT_CONFIG_FILE names a file, it is read first and env vars override it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FREIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Bind every known key explicitly so nested keys resolve from env.
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key, "FREIGHT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	if path := os.Getenv("FREIGHT_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_body_size_mb", 10)
	v.SetDefault("server.request_timeout", "280s")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "freight")
	v.SetDefault("db.password", "freight_secret")
	v.SetDefault("db.name", "freight_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.secret", "change-me-in-production")
	v.SetDefault("auth.issuer", "freightrates")
	v.SetDefault("auth.token_expiry", "24h")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "freight-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.poll_interval_secs", 5)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.concurrency", 2)

	// Extractor defaults (flat)
	v.SetDefault("extractor.provider", "openai")
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("extractor.default_model", "")
	v.SetDefault("extractor.endpoint", "")
	v.SetDefault("extractor.api_version", "")
	v.SetDefault("extractor.max_retries", 2)
	v.SetDefault("extractor.timeout_secs", 60)
	v.SetDefault("extractor.mode", "fallback")
	v.SetDefault("extractor.extract_prompt", "")
	v.SetDefault("extractor.cluster_prompt", "")
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("extractor."+tier+".provider", "")
		v.SetDefault("extractor."+tier+".api_key", "")
		v.SetDefault("extractor."+tier+".default_model", "")
		v.SetDefault("extractor."+tier+".endpoint", "")
		v.SetDefault("extractor."+tier+".api_version", "")
		v.SetDefault("extractor."+tier+".max_retries", 2)
		v.SetDefault("extractor."+tier+".timeout_secs", 60)
	}

	// Recognizer defaults
	v.SetDefault("recognizer.provider", "textin")
	v.SetDefault("recognizer.host", "https://api.textin.com")
	v.SetDefault("recognizer.app_id", "")
	v.SetDefault("recognizer.secret_code", "")
	v.SetDefault("recognizer.timeout_secs", 120)

	// Notify defaults
	v.SetDefault("notify.provider", "log")
	v.SetDefault("notify.region", "us-east-1")
	v.SetDefault("notify.from_address", "noreply@freightrates.local")
	v.SetDefault("notify.from_name", "Freight Rates")
	v.SetDefault("notify.recipients", "")
	v.SetDefault("notify.dashboard_url", "http://localhost:3000")

	table := DefaultTableConfig()
	v.SetDefault("table.header_keywords", strings.Join(table.HeaderKeywords, ","))
	v.SetDefault("table.header_indicators", strings.Join(table.HeaderIndicators, ","))
	v.SetDefault("table.price_keywords", strings.Join(table.PriceKeywords, ","))
	v.SetDefault("table.surcharge_keywords", strings.Join(table.SurchargeKeywords, ","))
	v.SetDefault("table.surcharge_phrases", strings.Join(table.SurchargePhrases, ","))

	batch := DefaultBatchConfig()
	v.SetDefault("batch.low_threshold", batch.LowThreshold)
	v.SetDefault("batch.high_threshold", batch.HighThreshold)
	v.SetDefault("batch.normal_size", batch.NormalSize)
	v.SetDefault("batch.weak_risk_size", batch.WeakRiskSize)
	v.SetDefault("batch.high_risk_size", batch.HighRiskSize)
	v.SetDefault("batch.fixed_size", batch.FixedSize)
	v.SetDefault("batch.max_retries", batch.MaxRetries)
	v.SetDefault("batch.base_interval", batch.BaseInterval.String())
	v.SetDefault("batch.default_strategy", batch.DefaultStrategy)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if FREIGHT_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FREIGHT_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:           serverPort,
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
		Environment:    v.GetString("server.environment"),
		MaxBodySizeMB:  v.GetInt64("server.max_body_size_mb"),
		RequestTimeout: v.GetDuration("server.request_timeout"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Auth = AuthConfig{
		Enabled:     v.GetBool("auth.enabled"),
		Secret:      v.GetString("auth.secret"),
		Issuer:      v.GetString("auth.issuer"),
		TokenExpiry: v.GetDuration("auth.token_expiry"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: stringList(v, "cors.allowed_origins"),
	}
	cfg.Queue = QueueConfig{
		Enabled:          v.GetBool("queue.enabled"),
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
	}
	cfg.Extractor = ExtractorConfig{
		Provider:      v.GetString("extractor.provider"),
		APIKey:        v.GetString("extractor.api_key"),
		DefaultModel:  v.GetString("extractor.default_model"),
		Endpoint:      v.GetString("extractor.endpoint"),
		APIVersion:    v.GetString("extractor.api_version"),
		MaxRetries:    v.GetInt("extractor.max_retries"),
		TimeoutSecs:   v.GetInt("extractor.timeout_secs"),
		Primary:       providerConfig(v, "extractor.primary"),
		Secondary:     providerConfig(v, "extractor.secondary"),
		Tertiary:      providerConfig(v, "extractor.tertiary"),
		Mode:          v.GetString("extractor.mode"),
		ExtractPrompt: v.GetString("extractor.extract_prompt"),
		ClusterPrompt: v.GetString("extractor.cluster_prompt"),
	}
	cfg.Recognizer = RecognizerConfig{
		Provider:    v.GetString("recognizer.provider"),
		Host:        strings.TrimRight(v.GetString("recognizer.host"), "/"),
		AppID:       v.GetString("recognizer.app_id"),
		SecretCode:  v.GetString("recognizer.secret_code"),
		TimeoutSecs: v.GetInt("recognizer.timeout_secs"),
	}
	cfg.Table = TableConfig{
		HeaderKeywords:    stringList(v, "table.header_keywords"),
		HeaderIndicators:  stringList(v, "table.header_indicators"),
		PriceKeywords:     stringList(v, "table.price_keywords"),
		SurchargeKeywords: stringList(v, "table.surcharge_keywords"),
		SurchargePhrases:  stringList(v, "table.surcharge_phrases"),
	}
	cfg.Batch = BatchConfig{
		LowThreshold:    v.GetInt("batch.low_threshold"),
		HighThreshold:   v.GetInt("batch.high_threshold"),
		NormalSize:      v.GetInt("batch.normal_size"),
		WeakRiskSize:    v.GetInt("batch.weak_risk_size"),
		HighRiskSize:    v.GetInt("batch.high_risk_size"),
		FixedSize:       v.GetInt("batch.fixed_size"),
		MaxRetries:      v.GetInt("batch.max_retries"),
		BaseInterval:    v.GetDuration("batch.base_interval"),
		DefaultStrategy: v.GetString("batch.default_strategy"),
	}
	cfg.Notify = NotifyConfig{
		Provider:     v.GetString("notify.provider"),
		Region:       v.GetString("notify.region"),
		FromAddress:  v.GetString("notify.from_address"),
		FromName:     v.GetString("notify.from_name"),
		Recipients:   stringList(v, "notify.recipients"),
		DashboardURL: strings.TrimRight(v.GetString("notify.dashboard_url"), "/"),
	}

	if err := cfg.Batch.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func providerConfig(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		Provider:     v.GetString(prefix + ".provider"),
		APIKey:       v.GetString(prefix + ".api_key"),
		DefaultModel: v.GetString(prefix + ".default_model"),
		Endpoint:     v.GetString(prefix + ".endpoint"),
		APIVersion:   v.GetString(prefix + ".api_version"),
		MaxRetries:   v.GetInt(prefix + ".max_retries"),
		TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
	}
}

// stringList reads a list value that may be a YAML sequence or a comma-separated string.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case string:
		raw = strings.Split(val, ",")
	case []string:
		raw = val
	case []interface{}:
		for _, item := range val {
			raw = append(raw, fmt.Sprint(item))
		}
	}
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks that thresholds and batch sizes are usable.
func (b *BatchConfig) Validate() error {
	if b.LowThreshold < 1 || b.HighThreshold < b.LowThreshold {
		return fmt.Errorf("invalid risk thresholds: low=%d high=%d", b.LowThreshold, b.HighThreshold)
	}
	if b.NormalSize < 1 || b.WeakRiskSize < 1 || b.HighRiskSize < 1 || b.FixedSize < 1 {
		return fmt.Errorf("batch sizes must be positive")
	}
	if b.MaxRetries < 1 {
		return fmt.Errorf("batch.max_retries must be at least 1, got %d", b.MaxRetries)
	}
	if b.BaseInterval < 0 {
		return fmt.Errorf("batch.base_interval must not be negative")
	}
	switch b.DefaultStrategy {
	case "risk", "fixed":
	default:
		return fmt.Errorf("unknown batch.default_strategy %q", b.DefaultStrategy)
	}
	return nil
}
