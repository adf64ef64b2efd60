// Package config defines the configuration contract and handles loading and validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken       = "TELEGRAM_TOKEN"
	KeyMongoURI            = "MONGO_URI"
	KeyMongoDB             = "MONGO_DB"
	KeyAppEnv              = "APP_ENV"
	KeyLogLevel            = "LOG_LEVEL"
	KeyHTTPPort            = "HTTP_PORT"
	KeyRunMode             = "RUN_MODE"
	KeyWebhookURL          = "WEBHOOK_URL"
	KeyWebhookSecret       = "WEBHOOK_SECRET"
	KeyRedisURL            = "REDIS_URL"
	KeyRedisPassword       = "REDIS_PASSWORD"
	KeyRedisDB             = "REDIS_DB"
	KeySessionTTL          = "SESSION_TTL"
	KeyDefaultLocale       = "DEFAULT_LOCALE"
	KeyDefaultConfessionID = "DEFAULT_CONFESSION_ID"
	KeyFixWrappedIDs       = "FIX_WRAPPED_IDS"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Allowed update delivery modes.
	RunModePolling = "polling"
	RunModeWebhook = "webhook"

	// Defaults for optional settings.
	DefaultAppEnv        = EnvProduction
	DefaultLogLevel      = "info"
	DefaultHTTPPort      = 8080
	DefaultRunMode       = RunModePolling
	DefaultDefaultLocale = "en"

	// Recommended database names by environment.
	DefaultMongoDBProd = "donation_bot"
	DefaultMongoDBDev  = "donation_bot_dev"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Required:    true,
		Description: "MongoDB connection string.",
		Notes:       "Must use the mongodb:// or mongodb+srv:// scheme.",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Required:    true,
		Description: "MongoDB database name.",
		Notes:       "Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP port for the webhook, health and metrics endpoints.",
	},
	{
		Key:         KeyRunMode,
		Example:     RunModePolling + " / " + RunModeWebhook,
		Default:     DefaultRunMode,
		Description: "How updates are received from Telegram.",
	},
	{
		Key:         KeyWebhookURL,
		Example:     "https://bot.example.org/telegram/webhook",
		Description: "Public URL registered with Telegram in webhook mode.",
		Notes:       "Required when RUN_MODE=" + RunModeWebhook + ".",
	},
	{
		Key:         KeyWebhookSecret,
		Example:     "s3cr3t",
		Description: "Secret token Telegram echoes in X-Telegram-Bot-Api-Secret-Token.",
	},
	{
		Key:         KeyRedisURL,
		Example:     "localhost:6379",
		Description: "Redis address for conversation sessions.",
		Notes:       "Sessions are kept in process memory when unset.",
	},
	{
		Key:         KeyRedisPassword,
		Description: "Redis password.",
	},
	{
		Key:         KeyRedisDB,
		Example:     "0",
		Default:     "0",
		Description: "Redis logical database.",
	},
	{
		Key:         KeySessionTTL,
		Example:     "30m",
		Default:     "0",
		Description: "Expiry of an unfinished conversation; 0 keeps it until replaced.",
	},
	{
		Key:         KeyDefaultLocale,
		Example:     DefaultDefaultLocale,
		Default:     DefaultDefaultLocale,
		Description: "Locale used when a user's language has no translation.",
	},
	{
		Key:         KeyDefaultConfessionID,
		Example:     "1",
		Default:     "0",
		Description: "Confession whose donation options are listed; 0 lists all.",
	},
	{
		Key:         KeyFixWrappedIDs,
		Example:     "false",
		Default:     "false",
		Description: "Restore negative 32-bit wrapped ids in inbound updates.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken       string
	MongoURI            string
	MongoDB             string
	AppEnv              string
	LogLevel            string
	HTTPPort            int
	RunMode             string
	WebhookURL          string
	WebhookSecret       string
	RedisURL            string
	RedisPassword       string
	RedisDB             int
	SessionTTL          time.Duration
	DefaultLocale       string
	DefaultConfessionID int64
	FixWrappedIDs       bool
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:        firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken: strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		MongoURI:      strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:       strings.TrimSpace(os.Getenv(KeyMongoDB)),
		LogLevel:      firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:      DefaultHTTPPort,
		RunMode:       firstNonEmpty(normalizeEnv(os.Getenv(KeyRunMode)), DefaultRunMode),
		WebhookURL:    strings.TrimSpace(os.Getenv(KeyWebhookURL)),
		WebhookSecret: strings.TrimSpace(os.Getenv(KeyWebhookSecret)),
		RedisURL:      strings.TrimSpace(os.Getenv(KeyRedisURL)),
		RedisPassword: os.Getenv(KeyRedisPassword),
		DefaultLocale: firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv(KeyDefaultLocale))), DefaultDefaultLocale),
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}
	if err := validateRunMode(cfg.RunMode); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}
	if cfg.MongoURI == "" {
		missing = append(missing, KeyMongoURI)
	}
	if cfg.MongoDB == "" {
		missing = append(missing, KeyMongoDB)
	}
	if cfg.RunMode == RunModeWebhook && cfg.WebhookURL == "" {
		missing = append(missing, KeyWebhookURL)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if err := validateMongoURI(cfg.MongoURI); err != nil {
		return Config{}, err
	}

	if raw := strings.TrimSpace(os.Getenv(KeyHTTPPort)); raw != "" {
		port, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	if raw := strings.TrimSpace(os.Getenv(KeyRedisDB)); raw != "" {
		db, parseErr := strconv.Atoi(raw)
		if parseErr != nil || db < 0 {
			return Config{}, fmt.Errorf("invalid %s: must be a non-negative integer", KeyRedisDB)
		}
		cfg.RedisDB = db
	}

	if raw := strings.TrimSpace(os.Getenv(KeySessionTTL)); raw != "" && raw != "0" {
		ttl, parseErr := time.ParseDuration(raw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeySessionTTL, parseErr)
		}
		if ttl < 0 {
			return Config{}, fmt.Errorf("%s must not be negative", KeySessionTTL)
		}
		cfg.SessionTTL = ttl
	}

	if raw := strings.TrimSpace(os.Getenv(KeyDefaultConfessionID)); raw != "" {
		id, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyDefaultConfessionID, parseErr)
		}
		if id < 0 {
			return Config{}, fmt.Errorf("%s must not be negative", KeyDefaultConfessionID)
		}
		cfg.DefaultConfessionID = id
	}

	if raw := strings.TrimSpace(os.Getenv(KeyFixWrappedIDs)); raw != "" {
		enabled, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyFixWrappedIDs, parseErr)
		}
		cfg.FixWrappedIDs = enabled
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// IsWebhook reports if updates are delivered through the webhook endpoint.
func (c Config) IsWebhook() bool {
	return c.RunMode == RunModeWebhook
}

// FormatRedacted renders the configuration for diagnostics with secrets masked.
func FormatRedacted(cfg Config) string {
	lines := []string{
		"telegram_token: " + redactSecret(cfg.TelegramToken),
		"mongo_uri: " + redactURI(cfg.MongoURI),
		"mongo_db: " + cfg.MongoDB,
		"app_env: " + cfg.AppEnv,
		"log_level: " + cfg.LogLevel,
		"http_port: " + strconv.Itoa(cfg.HTTPPort),
		"run_mode: " + cfg.RunMode,
		"webhook_url: " + cfg.WebhookURL,
		"webhook_secret: " + redactSecret(cfg.WebhookSecret),
		"redis_url: " + cfg.RedisURL,
		"redis_password: " + redactSecret(cfg.RedisPassword),
		"redis_db: " + strconv.Itoa(cfg.RedisDB),
		"session_ttl: " + cfg.SessionTTL.String(),
		"default_locale: " + cfg.DefaultLocale,
		"default_confession_id: " + strconv.FormatInt(cfg.DefaultConfessionID, 10),
		"fix_wrapped_ids: " + strconv.FormatBool(cfg.FixWrappedIDs),
	}

	return strings.Join(lines, "\n")
}

func redactSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "...redacted"
	}
	return value[:4] + "...redacted"
}

func redactURI(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return raw
	}
	parsed.User = nil
	return parsed.String()
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func validateRunMode(mode string) error {
	if mode == RunModePolling || mode == RunModeWebhook {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyRunMode, RunModePolling, RunModeWebhook)
}

func validateMongoURI(raw string) error {
	if strings.HasPrefix(raw, "mongodb://") || strings.HasPrefix(raw, "mongodb+srv://") {
		return nil
	}

	return fmt.Errorf("invalid %s: must start with mongodb:// or mongodb+srv://", KeyMongoURI)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
