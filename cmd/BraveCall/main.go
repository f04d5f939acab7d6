package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/BraveCall/internal/api"
	"github.com/BTreeMap/BraveCall/internal/genai"
	"github.com/BTreeMap/BraveCall/internal/lockfile"
	"github.com/BTreeMap/BraveCall/internal/pipeline"
	"github.com/BTreeMap/BraveCall/internal/sms"
	"github.com/BTreeMap/BraveCall/internal/store"
	"github.com/BTreeMap/BraveCall/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for BraveCall state data
	DefaultStateDir = "/var/lib/bravecall"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "bravecall.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)

	// A file-backed store is owned by exactly one server process
	lock, err := lockStateDir(flags)
	if err != nil {
		var lockErr *lockfile.LockError
		if errors.As(err, &lockErr) {
			slog.Error("BraveCall is already running", "error", err)
		} else {
			slog.Error("Failed to prepare state directory", "error", err)
		}
		os.Exit(1)
	}
	defer lock.Release()

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	smsOpts := buildSMSOptions(flags)
	apiOpts := buildAPIOptions(flags, config)

	slog.Info("Bootstrapping BraveCall with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "sms", len(smsOpts), "api", len(apiOpts))
	if err := api.Run(storeOpts, genaiOpts, smsOpts, apiOpts); err != nil {
		slog.Error("BraveCall failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("BraveCall exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir      string
	DatabaseURL   string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	APIAddr       string
	AgentConfig   string
	TwilioSID     string
	TwilioToken   string
	TwilioFrom    string
	Pipeline      pipeline.Config
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	openaiKey     *string
	openaiBaseURL *string
	openaiModel   *string
	apiAddr       *string
	agentConfig   *string
	twilioSID     *string
	twilioToken   *string
	twilioFrom    *string
}

// initializeLogger sets up structured logging. LOG_LEVEL accepts debug, info,
// warn or error and defaults to debug.
func initializeLogger() {
	level := slog.LevelDebug
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			level = slog.LevelDebug
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	defaults := pipeline.DefaultConfig()
	config := Config{
		StateDir:      util.EnvOrDefault("BRAVECALL_STATE_DIR", DefaultStateDir),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		APIAddr:       os.Getenv("API_ADDR"),
		AgentConfig:   os.Getenv("AGENT_CONFIG"),
		TwilioSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:    os.Getenv("TWILIO_FROM_NUMBER"),
		Pipeline: pipeline.Config{
			SafetyEnabled:        util.ParseBoolEnv("ENABLE_SAFETY_AGENT", defaults.SafetyEnabled),
			RoutingEnabled:       util.ParseBoolEnv("ENABLE_ROUTING", defaults.RoutingEnabled),
			ValidationEnabled:    util.ParseBoolEnv("ENABLE_RESPONSE_VALIDATION", defaults.ValidationEnabled),
			SMSEscalationEnabled: util.ParseBoolEnv("ENABLE_SMS_ESCALATION", defaults.SMSEscalationEnabled),
			LogDecisions:         util.ParseBoolEnv("LOG_AGENT_DECISIONS", defaults.LogDecisions),
		},
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"BRAVECALL_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_BASE_URL", config.OpenAIBaseURL,
		"API_ADDR", config.APIAddr,
		"AGENT_CONFIG", config.AgentConfig,
		"TWILIO_CONFIGURED", config.TwilioSID != "" && config.TwilioToken != "",
		"ENABLE_SMS_ESCALATION", config.Pipeline.SMSEscalationEnabled)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) Flags {
	flags := Flags{
		stateDir:      fs.String("state-dir", config.StateDir, "state directory for BraveCall data (overrides $BRAVECALL_STATE_DIR)"),
		dbDSN:         fs.String("db-dsn", config.DatabaseURL, "database DSN, a SQLite path or PostgreSQL URL (overrides $DATABASE_URL)"),
		openaiKey:     fs.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiBaseURL: fs.String("openai-base-url", config.OpenAIBaseURL, "OpenAI-compatible API base URL (overrides $OPENAI_BASE_URL)"),
		openaiModel:   fs.String("openai-model", config.OpenAIModel, "default model for every agent (overrides $OPENAI_MODEL)"),
		apiAddr:       fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		agentConfig:   fs.String("agent-config", config.AgentConfig, "YAML file with per-agent LLM settings (overrides $AGENT_CONFIG)"),
		twilioSID:     fs.String("twilio-account-sid", config.TwilioSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken:   fs.String("twilio-auth-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom:    fs.String("twilio-from", config.TwilioFrom, "Twilio sender number in E.164 form (overrides $TWILIO_FROM_NUMBER)"),
	}

	if err := fs.Parse(args); err != nil {
		slog.Warn("failed to parse flags", "error", err)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"agentConfig", *flags.agentConfig)

	// Follow a changed state directory when the DSN is still the default path
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// lockStateDir takes the state directory lock for SQLite DSNs. PostgreSQL
// deployments may run several replicas and get a nil lock.
func lockStateDir(flags Flags) (*lockfile.Lock, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return nil, nil
	}
	return lockfile.Acquire(filepath.Dir(*flags.dbDSN))
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return storeOpts
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiBaseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.openaiBaseURL))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithDefaultModel(*flags.openaiModel))
	}
	return genaiOpts
}

// buildSMSOptions constructs Twilio SMS configuration options
func buildSMSOptions(flags Flags) []sms.Option {
	var smsOpts []sms.Option
	if *flags.twilioSID != "" {
		smsOpts = append(smsOpts, sms.WithAccountSID(*flags.twilioSID))
	}
	if *flags.twilioToken != "" {
		smsOpts = append(smsOpts, sms.WithAuthToken(*flags.twilioToken))
	}
	if *flags.twilioFrom != "" {
		smsOpts = append(smsOpts, sms.WithFromNumber(*flags.twilioFrom))
	}
	return smsOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, config Config) []api.Option {
	apiOpts := []api.Option{api.WithPipelineConfig(config.Pipeline)}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.agentConfig != "" {
		apiOpts = append(apiOpts, api.WithAgentConfig(*flags.agentConfig))
	}
	return apiOpts
}
