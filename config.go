package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all server configuration.
// Priority (lowest → highest): defaults < .env file < env vars < JSON config file < CLI flags.
type AppConfig struct {
	// Server
	DB   string `json:"db"`   // database connection string
	Dev  bool   `json:"dev"`  // dev mode: verbose logging, db dumps on errors
	Addr string `json:"addr"` // HTTP listen address

	// Game
	PhaseSeconds int `json:"phase_seconds"` // length of each night and day
	PollMillis   int `json:"poll_millis"`   // phase loop wake interval
	MinPlayers   int `json:"min_players"`   // players required to start

	// Logging (extended diagnostics, off by default)
	LogOutputDir string `json:"log_output_dir"`
	LogRequests  bool   `json:"log_requests"`
	LogDB        bool   `json:"log_db"`
	LogWS        bool   `json:"log_ws"`
	LogDebug     bool   `json:"log_debug"`

	// AI Storyteller
	StorytellerProvider    string `json:"storyteller_provider"`    // ollama | openai | claude | gemini | groq | openai-compatible
	StorytellerModel       string `json:"storyteller_model"`       // model name
	StorytellerOllamaURL   string `json:"storyteller_ollama_url"`  // Ollama server URL
	StorytellerURL         string `json:"storyteller_url"`         // base URL for openai-compatible
	StorytellerAPIKey      string `json:"storyteller_api_key"`     // API key for openai-compatible
	StorytellerTemperature string `json:"storyteller_temperature"` // float 0-1 as string
	GroqAPIKey             string `json:"groq_api_key"`            // API key for groq provider
}

func (cfg AppConfig) toLogConfig() LogConfig {
	return LogConfig{
		OutputDir:   cfg.LogOutputDir,
		LogRequests: cfg.LogRequests,
		LogDB:       cfg.LogDB,
		LogWS:       cfg.LogWS,
		Debug:       cfg.LogDebug,
	}
}

func (cfg AppConfig) roomSettings() RoomSettings {
	return RoomSettings{
		PhaseDuration: time.Duration(cfg.PhaseSeconds) * time.Second,
		PollInterval:  time.Duration(cfg.PollMillis) * time.Millisecond,
		MinPlayers:    cfg.MinPlayers,
	}
}

func defaultConfig() AppConfig {
	return AppConfig{
		DB:                   "file::memory:?cache=shared",
		Addr:                 ":8081",
		PhaseSeconds:         60,
		PollMillis:           1000,
		MinPlayers:           6,
		StorytellerOllamaURL: "http://localhost:11434",
	}
}

// loadConfig builds a config by layering: defaults → .env → env vars → JSON config file.
// CLI flag overrides are applied separately by flagValues.applyTo after flag.Parse.
func loadConfig(configPath, envPath string) AppConfig {
	cfg := defaultConfig()

	// Layer 1: .env file; never overrides variables already set in the environment
	if err := godotenv.Load(envPath); err == nil {
		log.Printf("Config: loaded environment from %s", envPath)
	} else if !os.IsNotExist(err) {
		log.Printf("Config: failed to read %s: %v", envPath, err)
	}

	// Layer 2: env vars
	envStr := os.Getenv
	envBool := func(key string) (val bool, set bool) {
		v := os.Getenv(key)
		if v == "" {
			return false, false
		}
		return v == "1" || v == "true" || v == "yes", true
	}
	envInt := func(key string, dst *int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Config: ignoring %s=%q: %v", key, v, err)
			return
		}
		*dst = n
	}

	if v := envStr("DB"); v != "" {
		cfg.DB = v
	}
	if v, ok := envBool("DEV"); ok {
		cfg.Dev = v
	}
	if v := envStr("ADDR"); v != "" {
		cfg.Addr = v
	}
	envInt("PHASE_SECONDS", &cfg.PhaseSeconds)
	envInt("POLL_MILLIS", &cfg.PollMillis)
	envInt("MIN_PLAYERS", &cfg.MinPlayers)
	if v := envStr("LOG_OUTPUT_DIR"); v != "" {
		cfg.LogOutputDir = v
	}
	if v, ok := envBool("LOG_REQUESTS"); ok {
		cfg.LogRequests = v
	}
	if v, ok := envBool("LOG_DB"); ok {
		cfg.LogDB = v
	}
	if v, ok := envBool("LOG_WS"); ok {
		cfg.LogWS = v
	}
	if v, ok := envBool("LOG_DEBUG"); ok {
		cfg.LogDebug = v
	}
	if v := envStr("STORYTELLER_PROVIDER"); v != "" {
		cfg.StorytellerProvider = v
	}
	if v := envStr("STORYTELLER_MODEL"); v != "" {
		cfg.StorytellerModel = v
	}
	if v := envStr("STORYTELLER_OLLAMA_URL"); v != "" {
		cfg.StorytellerOllamaURL = v
	}
	if v := envStr("STORYTELLER_URL"); v != "" {
		cfg.StorytellerURL = v
	}
	if v := envStr("STORYTELLER_API_KEY"); v != "" {
		cfg.StorytellerAPIKey = v
	}
	if v := envStr("STORYTELLER_TEMPERATURE"); v != "" {
		cfg.StorytellerTemperature = v
	}
	if v := envStr("GROQ_API_KEY"); v != "" {
		cfg.GroqAPIKey = v
	}

	// Layer 3: JSON config file, only fields present in the file override env vars
	if data, err := os.ReadFile(configPath); err == nil {
		var overlay map[string]json.RawMessage
		if err := json.Unmarshal(data, &overlay); err != nil {
			log.Printf("Config: failed to parse %s: %v", configPath, err)
		} else {
			applyJSONOverlay(&cfg, overlay)
			log.Printf("Config: loaded from %s", configPath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Config: failed to read %s: %v", configPath, err)
	}

	return cfg
}

// applyJSONOverlay only sets fields that are explicitly present in the JSON map.
func applyJSONOverlay(cfg *AppConfig, m map[string]json.RawMessage) {
	set := func(key string, dst any) {
		if v, ok := m[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				log.Printf("Config: ignoring %s: %v", key, err)
			}
		}
	}
	set("db", &cfg.DB)
	set("dev", &cfg.Dev)
	set("addr", &cfg.Addr)
	set("phase_seconds", &cfg.PhaseSeconds)
	set("poll_millis", &cfg.PollMillis)
	set("min_players", &cfg.MinPlayers)
	set("log_output_dir", &cfg.LogOutputDir)
	set("log_requests", &cfg.LogRequests)
	set("log_db", &cfg.LogDB)
	set("log_ws", &cfg.LogWS)
	set("log_debug", &cfg.LogDebug)
	set("storyteller_provider", &cfg.StorytellerProvider)
	set("storyteller_model", &cfg.StorytellerModel)
	set("storyteller_ollama_url", &cfg.StorytellerOllamaURL)
	set("storyteller_url", &cfg.StorytellerURL)
	set("storyteller_api_key", &cfg.StorytellerAPIKey)
	set("storyteller_temperature", &cfg.StorytellerTemperature)
	set("groq_api_key", &cfg.GroqAPIKey)
}

// flagValues holds pointers to all registered CLI flags.
type flagValues struct {
	configPath             *string
	envPath                *string
	db                     *string
	dev                    *bool
	addr                   *string
	phaseSeconds           *int
	pollMillis             *int
	minPlayers             *int
	logOutputDir           *string
	logRequests            *bool
	logDB                  *bool
	logWS                  *bool
	logDebug               *bool
	storytellerProvider    *string
	storytellerModel       *string
	storytellerOllamaURL   *string
	storytellerURL         *string
	storytellerAPIKey      *string
	storytellerTemperature *string
	groqAPIKey             *string
}

// registerFlags registers all CLI flags on fs and returns pointers to their values.
// Parse fs after this, then applyTo to layer them over the loaded config.
func registerFlags(fs *flag.FlagSet) flagValues {
	return flagValues{
		configPath:             fs.String("config", "config.json", "path to JSON config file"),
		envPath:                fs.String("env-file", ".env", "path to .env file"),
		db:                     fs.String("db", "", "database connection string"),
		dev:                    fs.Bool("dev", false, "enable development mode (verbose logging, db dumps on error)"),
		addr:                   fs.String("addr", "", "HTTP listen address (e.g. :8081)"),
		phaseSeconds:           fs.Int("phase-seconds", 0, "length of each night and day in seconds"),
		pollMillis:             fs.Int("poll-millis", 0, "phase loop wake interval in milliseconds"),
		minPlayers:             fs.Int("min-players", 0, "players required to start a game"),
		logOutputDir:           fs.String("log-output-dir", "", "directory for extended log files"),
		logRequests:            fs.Bool("log-requests", false, "log HTTP requests and responses"),
		logDB:                  fs.Bool("log-db", false, "log database dumps"),
		logWS:                  fs.Bool("log-ws", false, "log WebSocket messages"),
		logDebug:               fs.Bool("log-debug", false, "enable debug logging"),
		storytellerProvider:    fs.String("storyteller-provider", "", "AI storyteller provider (ollama|openai|claude|gemini|groq|openai-compatible)"),
		storytellerModel:       fs.String("storyteller-model", "", "AI storyteller model name"),
		storytellerOllamaURL:   fs.String("storyteller-ollama-url", "", "Ollama server URL"),
		storytellerURL:         fs.String("storyteller-url", "", "base URL for openai-compatible provider"),
		storytellerAPIKey:      fs.String("storyteller-api-key", "", "API key for storyteller provider"),
		storytellerTemperature: fs.String("storyteller-temperature", "", "sampling temperature 0-1"),
		groqAPIKey:             fs.String("groq-api-key", "", "Groq API key"),
	}
}

// applyTo overlays any CLI flags that were explicitly set onto cfg.
// Flags that were not passed on the command line are ignored (env/JSON values win).
func (fv flagValues) applyTo(fs *flag.FlagSet, cfg *AppConfig) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DB = *fv.db
		case "dev":
			cfg.Dev = *fv.dev
		case "addr":
			cfg.Addr = *fv.addr
		case "phase-seconds":
			cfg.PhaseSeconds = *fv.phaseSeconds
		case "poll-millis":
			cfg.PollMillis = *fv.pollMillis
		case "min-players":
			cfg.MinPlayers = *fv.minPlayers
		case "log-output-dir":
			cfg.LogOutputDir = *fv.logOutputDir
		case "log-requests":
			cfg.LogRequests = *fv.logRequests
		case "log-db":
			cfg.LogDB = *fv.logDB
		case "log-ws":
			cfg.LogWS = *fv.logWS
		case "log-debug":
			cfg.LogDebug = *fv.logDebug
		case "storyteller-provider":
			cfg.StorytellerProvider = *fv.storytellerProvider
		case "storyteller-model":
			cfg.StorytellerModel = *fv.storytellerModel
		case "storyteller-ollama-url":
			cfg.StorytellerOllamaURL = *fv.storytellerOllamaURL
		case "storyteller-url":
			cfg.StorytellerURL = *fv.storytellerURL
		case "storyteller-api-key":
			cfg.StorytellerAPIKey = *fv.storytellerAPIKey
		case "storyteller-temperature":
			cfg.StorytellerTemperature = *fv.storytellerTemperature
		case "groq-api-key":
			cfg.GroqAPIKey = *fv.groqAPIKey
		}
	})
}
