package config

import (
	"log"

	"github.com/spf13/viper"
)

type DetectionConfig struct {
	// CriticalKeywords is scanned in order; the first case-insensitive
	// substring match wins.
	CriticalKeywords    []string `mapstructure:"critical_keywords"`
	NegativeEmotions    []string `mapstructure:"negative_emotions"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold"`
	WindowDays          int      `mapstructure:"window_days"`
	MinObservations     int      `mapstructure:"min_observations"`
}

type RedisConfig struct {
	Addr           string `mapstructure:"addr"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	HistoryTTLDays int    `mapstructure:"history_ttl_days"`
}

type Config struct {
	DatabaseURL string          `mapstructure:"database_url"`
	ServerPort  string          `mapstructure:"server_port"`
	JWTSecret   string          `mapstructure:"jwt_secret"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Detection   DetectionConfig `mapstructure:"detection"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}
	if config.Redis.Addr == "" {
		config.Redis.Addr = "localhost:6379"
	}
	if config.Redis.HistoryTTLDays == 0 {
		config.Redis.HistoryTTLDays = 30
	}
	config.Detection = withDetectionDefaults(config.Detection)

	return &config
}

// withDetectionDefaults fills in the built-in vocabulary wherever the config
// file leaves a field empty. Keeping the lists in configuration lets
// deployments extend them without a rebuild and lets tests swap in alternate
// vocabularies.
func withDetectionDefaults(d DetectionConfig) DetectionConfig {
	if len(d.CriticalKeywords) == 0 {
		d.CriticalKeywords = DefaultCriticalKeywords()
	}
	if len(d.NegativeEmotions) == 0 {
		d.NegativeEmotions = DefaultNegativeEmotions()
	}
	if d.ConfidenceThreshold == 0 {
		d.ConfidenceThreshold = 0.85
	}
	if d.WindowDays == 0 {
		d.WindowDays = 7
	}
	if d.MinObservations == 0 {
		d.MinObservations = 3
	}
	return d
}

// DefaultCriticalKeywords is the built-in self-harm phrase list. Order matters:
// detection reports the first match.
func DefaultCriticalKeywords() []string {
	return []string{
		"quiero morir",
		"me quiero matar",
		"suicid",
		"quitarme la vida",
		"no quiero vivir",
		"hacerme daño",
		"kill myself",
		"want to die",
		"end my life",
		"hurt myself",
		"self harm",
	}
}

func DefaultNegativeEmotions() []string {
	return []string{"sadness", "anger", "fear", "disgust"}
}
