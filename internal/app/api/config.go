package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.temporal.io/sdk/client"

	apimclient "github.com/Apurer/opinions-api/internal/clients/http/apim"
)

// Config carries environment-driven settings for the API and worker processes.
type Config struct {
	Port        string
	PostgresDSN string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	LookupCacheTTL time.Duration
	LookupSeedFile string

	APIMBaseURL         string
	APIMSubscriptionKey string
	SendDesignID        string
	CaseStatusBaseURL   string
	RemoteTimeout       time.Duration

	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool

	MetricsEnabled bool
}

// LoadConfig reads .env (when present) and the environment, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		Port:        strings.TrimSpace(v.GetString("PORT")),
		PostgresDSN: strings.TrimSpace(v.GetString("POSTGRES_DSN")),

		RedisAddr:      strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		LookupSeedFile: strings.TrimSpace(v.GetString("LOOKUP_SEED_FILE")),

		APIMBaseURL:         strings.TrimSpace(v.GetString("APIM_BASE_URL")),
		APIMSubscriptionKey: v.GetString("APIM_SUBSCRIPTION_KEY"),
		SendDesignID:        strings.TrimSpace(v.GetString("SEND_DESIGN_TEMPLATE_ID")),
		CaseStatusBaseURL:   strings.TrimSpace(v.GetString("CASE_STATUS_BASE_URL")),

		TemporalAddress:   strings.TrimSpace(v.GetString("TEMPORAL_ADDRESS")),
		TemporalNamespace: strings.TrimSpace(v.GetString("TEMPORAL_NAMESPACE")),
		TemporalDisabled:  v.GetBool("TEMPORAL_DISABLED"),

		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
	}

	var err error
	if cfg.LookupCacheTTL, err = positiveDuration(v, "LOOKUP_CACHE_TTL"); err != nil {
		return Config{}, err
	}
	if cfg.RemoteTimeout, err = positiveDuration(v, "REMOTE_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB < 0 {
		return Config{}, fmt.Errorf("REDIS_DB must not be negative")
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOOKUP_CACHE_TTL", "10m")
	v.SetDefault("SEND_DESIGN_TEMPLATE_ID", apimclient.DefaultDesignID)
	v.SetDefault("REMOTE_TIMEOUT", "10s")
	v.SetDefault("TEMPORAL_ADDRESS", client.DefaultHostPort)
	v.SetDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace)
	v.SetDefault("TEMPORAL_DISABLED", false)
	v.SetDefault("METRICS_ENABLED", true)
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}
