package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "DONATE"

// DefaultPlans are the monthly tiers shown on the donation form. Plan ids are
// per Razorpay account, so deployments override them under donation.plans.
var DefaultPlans = map[int64]string{
	100:  "plan_QkT5vVZ2bJkq8d",
	200:  "plan_QkT6B1sYh0pN3m",
	500:  "plan_QkT6PqXw9uR2Ld",
	1000: "plan_QkT6c3eJ7tZs5a",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.legacy_prefix", "/.netlify/functions")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.timeout", 10*time.Second)
	v.SetDefault("razorpay.timeout", 10*time.Second)
	v.SetDefault("donation.currency", "INR")
	v.SetDefault("donation.min_sip_amount", 50)
	v.SetDefault("donation.pending_ttl", 48*time.Hour)
	v.SetDefault("donation.hashid_salt", "aira-donate")
	v.SetDefault("redis.plan_ttl", 24*time.Hour)
}

// Default returns the configuration used when no file or environment is present.
func Default() (*Config, error) {
	return Load("")
}

// Load reads an optional YAML file and applies DONATE_* environment overrides,
// e.g. DONATE_RAZORPAY_KEY_ID or DONATE_DATABASE_DSN.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about
	for _, key := range []string{
		"server.admin_token",
		"razorpay.key_id", "razorpay.key_secret", "razorpay.webhook_secret",
		"database.dsn", "redis.addr", "redis.password", "redis.db",
		"events.webhook_url", "events.webhook_secret",
		"events.sqs.queue_url", "events.sqs.region", "events.sqs.access_key", "events.sqs.secret",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if len(cfg.Donation.Plans) == 0 {
		cfg.Donation.Plans = make(map[int64]string, len(DefaultPlans))
		for amount, id := range DefaultPlans {
			cfg.Donation.Plans[amount] = id
		}
	}
	return cfg, nil
}
