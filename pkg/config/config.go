package config

import (
	"time"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
		// mounted in addition to /api so the old functions URLs keep working
		LegacyPrefix string `mapstructure:"legacy_prefix"`
		// bearer token for the donation listing and export routes
		AdminToken string `mapstructure:"admin_token"`
	} `mapstructure:"server"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Database struct {
		Driver  string        `mapstructure:"driver"`
		DSN     string        `mapstructure:"dsn"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"database"`

	// 支付服务配置
	Razorpay struct {
		KeyID         string        `mapstructure:"key_id"`
		KeySecret     string        `mapstructure:"key_secret"`
		WebhookSecret string        `mapstructure:"webhook_secret"`
		Timeout       time.Duration `mapstructure:"timeout"`
	} `mapstructure:"razorpay"`

	Donation struct {
		Currency     string        `mapstructure:"currency"`
		MinSIPAmount int64         `mapstructure:"min_sip_amount"`
		PendingTTL   time.Duration `mapstructure:"pending_ttl"`
		HashIDSalt   string        `mapstructure:"hashid_salt"`
		// monthly amount (rupees) -> gateway plan id
		Plans map[int64]string `mapstructure:"plans"`
	} `mapstructure:"donation"`

	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		PlanTTL  time.Duration `mapstructure:"plan_ttl"`
	} `mapstructure:"redis"`

	Events struct {
		WebhookURL    string `mapstructure:"webhook_url"`
		WebhookSecret string `mapstructure:"webhook_secret"`
		SQS           struct {
			QueueURL  string `mapstructure:"queue_url"`
			Region    string `mapstructure:"region"`
			AccessKey string `mapstructure:"access_key"`
			Secret    string `mapstructure:"secret"`
		} `mapstructure:"sqs"`
	} `mapstructure:"events"`
}

// Validate reports configuration that makes the server unusable.
func (c *Config) Validate() error {
	var missing []string
	if c.Razorpay.KeyID == "" {
		missing = append(missing, "razorpay.key_id")
	}
	if c.Razorpay.KeySecret == "" {
		missing = append(missing, "razorpay.key_secret")
	}
	if c.Database.DSN == "" {
		missing = append(missing, "database.dsn")
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	msg := "missing configuration:"
	for _, k := range e.Keys {
		msg += " " + k
	}
	return msg
}
