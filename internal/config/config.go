// Package config loads the pipeline configuration from an optional .env
// file, environment variables, and an optional sago.yaml file, in that
// order of increasing precedence for the file and decreasing for env.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CalendarConfig configures the calendar provider client.
type CalendarConfig struct {
	CalendarID  string
	AccessToken string
	BaseURL     string
}

// TavilyConfig configures the research provider client.
type TavilyConfig struct {
	APIKey  string
	BaseURL string
}

// SESConfig holds AWS SES credentials for the mailer.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// MailerConfig selects and configures the delivery provider.
type MailerConfig struct {
	Provider    string // "ses" or "noop"
	FromAddress string
	FromName    string
	SES         SESConfig
}

// Config is the full pipeline configuration, owned by the composition root
// and passed to components by value.
type Config struct {
	MarkerEmail    string
	ClientDomain   string
	BrandTokens    []string
	ScanWindowDays int
	PollInterval   time.Duration
	Workers        int
	MeetingTimeout time.Duration
	OutputDir      string
	LogLevel       string

	Calendar CalendarConfig
	Tavily   TavilyConfig
	Mailer   MailerConfig
}

const (
	defaultMarkerEmail  = "hello@heysago.com"
	defaultClientDomain = "talipot.com"
)

// Load reads configuration from .env, the environment, and sago.yaml.
// A missing .env or yaml file is not an error.
func Load() (Config, error) {
	// Deployments keep API keys in a local .env file.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SAGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider keys keep their historical, unprefixed names.
	_ = v.BindEnv("tavily.api_key", "TAVILY_API_KEY")
	_ = v.BindEnv("calendar.access_token", "GOOGLE_CALENDAR_TOKEN")
	_ = v.BindEnv("mailer.ses.access_key_id", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("mailer.ses.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("mailer.ses.region", "AWS_REGION")

	v.SetConfigName("sago")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		MarkerEmail:    v.GetString("marker_email"),
		ClientDomain:   v.GetString("client_domain"),
		BrandTokens:    v.GetStringSlice("brand_tokens"),
		ScanWindowDays: v.GetInt("scan_window_days"),
		PollInterval:   v.GetDuration("poll_interval"),
		Workers:        v.GetInt("workers"),
		MeetingTimeout: v.GetDuration("meeting_timeout"),
		OutputDir:      v.GetString("output_dir"),
		LogLevel:       v.GetString("log_level"),
		Calendar: CalendarConfig{
			CalendarID:  v.GetString("calendar.id"),
			AccessToken: v.GetString("calendar.access_token"),
			BaseURL:     v.GetString("calendar.base_url"),
		},
		Tavily: TavilyConfig{
			APIKey:  v.GetString("tavily.api_key"),
			BaseURL: v.GetString("tavily.base_url"),
		},
		Mailer: MailerConfig{
			Provider:    v.GetString("mailer.provider"),
			FromAddress: v.GetString("mailer.from_address"),
			FromName:    v.GetString("mailer.from_name"),
			SES: SESConfig{
				Region:          v.GetString("mailer.ses.region"),
				AccessKeyID:     v.GetString("mailer.ses.access_key_id"),
				SecretAccessKey: v.GetString("mailer.ses.secret_access_key"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("marker_email", defaultMarkerEmail)
	v.SetDefault("client_domain", defaultClientDomain)
	v.SetDefault("brand_tokens", []string{"talipot", "sago"})
	v.SetDefault("scan_window_days", 7)
	v.SetDefault("poll_interval", 300*time.Second)
	v.SetDefault("workers", 1)
	v.SetDefault("meeting_timeout", 10*time.Minute)
	v.SetDefault("output_dir", "output")
	v.SetDefault("log_level", "info")
	v.SetDefault("calendar.id", "primary")
	v.SetDefault("calendar.base_url", "https://www.googleapis.com/calendar/v3")
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("mailer.provider", "noop")
	v.SetDefault("mailer.from_address", defaultMarkerEmail)
	v.SetDefault("mailer.from_name", "Sago Briefings")
}

// Validate checks invariants that would otherwise surface deep in the
// pipeline as confusing failures.
func (c Config) Validate() error {
	if c.MarkerEmail == "" || !strings.Contains(c.MarkerEmail, "@") {
		return fmt.Errorf("marker_email %q is not a valid address", c.MarkerEmail)
	}
	if c.ScanWindowDays <= 0 {
		return fmt.Errorf("scan_window_days must be positive, got %d", c.ScanWindowDays)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}
