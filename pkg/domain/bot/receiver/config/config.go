package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aeterna-studio/booking-bot/pkg/repository/model"
	"github.com/aeterna-studio/booking-bot/pkg/utils/errs"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type WorkHours struct {
	Start string `yaml:"start" validate:"required"`
	End   string `yaml:"end" validate:"required"`
}

type Config struct {
	PostgreAddr        string          `yaml:"postgre_addr" validate:"required"`
	HTTPPort           int             `yaml:"http_port" validate:"required"`
	WorkerCount        int             `yaml:"worker_count" validate:"required,gt=0"`
	Mode               string          `yaml:"mode" validate:"required,oneof=polling webhook"`
	WebhookBaseURL     string          `yaml:"webhook_base_url" validate:"required_if=Mode webhook"`
	WorkHours          WorkHours       `yaml:"work_hours" validate:"required"`
	GranularityMinutes int             `yaml:"granularity_minutes" validate:"required,gt=0"`
	Services           []model.Service `yaml:"services" validate:"required,min=1,dive"`

	// Из .env
	BotToken      string
	AdminIDs      []int64
	WebhookSecret string
}

func LoadConfig() (*Config, error) {
	path := filepath.Join("cmd/bot/etc", "app.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New("failed to read config file").Wrap(err)
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.New("failed to unmarshal YAML").Wrap(err)
	}

	// Validate
	if err = validator.New().Struct(cfg); err != nil {
		return nil, errs.New("config validation failed").Wrap(err)
	}

	if err = godotenv.Load(); err != nil {
		return nil, errs.New("failed to load .env").Wrap(err)
	}

	cfg.BotToken = os.Getenv("BOT_TOKEN")
	if cfg.BotToken == "" {
		return nil, errs.New("empty BOT_TOKEN")
	}

	cfg.AdminIDs, err = ParseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, err
	}

	cfg.WebhookSecret = os.Getenv("WEBHOOK_SECRET")

	return &cfg, nil
}

// ParseAdminIDs parses the comma-separated ADMIN_IDS value.
func ParseAdminIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errs.New("empty ADMIN_IDS")
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, errs.New("ADMIN_IDS must be comma-separated numbers").Arg("value", p).Wrap(err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsAdmin reports whether userID is one of the configured administrators.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ServiceByID looks a service up in the configured catalog.
func (c *Config) ServiceByID(id string) (model.Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return model.Service{}, false
}
