package helpers

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	NotifyModeFull = "full"
	NotifyModeDiff = "diff"

	DispatchModeDirect = "direct"
	DispatchModeOutbox = "outbox"

	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	MongoURI      string `yaml:"mongoUri"      envconfig:"BOT_MONGODB_URI"`
	MongoDatabase string `yaml:"mongoDatabase" envconfig:"BOT_MONGODB_NAME"`
	Storage       string `yaml:"storage"       envconfig:"ROSTER_STORAGE"`
	BotToken      string `yaml:"botToken"      envconfig:"BOT_TOKEN"`
	Port          string `yaml:"port"          envconfig:"PORT"`

	LogLevel  string `yaml:"logLevel"  envconfig:"ROSTER_LOG_LEVEL"`
	LogPretty bool   `yaml:"logPretty" envconfig:"ROSTER_LOG_PRETTY"`

	Lang     string `yaml:"lang"     envconfig:"ROSTER_LANG"`
	Timezone string `yaml:"timezone" envconfig:"ROSTER_TIMEZONE"`
	BaseURL  string `yaml:"baseUrl"  envconfig:"ROSTER_BASE_URL"`

	// ManagerRoles are the organizational roles allowed to publish and retire rosters.
	ManagerRoles        []string `yaml:"managerRoles"        envconfig:"ROSTER_MANAGER_ROLES"`
	ManagementRecipient string   `yaml:"managementRecipient" envconfig:"ROSTER_MANAGEMENT_RECIPIENT"`

	NotifyMode          string        `yaml:"notifyMode"          envconfig:"ROSTER_NOTIFY_MODE"`
	DispatchMode        string        `yaml:"dispatchMode"        envconfig:"ROSTER_DISPATCH_MODE"`
	FanOutLimit         int           `yaml:"fanOutLimit"         envconfig:"ROSTER_FAN_OUT_LIMIT"`
	MaxDeliveryAttempts int           `yaml:"maxDeliveryAttempts" envconfig:"ROSTER_MAX_DELIVERY_ATTEMPTS"`
	OutboxPollInterval  time.Duration `yaml:"outboxPollInterval"  envconfig:"ROSTER_OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize     int           `yaml:"outboxBatchSize"     envconfig:"ROSTER_OUTBOX_BATCH_SIZE"`

	UniqueServiceDate bool `yaml:"uniqueServiceDate" envconfig:"ROSTER_UNIQUE_SERVICE_DATE"`
	EnforceAssignment bool `yaml:"enforceAssignment" envconfig:"ROSTER_ENFORCE_ASSIGNMENT"`
	RejectUnresolved  bool `yaml:"rejectUnresolved"  envconfig:"ROSTER_REJECT_UNRESOLVED"`
}

func DefaultConfig() *Config {
	return &Config{
		MongoDatabase:       "scala-roster",
		Storage:             StorageMongo,
		Port:                "8080",
		LogLevel:            "info",
		Lang:                "en",
		Timezone:            "UTC",
		BaseURL:             "",
		ManagerRoles:        []string{"admin", "pastor", "coordinator"},
		ManagementRecipient: "role:management",
		NotifyMode:          NotifyModeFull,
		DispatchMode:        DispatchModeDirect,
		FanOutLimit:         8,
		MaxDeliveryAttempts: 5,
		OutboxPollInterval:  5 * time.Second,
		OutboxBatchSize:     20,
		EnforceAssignment:   true,
	}
}

// LoadConfig builds the config from defaults, then the optional YAML file,
// then the environment.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Storage {
	case StorageMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("BOT_MONGODB_URI is required for mongo storage"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}

	if c.NotifyMode != NotifyModeFull && c.NotifyMode != NotifyModeDiff {
		errs = append(errs, fmt.Errorf("unknown notify mode %q", c.NotifyMode))
	}
	if c.DispatchMode != DispatchModeDirect && c.DispatchMode != DispatchModeOutbox {
		errs = append(errs, fmt.Errorf("unknown dispatch mode %q", c.DispatchMode))
	}
	if c.FanOutLimit < 1 {
		errs = append(errs, errors.New("fan-out limit must be positive"))
	}
	if c.MaxDeliveryAttempts < 1 {
		errs = append(errs, errors.New("max delivery attempts must be positive"))
	}
	if c.ManagementRecipient == "" {
		errs = append(errs, errors.New("management recipient is required"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	}

	return errors.Join(errs...)
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RosterLink is the volunteer-facing detail view of a roster.
func (c *Config) RosterLink(rosterID string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/rosters/" + rosterID
}

// ManagementLink is the roster management view.
func (c *Config) ManagementLink(rosterID string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/admin/rosters/" + rosterID
}
