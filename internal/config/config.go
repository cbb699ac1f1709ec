package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/servicemonitor/internal/domain"
	"github.com/hamed0406/servicemonitor/internal/httpapi/middleware"
	"github.com/hamed0406/servicemonitor/internal/notify"
	"github.com/hamed0406/servicemonitor/internal/probe"
)

// Paths searched, in order, when no config file is given explicitly.
var DefaultPaths = []string{"/etc/servicemonitor.yaml", "servicemonitor.yaml"}

type Config struct {
	Common        Common        `yaml:"common"`
	Notifications Notifications `yaml:"notifications"`
	Status        Status        `yaml:"status"`
	Journal       Journal       `yaml:"journal"`

	// Services keeps the order of the services mapping in the file.
	Services []probe.Spec `yaml:"-"`
}

type Common struct {
	Delay               int    `yaml:"delay"`            // seconds between cycles
	DelayAtStartup      int    `yaml:"delay_at_startup"` // seconds
	ErrorRepeatPeriod   int    `yaml:"error_repeat_period"`
	WarningRepeatPeriod int    `yaml:"warning_repeat_period"`
	Debug               bool   `yaml:"debug"`
	ClearOnRecovery     bool   `yaml:"clear_on_recovery"`
	ProbeTimeout        int    `yaml:"probe_timeout"` // seconds
	Concurrency         int    `yaml:"concurrency"`
	LogDir              string `yaml:"log_dir"`
}

type Notifications struct {
	Email *notify.EmailConfig `yaml:"email"`
	Slack *notify.SlackConfig `yaml:"slack"`
}

type Status struct {
	Addr           string   `yaml:"addr"` // empty disables the status API
	APIKeys        []string `yaml:"api_keys"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RatePerMin     int      `yaml:"rate_per_min"` // per client, 0 disables
	Burst          int      `yaml:"burst"`
	TrustedProxies []string `yaml:"trusted_proxies"` // IPs or CIDRs allowed to set X-Forwarded-For
}

type Journal struct {
	DatabaseURL string `yaml:"database_url"` // empty means in-memory
	Capacity    int    `yaml:"capacity"`
}

// Default mirrors the values the daemon has always shipped with.
func Default() Config {
	return Config{
		Common: Common{
			Delay:               600,
			DelayAtStartup:      30,
			ErrorRepeatPeriod:   6,
			WarningRepeatPeriod: 6 * 24,
			ProbeTimeout:        5,
			Concurrency:         4,
			LogDir:              "logs",
		},
		Status:  Status{RatePerMin: 120, Burst: 60},
		Journal: Journal{Capacity: 500},
	}
}

func (c Common) CycleDelay() time.Duration { return time.Duration(c.Delay) * time.Second }
func (c Common) StartupDelay() time.Duration { return time.Duration(c.DelayAtStartup) * time.Second }
func (c Common) Timeout() time.Duration { return time.Duration(c.ProbeTimeout) * time.Second }

// Resolve picks the config file: explicit path, then $MONITOR_CONFIG, then
// DefaultPaths.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := os.Getenv("MONITOR_CONFIG"); v != "" {
		return v, nil
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.New("no configuration file provided")
}

// Load reads, parses and validates the configuration file. Any problem is
// fatal for the caller: the daemon must not start with a partial probe set.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

type file struct {
	Config   `yaml:",inline"`
	Services yaml.Node `yaml:"services"`
}

type serviceEntry struct {
	Probe     string `yaml:"probe"`
	ProbeSpec struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		URL  string `yaml:"url"`
	} `yaml:"probe_spec"`
}

// Parse decodes YAML content on top of Default, applies environment
// overrides and validates the result.
func Parse(content []byte) (Config, error) {
	f := file{Config: Default()}
	if err := yaml.Unmarshal(content, &f); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg := f.Config
	cfg.applyEnv()

	services, err := decodeServices(&f.Services, cfg.Common.Timeout())
	if err != nil {
		return Config{}, err
	}
	cfg.Services = services

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeServices(n *yaml.Node, timeout time.Duration) ([]probe.Spec, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("services: line %d: expected a mapping of service name to probe", n.Line)
	}
	specs := make([]probe.Spec, 0, len(n.Content)/2)
	seen := make(map[string]int, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		// walking the node bypasses yaml.v3's own duplicate key check
		if line, dup := seen[name]; dup {
			return nil, fmt.Errorf("services.%s: line %d: duplicate service (first defined on line %d)",
				name, n.Content[i].Line, line)
		}
		seen[name] = n.Content[i].Line
		var e serviceEntry
		if err := n.Content[i+1].Decode(&e); err != nil {
			return nil, fmt.Errorf("services.%s: %w", name, err)
		}
		specs = append(specs, probe.Spec{
			Kind:    domain.ProbeKind(strings.ToLower(strings.TrimSpace(e.Probe))),
			Service: name,
			Host:    e.ProbeSpec.Host,
			Port:    e.ProbeSpec.Port,
			URL:     e.ProbeSpec.URL,
			Timeout: timeout,
		})
	}
	return specs, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LOG_DIR"); v != "" {
		c.Common.LogDir = v
	}
	if v := os.Getenv("STATUS_ADDR"); v != "" {
		c.Status.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Journal.DatabaseURL = v
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	cm := c.Common
	if cm.Delay < 0 {
		err = multierr.Append(err, errors.New("common.delay must be >= 0"))
	}
	if cm.DelayAtStartup < 0 {
		err = multierr.Append(err, errors.New("common.delay_at_startup must be >= 0"))
	}
	if cm.ErrorRepeatPeriod < 0 {
		err = multierr.Append(err, errors.New("common.error_repeat_period must be >= 0"))
	}
	if cm.WarningRepeatPeriod < 0 {
		err = multierr.Append(err, errors.New("common.warning_repeat_period must be >= 0"))
	}
	if cm.ProbeTimeout <= 0 {
		err = multierr.Append(err, errors.New("common.probe_timeout must be > 0"))
	}
	if cm.Concurrency < 1 {
		err = multierr.Append(err, errors.New("common.concurrency must be >= 1"))
	}

	if len(c.Services) == 0 {
		err = multierr.Append(err, errors.New("services: at least one service is required"))
	}
	for _, s := range c.Services {
		if _, perr := probe.New(s); perr != nil {
			err = multierr.Append(err, fmt.Errorf("services.%s: %w", s.Service, perr))
		}
	}

	if _, perr := middleware.ParseTrustedProxies(c.Status.TrustedProxies); perr != nil {
		err = multierr.Append(err, fmt.Errorf("status.trusted_proxies: %w", perr))
	}

	n := c.Notifications
	switch {
	case n.Email != nil && n.Slack != nil:
		err = multierr.Append(err, errors.New("notifications: configure either email or slack, not both"))
	case n.Email != nil:
		err = multierr.Append(err, n.Email.Validate())
	case n.Slack != nil:
		if n.Slack.Webhook == "" {
			err = multierr.Append(err, errors.New("notifications.slack.webhook is required"))
		}
	case !cm.Debug:
		err = multierr.Append(err, errors.New("notifications: a notifier is required unless common.debug is set"))
	}
	return err
}
