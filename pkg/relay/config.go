package relay

import (
	"fmt"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/sunnyrelay/sunnyrelay/pkg/storage"
	"gopkg.in/yaml.v3"
)

const (
	// MinInterval is the shortest poll interval the portal is asked to serve.
	MinInterval = 15 * time.Second
	// RetryDelay is how long to wait before logging in again after any failure.
	RetryDelay = 5 * time.Second

	DefaultNamespace = "sunnyportal.0"
)

// PollInterval converts the configured interval in seconds into the ticker
// period, clamping it to MinInterval.
func PollInterval(seconds int) time.Duration {
	d := time.Duration(seconds) * time.Second
	if d < MinInterval {
		return MinInterval
	}
	return d
}

// AdapterConfig is the adapter's native configuration.
type AdapterConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	PlantOID string `yaml:"plantoid"`
	// Interval is in seconds.
	Interval int `yaml:"interval"`
}

// LoadAdapterConfig reads an AdapterConfig from a YAML file.
func LoadAdapterConfig(path string) (AdapterConfig, error) {
	var cfg AdapterConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read adapter config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse adapter config (%s): %w", path, err)
	}
	return cfg, nil
}

// merge returns c with every zero field filled in from o.
func (c AdapterConfig) merge(o AdapterConfig) AdapterConfig {
	if c.Username == "" {
		c.Username = o.Username
	}
	if c.Password == "" {
		c.Password = o.Password
	}
	if c.PlantOID == "" {
		c.PlantOID = o.PlantOID
	}
	if c.Interval == 0 {
		c.Interval = o.Interval
	}
	return c
}

// Configured sets up the relay.
// It uses lflag to register command-line flags for configuration.
func Configured(portal Portal, db storage.Database) *Relay {
	username := lflag.String("sunnyportal-username", "", "Sunny Portal username")
	password := lflag.String("sunnyportal-password", "", "Sunny Portal password")
	plantOID := lflag.String("sunnyportal-plantoid", "", "Sunny Portal plant OID")
	interval := lflag.Int("sunnyportal-interval", 0, "Poll interval in seconds (anything below 15 is raised to 15)")
	adapterConfig := lflag.String("adapter-config", "", "Optional YAML file with username, password, plantoid and interval; flags take precedence")
	namespace := lflag.String("state-namespace", DefaultNamespace, "Prefix for published state IDs")

	r := New(portal, db, AdapterConfig{}, DefaultNamespace)

	lflag.Do(func() {
		cfg := AdapterConfig{
			Username: *username,
			Password: *password,
			PlantOID: *plantOID,
			Interval: *interval,
		}
		if *adapterConfig != "" {
			fileCfg, err := LoadAdapterConfig(*adapterConfig)
			if err != nil {
				panic(err)
			}
			cfg = cfg.merge(fileCfg)
		}
		r.configure(cfg, *namespace)
	})

	return r
}
