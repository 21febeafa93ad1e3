package mockrobot

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pflex-robotics/tcs-go/pkg/log"
	"github.com/pflex-robotics/tcs-go/pkg/metrics"
)

// Defaults.
const (
	DefaultWaitForEOMDelay = 500 * time.Millisecond
	DefaultDriftInterval   = 100 * time.Millisecond
	DefaultDriftStep       = 0.01
)

// Config configures a mock robot.
type Config struct {
	// Address to listen on (default ":10100").
	Address string `yaml:"address"`

	// Initial is the robot state at startup.
	Initial State `yaml:"initial"`

	// WaitForEOMDelay is how long waitForEOM takes to answer.
	WaitForEOMDelay time.Duration `yaml:"wait_for_eom_delay"`

	// DriftInterval is the free mode position update period.
	DriftInterval time.Duration `yaml:"drift_interval"`

	// DriftStep is added to every position axis per update in free mode.
	DriftStep float64 `yaml:"drift_step"`

	// MaxLineSize is the maximum request line size (default: 4096).
	MaxLineSize int `yaml:"max_line_size"`

	// IdleTimeout drops clients that stay silent this long. Zero disables.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// MaxClients caps concurrent clients. Zero is unlimited.
	MaxClients int `yaml:"max_clients"`

	// Logger receives protocol capture events (optional).
	Logger log.Logger `yaml:"-"`

	// Slog receives operational messages (optional).
	Slog *slog.Logger `yaml:"-"`

	// Metrics records handled commands (optional).
	Metrics *metrics.ServerMetrics `yaml:"-"`
}

// DefaultConfig returns the default mock robot configuration.
func DefaultConfig() Config {
	return Config{
		Address:         ":10100",
		Initial:         DefaultState(),
		WaitForEOMDelay: DefaultWaitForEOMDelay,
		DriftInterval:   DefaultDriftInterval,
		DriftStep:       DefaultDriftStep,
	}
}

// ParseConfig parses YAML over DefaultConfig, so omitted keys keep their
// defaults.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	if err := config.Validate(); err != nil {
		return Config{}, &LoadError{Message: err.Error()}
	}
	return config, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	config, err := ParseConfig(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return Config{}, le
		}
		return Config{}, &LoadError{File: path, Message: err.Error()}
	}
	return config, nil
}

// Validate checks the configuration for values the simulation cannot use.
func (c Config) Validate() error {
	if c.WaitForEOMDelay < 0 {
		return fmt.Errorf("wait_for_eom_delay must not be negative")
	}
	if c.DriftInterval < 0 {
		return fmt.Errorf("drift_interval must not be negative")
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout must not be negative")
	}
	if c.MaxClients < 0 {
		return fmt.Errorf("max_clients must not be negative")
	}
	if c.Initial.SystemSpeed < 0 || c.Initial.SystemSpeed > 100 {
		return fmt.Errorf("initial.system_speed %d out of range 0..100", c.Initial.SystemSpeed)
	}
	return nil
}

// LoadError reports a configuration file that could not be used.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File == "" {
		return msg
	}
	return e.File + ": " + msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
