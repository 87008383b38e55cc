// Package xconf loads the logger configuration: IMU_* environment variables
// first, then an optional YAML file on top.
package xconf

import (
	"os"
	"time"

	"imulog/pkg/xrunctl"
	"imulog/pkg/xsensor"

	"github.com/caarlos0/env/v8"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSensorName = "imu0"
	DefaultSensorPort = 9751
)

type Config struct {
	File         string           `env:"IMU_CONFIG" yaml:"-"`
	PollInterval time.Duration    `env:"IMU_POLL_INTERVAL" envDefault:"10ms" yaml:"poll_interval"`
	StopGrace    time.Duration    `env:"IMU_STOP_GRACE" envDefault:"1s" yaml:"stop_grace"`
	LogLevel     string           `env:"IMU_LOG_LEVEL" envDefault:"info" yaml:"log_level"`
	LogJSON      bool             `env:"IMU_LOG_JSON" yaml:"log_json"`
	LogSamples   bool             `env:"IMU_LOG_SAMPLES" envDefault:"true" yaml:"log_samples"`
	RawDump      bool             `env:"IMU_RAW_DUMP" yaml:"raw_dump"`
	StreamAddr   string           `env:"IMU_STREAM_ADDR" yaml:"stream_addr"`
	StreamPath   string           `env:"IMU_STREAM_PATH" envDefault:"/samples" yaml:"stream_path"`
	Metrics      bool             `env:"IMU_METRICS" envDefault:"true" yaml:"metrics"`
	Sensors      []xsensor.Config `yaml:"sensors"`
}

// Load reads the environment, then path (or $IMU_CONFIG when path is
// empty). Values in the file win over the environment.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := EnvLoad(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	if path == "" {
		path = cfg.File
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
		cfg.File = path
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func EnvLoad(conf interface{}) error {
	return env.Parse(conf)
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = xrunctl.DefaultPollInterval
	}
	if c.StopGrace < 0 {
		c.StopGrace = 0
	}
	if c.StreamPath == "" {
		c.StreamPath = "/samples"
	}
	if len(c.Sensors) == 0 {
		c.Sensors = []xsensor.Config{{Name: DefaultSensorName, Port: DefaultSensorPort}}
	}
	for i := range c.Sensors {
		c.Sensors[i].ApplyDefaults()
	}
}

// Validate checks every sensor and rejects two sensors on one address.
// Port 0 asks the kernel for a free port and never collides.
func (c *Config) Validate() error {
	if len(c.Sensors) == 0 {
		return errors.New("no sensors configured")
	}
	addrs := make(map[string]string, len(c.Sensors))
	names := make(map[string]struct{}, len(c.Sensors))
	for i, s := range c.Sensors {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "sensor %d (%s)", i, s.ID())
		}
		if s.Name != "" {
			if _, ok := names[s.Name]; ok {
				return errors.Errorf("sensor name %q used twice", s.Name)
			}
			names[s.Name] = struct{}{}
		}
		if s.Port == 0 {
			continue
		}
		if other, ok := addrs[s.Addr()]; ok {
			return errors.Errorf("sensors %s and %s share %s", other, s.ID(), s.Addr())
		}
		addrs[s.Addr()] = s.ID()
	}
	return nil
}
