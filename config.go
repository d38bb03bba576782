package pitwall

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/apexsignal/pitwall/internal/analysis"
)

type Config struct {
	HTTPPort       uint16 `json:"http_port" yaml:"http_port"`
	MaxUploadBytes int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// SteeringChannel overrides the logger channel used for steering
	// analysis when the session was recorded with a non-standard name.
	SteeringChannel string `json:"steering_channel" yaml:"steering_channel"`

	// SummaryChannels are the telemetry channels reported by the channel
	// summary endpoint.
	SummaryChannels []string `json:"summary_channels" yaml:"summary_channels"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTPPort:        8772,
		MaxUploadBytes:  256 << 20,
		SteeringChannel: analysis.DefaultSteeringChannel,
		SummaryChannels: analysis.DefaultSummaryChannels,
	}
}

// ReadConfig loads a yaml config file over the top of the defaults.
func ReadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	f, err := os.Open(path)

	if err != nil {
		return nil, errors.Wrapf(err, "could not open config at %s", path)
	}

	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(config); err != nil {
		return nil, errors.Wrapf(err, "could not decode config at %s", path)
	}

	return config, nil
}
