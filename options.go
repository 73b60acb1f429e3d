package bincast

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/bincast/wire"
)

// Options holds per-call settings for the top-level entry points.
type Options struct {
	// Order is the byte order a call starts with. Fields and definitions
	// that declare their own order override it.
	Order wire.Endian
}

type Option func(*Options)

// WithOrder sets the starting byte order. The default is little-endian.
func WithOrder(e wire.Endian) Option {
	return func(o *Options) {
		o.Order = e
	}
}

func newOptions(opts []Option) Options {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Config is the file form of Options plus logging.
type Config struct {
	Order    string `yaml:"order"`
	LogLevel string `yaml:"log_level"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(b)
}

// ParseConfig decodes a YAML config document.
func ParseConfig(b []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	return c, nil
}

// Options converts the config to call options. Order accepts "little",
// "big" or "native"; empty means little.
func (c Config) Options() ([]Option, error) {
	switch strings.ToLower(c.Order) {
	case "", "little", "le":
		return []Option{WithOrder(wire.Little)}, nil
	case "big", "be":
		return []Option{WithOrder(wire.Big)}, nil
	case "native":
		return []Option{WithOrder(wire.Native)}, nil
	default:
		return nil, errors.Newf("unknown byte order %q", c.Order)
	}
}

// Logger builds a production zap logger at the configured level. An empty
// level means info.
func (c Config) Logger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.LogLevel != "" {
		lvl, err := zap.ParseAtomicLevel(c.LogLevel)
		if err != nil {
			return nil, errors.Wrap(err, "parse log level")
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
