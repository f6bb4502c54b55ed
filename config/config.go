// Package config holds the process configuration loaded from YAML.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr string `yaml:"addr"`
}

type Viewer struct {
	IncludeGeometryDiagnostics bool    `yaml:"includeGeometryDiagnostics"`
	FrameRate                  int     `yaml:"frameRate"`
	EnableDamping              bool    `yaml:"enableDamping"`
	DampingFactor              float32 `yaml:"dampingFactor"`
	Width                      int     `yaml:"width"`
	Height                     int     `yaml:"height"`
}

type Source struct {
	Encoding string `yaml:"encoding"`
	// Root is the directory the web api may load local documents from.
	// Empty restricts it to http(s) urls.
	Root string `yaml:"root"`
}

type Metrics struct {
	Namespace string `yaml:"namespace"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	Viewer  Viewer  `yaml:"viewer"`
	Source  Source  `yaml:"source"`
	Metrics Metrics `yaml:"metrics"`
}

func Default() Config {
	return Config{
		Server: Server{Addr: ":8000"},
		Viewer: Viewer{
			FrameRate:     30,
			EnableDamping: true,
			DampingFactor: 0.05,
			Width:         1280,
			Height:        720,
		},
		Metrics: Metrics{Namespace: "bemviewer"},
	}
}

// Parse reads YAML over the defaults. Missing keys keep their default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "Failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), errors.Wrapf(err, "Cannot read config %q", path)
	}
	return Parse(data)
}

func (c Config) Validate() error {
	if c.Viewer.FrameRate <= 0 {
		return errors.Errorf("viewer.frameRate must be positive, got %d", c.Viewer.FrameRate)
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return errors.Errorf("invalid viewer size %dx%d", c.Viewer.Width, c.Viewer.Height)
	}
	if c.Viewer.DampingFactor <= 0 || c.Viewer.DampingFactor > 1 {
		return errors.Errorf("viewer.dampingFactor must be in (0;1], got %v", c.Viewer.DampingFactor)
	}
	if c.Source.Encoding != "" {
		if _, err := LookupEncoding(c.Source.Encoding); err != nil {
			return err
		}
	}
	if c.Source.Root != "" {
		fi, err := os.Stat(c.Source.Root)
		if err != nil {
			return errors.Wrap(err, "source.root")
		}
		if !fi.IsDir() {
			return errors.Errorf("source.root %q is not a directory", c.Source.Root)
		}
	}
	return nil
}

func (v Viewer) FrameInterval() time.Duration {
	return time.Second / time.Duration(v.FrameRate)
}
