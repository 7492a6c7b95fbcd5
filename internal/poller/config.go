package poller

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultInterval = 60 * time.Second

type Camera struct {
	Name        string            `yaml:"name"`
	SnapshotURL string            `yaml:"snapshot_url"`
	Headers     map[string]string `yaml:"headers"`
}

// Config is the camera list, usually loaded from cameras.yaml:
//
//	interval: 60s
//	cameras:
//	  - name: Front Gate
//	    snapshot_url: http://10.0.0.12/snapshot.jpg
//	    headers:
//	      Authorization: Basic ...
type Config struct {
	Interval time.Duration `yaml:"interval"`
	Cameras  []Camera      `yaml:"cameras"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read camera config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse camera config: %w", err)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if len(cfg.Cameras) == 0 {
		return nil, errors.New("camera config lists no cameras")
	}
	for i, cam := range cfg.Cameras {
		if cam.Name == "" || cam.SnapshotURL == "" {
			return nil, fmt.Errorf("camera %d: name and snapshot_url are required", i+1)
		}
	}
	return &cfg, nil
}
