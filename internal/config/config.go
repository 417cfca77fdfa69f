// Package config loads kvs-server's optional JSON-with-comments config
// file (§6), parsed with tailscale/hujson so operators can annotate
// their config the way the memcp config loader does, then standardized
// to strict JSON before unmarshaling into Config.
package config

import (
	"encoding/json"
	"os"

	"github.com/tailscale/hujson"
)

// Config holds the settings kvs-server can take from a file instead of
// (or in addition to) flags. Flags always win when both are set; see
// cmd/kvs-server's flag-merge logic.
type Config struct {
	Addr   string `json:"addr"`
	Engine string `json:"engine"`
	Debug  bool   `json:"debug"`
}

// Load reads and parses the hujson config file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(standard, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
