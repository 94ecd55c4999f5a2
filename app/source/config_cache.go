package source

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigCache loads per-item source configurations from a directory of
// .yml files and keeps them in memory. One file describes one tracked
// item; the item id derives from the filename.
type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		itemID := strings.TrimSuffix(fileName, ".yml")

		config, err := cc.LoadConfig(itemID)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source configuration loaded", "item", itemID, "adapter", config.AdapterID, "enabled", config.Enabled)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(itemID string) (*Config, error) {
	configFile := cc.getConfigFilePath(itemID)
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.ItemID = itemID

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.ItemID] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(itemID string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[itemID]
	if !ok {
		return nil, &ConfigError{ItemID: itemID, Msg: "source config not found"}
	}
	return config, nil
}

func (cc *ConfigCache) GetConfigs() []Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		configs = append(configs, *v)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ItemID < configs[j].ItemID })
	return configs
}

func (cc *ConfigCache) GetEnabledConfigs() []Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.Enabled {
			configs = append(configs, *v)
		}
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ItemID < configs[j].ItemID })
	return configs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	config := Config{Enabled: true}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.AdapterID == "" {
		config.AdapterID = "generic"
	}

	return &config, nil
}

// Validate checks a source configuration regardless of where it was
// loaded from (YAML file or Inputs row in the record store).
func Validate(config *Config) error {
	if config == nil {
		return &ConfigError{Msg: "config is nil"}
	}
	if config.ItemID == "" {
		return &ConfigError{Msg: "item id is required"}
	}
	if config.URL == "" {
		return &ConfigError{ItemID: config.ItemID, Msg: "url is required"}
	}
	u, err := url.Parse(config.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{ItemID: config.ItemID, Msg: fmt.Sprintf("malformed url %q", config.URL)}
	}
	if config.AdapterID == "" {
		return &ConfigError{ItemID: config.ItemID, Msg: "adapter id is required"}
	}
	return nil
}

func (cc *ConfigCache) getConfigFilePath(itemID string) string {
	return filepath.Join(cc.sourcesDir, itemID+".yml")
}
