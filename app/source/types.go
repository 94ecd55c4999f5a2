package source

// Config identifies one tracked item. Instances are immutable within a
// run cycle.
type Config struct {
	ItemID    string // Derived from filename (without .yml extension) or Inputs row
	URL       string `yaml:"url"`
	AdapterID string `yaml:"adapter"`
	Proxy     string `yaml:"proxy"`
	UserAgent string `yaml:"user_agent"`
	Enabled   bool   `yaml:"enabled"`
}

// ConfigError marks a malformed or unresolvable source entry. It is
// item-scoped: the item is skipped, the run continues.
type ConfigError struct {
	ItemID string
	Msg    string
}

func (e *ConfigError) Error() string {
	if e.ItemID == "" {
		return "config error: " + e.Msg
	}
	return "config error for " + e.ItemID + ": " + e.Msg
}
