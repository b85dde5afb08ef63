package capture

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the capture layer's YAML configuration, matching the
// Config+(*Config).defaults() pattern of domwatch/internal/config.
type Config struct {
	OSInput       OSInputConfig       `yaml:"os_input"`
	AppFocus      AppFocusConfig      `yaml:"app_focus"`
	Clipboard     ClipboardConfig     `yaml:"clipboard"`
	Accessibility AccessibilityConfig `yaml:"accessibility"`
	Browser       BrowserConfig       `yaml:"browser"`
	// ChannelCapacity bounds the fan-in channel every source writes to;
	// matches max_events_in_memory (spec.md §5) since the buffer drains
	// it at the same rate it is appended.
	ChannelCapacity int `yaml:"channel_capacity"`
}

// OSInputConfig controls the key/mouse hook source.
type OSInputConfig struct {
	Enabled        bool          `yaml:"enabled"`
	MouseMoveEvery time.Duration `yaml:"mouse_move_throttle"` // default 100ms
}

// AppFocusConfig controls the active-window poller.
type AppFocusConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"` // default 1s (>= 1Hz)
}

// ClipboardConfig controls the clipboard poller.
type ClipboardConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"` // default 500ms
	MaxChars     int           `yaml:"max_chars"`     // default 1000
}

// AccessibilityConfig controls the on-demand element inspector.
type AccessibilityConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Timeout      time.Duration `yaml:"timeout"`        // default 3s
	MaxAncestors int           `yaml:"max_ancestors"`  // default 3
	MaxSiblings  int           `yaml:"max_siblings"`   // default 20
	MaxTreeDepth int           `yaml:"max_tree_depth"` // default 40
}

// BrowserConfig controls the browser bridge, adapted from
// domwatch/internal/config.BrowserConfig (remote URL / memory limit /
// recycle / resource blocking fields carried verbatim). There is no
// stealth or capture-fidelity setting.
type BrowserConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Remote           string        `yaml:"remote"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	URLPollInterval  time.Duration `yaml:"url_poll_interval"`       // default 2s
	ScrollPollHz     time.Duration `yaml:"scroll_poll_interval"`    // default 1s
	SelectionPollHz  time.Duration `yaml:"selection_poll_interval"` // default 1s
	JSTimeout        time.Duration `yaml:"js_timeout"`              // default 5s
}

func (c *Config) defaults() {
	if c.OSInput.MouseMoveEvery <= 0 {
		c.OSInput.MouseMoveEvery = 100 * time.Millisecond
	}
	if c.AppFocus.PollInterval <= 0 {
		c.AppFocus.PollInterval = time.Second
	}
	if c.Clipboard.PollInterval <= 0 {
		c.Clipboard.PollInterval = 500 * time.Millisecond
	}
	if c.Clipboard.MaxChars <= 0 {
		c.Clipboard.MaxChars = 1000
	}
	if c.Accessibility.Timeout <= 0 {
		c.Accessibility.Timeout = 3 * time.Second
	}
	if c.Accessibility.MaxAncestors <= 0 {
		c.Accessibility.MaxAncestors = 3
	}
	if c.Accessibility.MaxSiblings <= 0 {
		c.Accessibility.MaxSiblings = 20
	}
	if c.Accessibility.MaxTreeDepth <= 0 {
		c.Accessibility.MaxTreeDepth = 40
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.URLPollInterval <= 0 {
		c.Browser.URLPollInterval = 2 * time.Second
	}
	if c.Browser.ScrollPollHz <= 0 {
		c.Browser.ScrollPollHz = time.Second
	}
	if c.Browser.SelectionPollHz <= 0 {
		c.Browser.SelectionPollHz = time.Second
	}
	if c.Browser.JSTimeout <= 0 {
		c.Browser.JSTimeout = 5 * time.Second
	}
	if c.ChannelCapacity <= 0 {
		c.ChannelCapacity = 10000
	}
}

// DefaultConfig returns a Config with every source enabled and
// spec.md §4.1's default intervals.
func DefaultConfig() Config {
	cfg := Config{
		OSInput:       OSInputConfig{Enabled: true},
		AppFocus:      AppFocusConfig{Enabled: true},
		Clipboard:     ClipboardConfig{Enabled: true},
		Accessibility: AccessibilityConfig{Enabled: true},
		Browser:       BrowserConfig{Enabled: true},
	}
	cfg.defaults()
	return cfg
}

// LoadConfigFile reads a YAML capture configuration, matching
// domwatch/internal/config.LoadFile.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return &cfg, nil
}
