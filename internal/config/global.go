package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agusx1211/loopdash/internal/story"
)

const (
	DefaultPollInterval    = 2 * time.Second
	DefaultHighlightWindow = 3 * time.Second

	minPollInterval = 200 * time.Millisecond
	maxRecentAgents = 20
	envHome         = "LOOPDASH_HOME"
	configFileName  = "config.json"
)

// ErrUnknownKey is returned by Set for keys that do not exist.
var ErrUnknownKey = errors.New("unknown config key")

// RecentAgent tracks an agent the operator recently watched.
type RecentAgent struct {
	Agent  string    `json:"agent"`
	UsedAt time.Time `json:"used_at"`
}

// GlobalConfig holds user-level preferences stored in ~/.loopdash/config.json.
type GlobalConfig struct {
	MissingDependencyPolicy string        `json:"missing_dependency_policy,omitempty"` // "block", "ignore", "pending"
	PollIntervalMS          int           `json:"poll_interval_ms,omitempty"`
	HighlightWindowMS       int           `json:"highlight_window_ms,omitempty"`
	DefaultAgent            string        `json:"default_agent,omitempty"`
	RecentAgents            []RecentAgent `json:"recent_agents,omitempty"`
}

// Dir returns the global config directory (~/.loopdash, or $LOOPDASH_HOME),
// creating it if needed.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv(envHome)); dir != "" {
		os.MkdirAll(dir, 0755)
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	dir := filepath.Join(home, ".loopdash")
	os.MkdirAll(dir, 0755)
	return dir
}

func configPath() string {
	return filepath.Join(Dir(), configFileName)
}

// Load reads the global config, returning defaults if the file is absent.
func Load() (*GlobalConfig, error) {
	data, err := os.ReadFile(configPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath(), err)
	}
	if _, err := cfg.MissingPolicy(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath(), err)
	}
	return &cfg, nil
}

// Save writes the global config.
func Save(cfg *GlobalConfig) error {
	if cfg == nil {
		cfg = &GlobalConfig{}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0644)
}

// MissingPolicy returns the configured policy for unresolved dependency ids.
func (c *GlobalConfig) MissingPolicy() (story.MissingPolicy, error) {
	return story.ParseMissingPolicy(c.MissingDependencyPolicy)
}

// PollInterval returns the refresh interval, defaulted and clamped.
func (c *GlobalConfig) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return DefaultPollInterval
	}
	d := time.Duration(c.PollIntervalMS) * time.Millisecond
	if d < minPollInterval {
		return minPollInterval
	}
	return d
}

// HighlightWindow returns how long new subagents stay highlighted.
// A negative setting disables highlighting.
func (c *GlobalConfig) HighlightWindow() time.Duration {
	switch {
	case c.HighlightWindowMS < 0:
		return 0
	case c.HighlightWindowMS == 0:
		return DefaultHighlightWindow
	default:
		return time.Duration(c.HighlightWindowMS) * time.Millisecond
	}
}

// Keys lists the keys accepted by Set.
func Keys() []string {
	return []string{"missing_dependency_policy", "poll_interval_ms", "highlight_window_ms", "default_agent"}
}

// Set updates a single key from its string form.
func (c *GlobalConfig) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_") {
	case "missing_dependency_policy", "missing_deps":
		p, err := story.ParseMissingPolicy(value)
		if err != nil {
			return err
		}
		c.MissingDependencyPolicy = p.String()
	case "poll_interval_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("poll_interval_ms: %w", err)
		}
		c.PollIntervalMS = n
	case "highlight_window_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("highlight_window_ms: %w", err)
		}
		c.HighlightWindowMS = n
	case "default_agent":
		c.DefaultAgent = value
	default:
		return fmt.Errorf("%w: %s (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	return nil
}

// RecordRecentAgent bumps agent to the top of the recent list.
func (c *GlobalConfig) RecordRecentAgent(agent string) {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return
	}
	now := time.Now().UTC()

	out := make([]RecentAgent, 0, len(c.RecentAgents)+1)
	out = append(out, RecentAgent{Agent: agent, UsedAt: now})
	for _, ra := range c.RecentAgents {
		if ra.Agent != agent {
			out = append(out, ra)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UsedAt.After(out[j].UsedAt) })
	if len(out) > maxRecentAgents {
		out = out[:maxRecentAgents]
	}
	c.RecentAgents = out
}

// PreferredAgent returns the default agent, else the most recently watched
// one, else "".
func (c *GlobalConfig) PreferredAgent() string {
	if c.DefaultAgent != "" {
		return c.DefaultAgent
	}
	if len(c.RecentAgents) > 0 {
		return c.RecentAgents[0].Agent
	}
	return ""
}
