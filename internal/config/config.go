// Package config holds runtime policy for the capture engine: which
// model mode is active, how indexing is gated, and the mode-dependent
// thresholds and budgets the resolver and packer consult. Values load
// from the environment; nothing else in the codebase reads env vars for
// policy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mode selects which model backend drives classification and embedding
type Mode string

const (
	// ModeOnline uses the OpenAI APIs
	ModeOnline Mode = "online"
	// ModeOnDevice uses the local deterministic providers
	ModeOnDevice Mode = "ondevice"
)

// IndexingMode gates which submissions are admitted for indexing
type IndexingMode string

const (
	// IndexingAutomatic admits every submission
	IndexingAutomatic IndexingMode = "automatic"
	// IndexingManual admits only user-triggered submissions
	IndexingManual IndexingMode = "manual"
	// IndexingDisabled admits nothing
	IndexingDisabled IndexingMode = "disabled"
)

// Default policy values. On-device similarity is noisier, so inheritance
// demands a stricter threshold there, and the smaller local context
// window gets a much smaller packing budget.
const (
	DefaultThresholdOnline     = 0.75
	DefaultThresholdOnDevice   = 0.85
	DefaultBudgetOnline        = 8000
	DefaultBudgetOnDevice      = 2000
	DefaultCategorySearchLimit = 5
)

// Config is the resolved runtime policy
type Config struct {
	Mode         Mode
	IndexingMode IndexingMode

	// DatabasePath is the SQLite file location
	DatabasePath string

	// OpenAIAPIKey enables online mode when set
	OpenAIAPIKey string

	// Similarity thresholds for category inheritance, per mode
	ThresholdOnline   float64
	ThresholdOnDevice float64

	// Token budgets for deep-research packing, per mode
	BudgetOnline   int
	BudgetOnDevice int

	// CategorySearchLimit bounds the nearest-neighbor probe
	CategorySearchLimit int

	// BlacklistedDomains are never indexed
	BlacklistedDomains []string
}

// Default returns the built-in policy with no environment applied
func Default() Config {
	return Config{
		Mode:                ModeOnDevice,
		IndexingMode:        IndexingAutomatic,
		DatabasePath:        defaultDatabasePath(),
		ThresholdOnline:     DefaultThresholdOnline,
		ThresholdOnDevice:   DefaultThresholdOnDevice,
		BudgetOnline:        DefaultBudgetOnline,
		BudgetOnDevice:      DefaultBudgetOnDevice,
		CategorySearchLimit: DefaultCategorySearchLimit,
	}
}

// NewFromEnv loads policy from the environment on top of defaults.
//
// Recognized variables:
//
//	OPENAI_API_KEY        enables online mode when set
//	RECALL_MODE           online | ondevice (overrides auto-detection)
//	RECALL_INDEXING_MODE  automatic | manual | disabled
//	RECALL_DB_PATH        SQLite database file
//	RECALL_BLACKLIST      comma-separated domains to never index
func NewFromEnv() (Config, error) {
	cfg := Default()

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAIAPIKey = key
		cfg.Mode = ModeOnline
	}

	if mode := strings.ToLower(os.Getenv("RECALL_MODE")); mode != "" {
		switch Mode(mode) {
		case ModeOnline, ModeOnDevice:
			cfg.Mode = Mode(mode)
		default:
			return cfg, fmt.Errorf("invalid RECALL_MODE %q", mode)
		}
	}
	if cfg.Mode == ModeOnline && cfg.OpenAIAPIKey == "" {
		return cfg, fmt.Errorf("online mode requires OPENAI_API_KEY")
	}

	if mode := strings.ToLower(os.Getenv("RECALL_INDEXING_MODE")); mode != "" {
		switch IndexingMode(mode) {
		case IndexingAutomatic, IndexingManual, IndexingDisabled:
			cfg.IndexingMode = IndexingMode(mode)
		default:
			return cfg, fmt.Errorf("invalid RECALL_INDEXING_MODE %q", mode)
		}
	}

	if path := os.Getenv("RECALL_DB_PATH"); path != "" {
		cfg.DatabasePath = path
	}

	if raw := os.Getenv("RECALL_BLACKLIST"); raw != "" {
		for _, domain := range strings.Split(raw, ",") {
			domain = strings.ToLower(strings.TrimSpace(domain))
			if domain != "" {
				cfg.BlacklistedDomains = append(cfg.BlacklistedDomains, domain)
			}
		}
	}

	return cfg, nil
}

// SimilarityThreshold returns the category-inheritance threshold for the
// active mode
func (c Config) SimilarityThreshold() float64 {
	if c.Mode == ModeOnline {
		return c.ThresholdOnline
	}
	return c.ThresholdOnDevice
}

// TokenBudget returns the deep-research packing budget for the active mode
func (c Config) TokenBudget() int {
	if c.Mode == ModeOnline {
		return c.BudgetOnline
	}
	return c.BudgetOnDevice
}

// Blocked reports whether host matches a blacklisted domain, including
// subdomains
func (c Config) Blocked(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	for _, domain := range c.BlacklistedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "recall.db"
	}
	return filepath.Join(home, ".recall", "recall.db")
}
