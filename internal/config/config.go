package config

// Config holds operator settings (in-memory representation).
// Persistence is handled by internal/db package.
type Config struct {
	// Capital is the operator's liquid coin stack; opportunities whose unit
	// price exceeds it are skipped outright.
	Capital int64 `json:"capital"`

	// Margin bounds for the live opportunity scan, in percent after tax.
	MinMarginPct float64 `json:"min_margin_pct"`
	MaxMarginPct float64 `json:"max_margin_pct"`

	// Refresh loop.
	AutoRefresh            bool `json:"auto_refresh"`
	RefreshIntervalSeconds int  `json:"refresh_interval_seconds"`

	// Stable-pick filters.
	FilterStale     bool `json:"filter_stale"`
	FilterLowVolume bool `json:"filter_low_volume"`

	// MaxResults caps every published ranked list. 0 = default.
	MaxResults int `json:"max_results"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Capital:                50000,
		MinMarginPct:           3,
		MaxMarginPct:           30,
		AutoRefresh:            true,
		RefreshIntervalSeconds: 60,
		FilterStale:            true,
		FilterLowVolume:        true,
		MaxResults:             50,
	}
}
