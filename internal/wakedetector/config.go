package wakedetector

import "encoding/json"

// PatternGroup is one (kind, phrases) entry in Config.Patterns. Order
// within Config.Patterns is significant: it is the final tie-breaker when
// selecting the best hit within a segment.
type PatternGroup struct {
	Kind    string   `json:"kind"`
	Phrases []string `json:"phrases"`
}

// FuzzyConfig controls Damerau-Levenshtein tolerant matching, applied only
// to phrases listed under the "fuzzy" kind.
type FuzzyConfig struct {
	Enabled         bool `json:"enabled"`
	MaxEditDistance int  `json:"max_edit_distance"`
}

// QuestionConfig bounds the length of the extracted trailing question.
type QuestionConfig struct {
	MinChars int `json:"min_chars"`
	MaxChars int `json:"max_chars"`
}

// RateLimitConfig bounds how often a session may trigger Commands.
type RateLimitConfig struct {
	Enabled      bool    `json:"enabled"`
	CooldownS    float64 `json:"cooldown_s"`
	MaxPerMinute int     `json:"max_per_minute"`
	PerSession   bool    `json:"per_session"`
}

// Config is the WakeDetector's hot-reloadable configuration, loaded from
// the JSON file named by the WAKE_PATTERNS_FILE environment variable.
type Config struct {
	Patterns   []PatternGroup     `json:"patterns"`
	Thresholds map[string]float64 `json:"thresholds"`
	Fuzzy      FuzzyConfig        `json:"fuzzy"`
	Question   QuestionConfig     `json:"question"`
	RateLimit  RateLimitConfig    `json:"rate_limit"`
}

// DefaultConfig returns the configuration used when no pattern file is
// supplied, with a single "hey raven" primary phrase.
func DefaultConfig() Config {
	return Config{
		Patterns: []PatternGroup{
			{Kind: "primary", Phrases: []string{"hey raven"}},
			{Kind: "fuzzy", Phrases: []string{"hey raven"}},
		},
		Thresholds: map[string]float64{
			"primary":   0.9,
			"secondary": 0.7,
		},
		Fuzzy: FuzzyConfig{
			Enabled:         true,
			MaxEditDistance: 2,
		},
		Question: QuestionConfig{
			MinChars: 3,
			MaxChars: 200,
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			CooldownS:    3,
			MaxPerMinute: 15,
			PerSession:   true,
		},
	}
}

// ParseConfig decodes a JSON pattern file's contents, filling in any field
// left zero-valued with DefaultConfig's value.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// thresholdFor returns kind's match confidence threshold: an explicit
// entry in Thresholds if present, otherwise the higher of the primary and
// secondary thresholds per spec.md §4.1.
func (c Config) thresholdFor(kind string) float64 {
	if t, ok := c.Thresholds[kind]; ok {
		return t
	}
	primary := c.Thresholds["primary"]
	secondary := c.Thresholds["secondary"]
	if primary > secondary {
		return primary
	}
	return secondary
}
