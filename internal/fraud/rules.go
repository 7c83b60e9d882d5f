package fraud

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule weights. Each rule adds its full weight when triggered; there is no
// partial credit and a rule can fire at most once per evaluation.
const (
	weightInvalidPhone    = 20
	weightInvalidEmail    = 15
	weightDisposableEmail = 25
	weightVoIPNumber      = 10

	weightInvalidAddress     = 15
	weightSuspiciousLocation = 10
	weightLocationMismatch   = 20

	weightRapidSubmissions = 30
	weightDuplicateContent = 25
	weightSuspiciousTiming = 15

	weightLowQualityDescription = 10
	weightSpamKeywords          = 20
	weightSuspiciousPatterns    = 15
	weightFakeUrgency           = 10
)

// RuleConfig holds the tunable keyword and domain lists used by the
// evaluators. Lists are data, not code: operators can override them via a
// YAML file without redeploying rule logic.
type RuleConfig struct {
	DisposableEmailDomains  []string `yaml:"disposable_email_domains"`
	SuspiciousLocationWords []string `yaml:"suspicious_location_words"`
	SpamKeywords            []string `yaml:"spam_keywords"`
	UrgencyKeywords         []string `yaml:"urgency_keywords"`
}

// DefaultRuleConfig returns the built-in rule lists
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		DisposableEmailDomains: []string{
			"mailinator.com",
			"tempmail.org",
			"guerrillamail.com",
			"10minutemail.com",
			"temp-mail.org",
			"throwaway.email",
		},
		SuspiciousLocationWords: []string{"test", "fake", "dummy", "example"},
		SpamKeywords: []string{
			"click here",
			"free money",
			"make money fast",
			"work from home",
			"get rich quick",
			"guaranteed",
		},
		UrgencyKeywords: []string{"urgent", "asap", "immediately", "emergency"},
	}
}

// LoadRuleConfig reads rule lists from a YAML file. Lists omitted from the
// file keep their built-in defaults.
func LoadRuleConfig(path string) (RuleConfig, error) {
	cfg := DefaultRuleConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read rules file: %w", err)
	}

	var overrides RuleConfig
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return cfg, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if len(overrides.DisposableEmailDomains) > 0 {
		cfg.DisposableEmailDomains = overrides.DisposableEmailDomains
	}
	if len(overrides.SuspiciousLocationWords) > 0 {
		cfg.SuspiciousLocationWords = overrides.SuspiciousLocationWords
	}
	if len(overrides.SpamKeywords) > 0 {
		cfg.SpamKeywords = overrides.SpamKeywords
	}
	if len(overrides.UrgencyKeywords) > 0 {
		cfg.UrgencyKeywords = overrides.UrgencyKeywords
	}

	return cfg, nil
}

// normalize lower-cases entries once so evaluators can do case-insensitive
// matching without re-allocating per lead.
func (c RuleConfig) normalized() RuleConfig {
	lower := func(in []string) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = strings.ToLower(s)
		}
		return out
	}

	return RuleConfig{
		DisposableEmailDomains:  lower(c.DisposableEmailDomains),
		SuspiciousLocationWords: lower(c.SuspiciousLocationWords),
		SpamKeywords:            lower(c.SpamKeywords),
		UrgencyKeywords:         lower(c.UrgencyKeywords),
	}
}
