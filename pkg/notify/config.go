package notify

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Rule struct {
	EventType string   `yaml:"event_type" json:"event_type"`
	Channels  []string `yaml:"channels" json:"channels"`
	Severity  string   `yaml:"severity" json:"severity"`
	Enabled   bool     `yaml:"enabled" json:"enabled"`
}

type RulesConfig struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}

	if len(cfg.Rules) == 0 {
		return RulesConfig{}, errors.New("no alert rules configured")
	}

	return cfg, nil
}

func DefaultRules() RulesConfig {
	return RulesConfig{Rules: []Rule{
		{EventType: "emergency.triggered", Channels: []string{"sms", "pager"}, Severity: "critical", Enabled: true},
		{EventType: "emergency.accessed", Channels: []string{"webhook"}, Severity: "info", Enabled: true},
		{EventType: "emergency.resolved", Channels: []string{"webhook"}, Severity: "info", Enabled: true},
	}}
}

func (c RulesConfig) ruleFor(eventType string) (Rule, bool) {
	for _, rule := range c.Rules {
		if rule.EventType == eventType && rule.Enabled {
			return rule, true
		}
	}
	return Rule{}, false
}
