package chat

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type RuleSet struct {
	Rules    []Rule `yaml:"rules"`
	Fallback string `yaml:"fallback"`
}

// Rule fires when the lower-cased input contains any of Keywords.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}

const FallbackReply = "I'm your Incident Response Agent. Ask me about alerts, escalations, or runbooks."

// DefaultRules is the built-in reply table. Order matters: the first match
// wins.
func DefaultRules() RuleSet {
	return RuleSet{
		Rules: []Rule{
			{
				Name:     "p0_status",
				Keywords: []string{"p0", "status"},
				Reply:    "🔴 P0 Active: CPU spike on prod-cluster-07. Runbook: RB-2041.",
			},
			{
				Name:     "alert_history",
				Keywords: []string{"alert", "history"},
				Reply:    "📋 Recent alerts: P0 CPU spike, P1 DB lag, P1 API errors.",
			},
			{
				Name:     "escalation",
				Keywords: []string{"escalat"},
				Reply:    "📣 Escalate P1: Page on-call, open #incident-p1 in Slack, update status page.",
			},
			{
				Name:     "report",
				Keywords: []string{"report"},
				Reply:    "📝 Incident report drafted. Title: API Error Spike. Severity: P1.",
			},
		},
		Fallback: FallbackReply,
	}
}

// LoadRules reads an ordered reply table from a YAML file. An empty path
// yields DefaultRules.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, err
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if rs.Fallback == "" {
		rs.Fallback = FallbackReply
	}
	if err := rs.normalize(); err != nil {
		return RuleSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

func (rs *RuleSet) normalize() error {
	var errs []error
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule_%d", i+1)
		}
		if r.Reply == "" {
			errs = append(errs, fmt.Errorf("rule %s: reply is empty", r.Name))
		}
		kept := r.Keywords[:0]
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kept = append(kept, kw)
			}
		}
		r.Keywords = kept
		if len(r.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("rule %s: no keywords", r.Name))
		}
	}
	return errors.Join(errs...)
}
