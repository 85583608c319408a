package chat

import "strings"

// Resolver maps a chat turn to a canned reply. It holds no mutable state.
type Resolver struct {
	rules    []Rule
	fallback string
}

func NewResolver(rs RuleSet) *Resolver {
	rules := make([]Rule, len(rs.Rules))
	copy(rules, rs.Rules)
	fallback := rs.Fallback
	if fallback == "" {
		fallback = FallbackReply
	}
	return &Resolver{rules: rules, fallback: fallback}
}

// Match returns the first rule whose keywords occur in text.
func (r *Resolver) Match(text string) (Rule, bool) {
	m := strings.ToLower(text)
	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(m, kw) {
				return rule, true
			}
		}
	}
	return Rule{}, false
}

func (r *Resolver) Resolve(text string) string {
	if rule, ok := r.Match(text); ok {
		return rule.Reply
	}
	return r.fallback
}
