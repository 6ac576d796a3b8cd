package topic

import (
	"github.com/imageops/eda-pipeline/internal/types"
)

// FilterPolicy is an allow-list or deny-list over one message attribute,
// evaluated per subscriber. Exactly one of Allow or Deny should be set.
//
// A message that does not carry the filtered attribute matches neither
// kind of policy, so an unclassified notification reaches only the
// unfiltered subscribers.
type FilterPolicy struct {
	Attribute string
	Allow     []string
	Deny      []string
}

// AllowList builds a policy that matches when the attribute value is in
// the given set.
func AllowList(attribute string, values ...string) *FilterPolicy {
	return &FilterPolicy{Attribute: attribute, Allow: values}
}

// DenyList builds a policy that matches when the attribute is present and
// its value is outside the given set.
func DenyList(attribute string, values ...string) *FilterPolicy {
	return &FilterPolicy{Attribute: attribute, Deny: values}
}

// Matches reports whether the notification passes the policy. A nil
// policy matches everything.
func (p *FilterPolicy) Matches(n *types.Notification) bool {
	if p == nil {
		return true
	}
	value, ok := n.Attribute(p.Attribute)
	if !ok {
		return false
	}
	if len(p.Allow) > 0 {
		return contains(p.Allow, value)
	}
	if len(p.Deny) > 0 {
		return !contains(p.Deny, value)
	}
	return true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
