package authz

import (
	"context"
	"strings"

	"datagate/internal/domain"
)

// Rule is one entry in the declarative oracle's ordered table. The first
// matching rule decides; nothing matching means deny.
type Rule struct {
	Name   string
	Match  func(req *domain.DecisionRequest) bool
	Allow  bool
	Reason string
}

// RuleOracle is an in-process policy oracle driven by an ordered rule table.
// Deployments without an external OPA run on this; the gateway treats it
// exactly like a remote oracle, so enforcement code stays identical.
type RuleOracle struct {
	rules []Rule
}

// NewRuleOracle creates an oracle from the given ordered rules.
func NewRuleOracle(rules []Rule) *RuleOracle {
	return &RuleOracle{rules: rules}
}

// DefaultRules encodes the standard access tiers:
//   - open datasets: anyone, including anonymous
//   - internal datasets: any authenticated user or service
//   - restricted datasets: identities sharing a group with the dataset's
//     "allowed_groups" tag (comma-separated), or holding the admin scope
//
// Order matters; the final implicit outcome is deny.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "open-access",
			Match:  func(r *domain.DecisionRequest) bool { return r.Dataset.AccessLevel == domain.AccessOpen },
			Allow:  true,
			Reason: "dataset is open",
		},
		{
			Name: "internal-authenticated",
			Match: func(r *domain.DecisionRequest) bool {
				return r.Dataset.AccessLevel == domain.AccessInternal &&
					r.Identity.Type != domain.SubjectAnonymous
			},
			Allow:  true,
			Reason: "authenticated access to internal dataset",
		},
		{
			Name: "restricted-admin-scope",
			Match: func(r *domain.DecisionRequest) bool {
				return r.Dataset.AccessLevel == domain.AccessRestricted &&
					r.Identity.HasScope("datasets:admin")
			},
			Allow:  true,
			Reason: "admin scope",
		},
		{
			Name: "restricted-allowed-group",
			Match: func(r *domain.DecisionRequest) bool {
				if r.Dataset.AccessLevel != domain.AccessRestricted {
					return false
				}
				for _, group := range strings.Split(r.Dataset.Tags["allowed_groups"], ",") {
					group = strings.TrimSpace(group)
					if group != "" && r.Identity.InGroup(group) {
						return true
					}
				}
				return false
			},
			Allow:  true,
			Reason: "group membership grants restricted access",
		},
	}
}

// Decide walks the rule table in order and returns the first match.
// No match is an explicit deny, never an error.
func (o *RuleOracle) Decide(_ context.Context, req *domain.DecisionRequest) (domain.Decision, error) {
	for _, rule := range o.rules {
		if rule.Match(req) {
			return domain.Decision{Allow: rule.Allow, Reason: rule.Reason}, nil
		}
	}
	return domain.Decision{Allow: false, Reason: "no policy rule permits this access"}, nil
}
