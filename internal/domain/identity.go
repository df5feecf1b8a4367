package domain

// Subject types of a normalized identity.
const (
	SubjectUser      = "user"
	SubjectService   = "service"
	SubjectAnonymous = "anonymous"
)

// Actions submitted to the policy oracle.
const (
	ActionQuery  = "query"
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionCreate = "create"
	ActionDelete = "delete"
	ActionAdmin  = "admin"
)

// Identity is the normalized caller identity produced by the authentication
// middleware. The gateway never parses raw tokens itself.
type Identity struct {
	Subject string   `json:"subject"`
	Type    string   `json:"type"`
	Groups  []string `json:"groups"`
	Roles   []string `json:"roles"`
	Scopes  []string `json:"scopes"`
}

// Anonymous is the identity used when no credentials were presented.
func Anonymous() Identity {
	return Identity{Subject: "anonymous", Type: SubjectAnonymous}
}

// HasScope reports whether the identity carries the given OAuth scope.
func (id Identity) HasScope(scope string) bool {
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// InGroup reports whether the identity belongs to the given group.
func (id Identity) InGroup(group string) bool {
	for _, g := range id.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// AdminGroup members see unfiltered data on user-filtered datasets.
const AdminGroup = "admins"

// BypassesUserFilter reports whether the identity is exempt from user row
// filtering: catalogue administrators, by group or by scope.
func (id Identity) BypassesUserFilter() bool {
	return id.InGroup(AdminGroup) || id.HasScope("datasets:admin")
}
