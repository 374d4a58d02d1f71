// Package access implements diagram authorization. Every request against a
// diagram resolves through three tiers in strict order: creator ownership,
// team-derived access, then direct participant access. The first tier that
// claims the actor decides the outcome; later tiers are never consulted.
package access

import "net/http"

// MethodClass groups HTTP methods by the privilege they require.
type MethodClass string

const (
	// ClassRead covers GET requests.
	ClassRead MethodClass = "read"
	// ClassWrite covers POST, PUT and PATCH requests.
	ClassWrite MethodClass = "write"
	// ClassAdmin covers DELETE requests.
	ClassAdmin MethodClass = "admin"
)

// ClassForMethod maps an HTTP method to its method class.
func ClassForMethod(method string) MethodClass {
	switch method {
	case http.MethodDelete:
		return ClassAdmin
	case http.MethodGet, http.MethodHead:
		return ClassRead
	default:
		return ClassWrite
	}
}

// Rule names which tier granted or denied access. Used for metrics and logs.
type Rule string

const (
	RuleCreator     Rule = "creator"
	RuleTeam        Rule = "team"
	RuleParticipant Rule = "participant"
	RuleNone        Rule = "none"
)

// Participant roles on a diagram.
const (
	ParticipantViewer = "viewer"
	ParticipantEditor = "editor"
	ParticipantAdmin  = "admin"
)

// Team member roles. Owner exists only at the team level.
const (
	TeamRoleViewer = "viewer"
	TeamRoleEditor = "editor"
	TeamRoleAdmin  = "admin"
	TeamRoleOwner  = "owner"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Rule    Rule
}
