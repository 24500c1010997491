package roles

// Role is the closed set of actor roles in the system.
type Role string

const (
	Requester Role = "requester"
	Mechanic  Role = "mechanic"
	Admin     Role = "admin"
)

// Capability names an action a role may perform.
type Capability string

const (
	CreateRequest   Capability = "request:create"
	AcceptRequest   Capability = "request:accept"
	CompleteRequest Capability = "request:complete"
	CancelRequest   Capability = "request:cancel"
	ViewAllRequests Capability = "request:view_all"
	ReportLocation  Capability = "location:report"
)

var grants = map[Role]map[Capability]bool{
	Requester: {
		CreateRequest: true,
		CancelRequest: true,
	},
	Mechanic: {
		AcceptRequest:   true,
		CompleteRequest: true,
		CancelRequest:   true,
		ViewAllRequests: true,
		ReportLocation:  true,
	},
	Admin: {
		CreateRequest:   true,
		AcceptRequest:   true,
		CompleteRequest: true,
		CancelRequest:   true,
		ViewAllRequests: true,
		ReportLocation:  true,
	},
}

// Parse maps a raw claim value to a Role. Unknown values are not a role.
func Parse(s string) (Role, bool) {
	switch Role(s) {
	case Requester, Mechanic, Admin:
		return Role(s), true
	}
	return "", false
}

// Can reports whether the role holds the given capability.
func (r Role) Can(c Capability) bool {
	return grants[r][c]
}

func (r Role) String() string { return string(r) }
