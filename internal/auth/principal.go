package auth

// Principal is the authenticated identity and permission set derived from one
// request's credential. Constructed fresh per request, never persisted.
type Principal struct {
	UserID      string
	Role        Role
	Permissions map[Permission]struct{}
	TokenSource TokenSource
	IsActive    bool
}

// NewPrincipal builds a principal with a preloaded permission set.
func NewPrincipal(user *User, source TokenSource, perms []Permission) Principal {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return Principal{
		UserID:      user.ID,
		Role:        user.Role,
		Permissions: set,
		TokenSource: source,
		IsActive:    user.IsActive,
	}
}

// HasPermission reports whether the principal may perform the capability.
// admin:all implies everything; an inactive principal authorizes nothing.
func (p Principal) HasPermission(perm Permission) bool {
	if !p.IsActive {
		return false
	}
	if _, ok := p.Permissions[PermAdminAll]; ok {
		return true
	}
	_, ok := p.Permissions[perm]
	return ok
}

// PermissionList returns the permission set as a sorted-free slice for audit
// records.
func (p Principal) PermissionList() []string {
	out := make([]string, 0, len(p.Permissions))
	for perm := range p.Permissions {
		out = append(out, string(perm))
	}
	return out
}
