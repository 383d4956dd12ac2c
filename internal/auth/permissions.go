package auth

import (
	"fmt"
	"strings"
)

// Permission is a fine-grained capability. The set is closed: raw strings are
// validated at the boundary when tokens are minted and never travel free-form
// inside the engine.
type Permission string

const (
	PermKeysRead     Permission = "keys:read"
	PermKeysWrite    Permission = "keys:write"
	PermKeysDelete   Permission = "keys:delete"
	PermFoldersRead  Permission = "folders:read"
	PermFoldersWrite Permission = "folders:write"
	PermTokensManage Permission = "tokens:manage"
	PermAdminAll     Permission = "admin:all"
)

// AllPermissions lists every known permission.
var AllPermissions = []Permission{
	PermKeysRead,
	PermKeysWrite,
	PermKeysDelete,
	PermFoldersRead,
	PermFoldersWrite,
	PermTokensManage,
	PermAdminAll,
}

// ParsePermission validates a raw permission key.
func ParsePermission(raw string) (Permission, error) {
	candidate := Permission(strings.ToLower(strings.TrimSpace(raw)))
	for _, p := range AllPermissions {
		if candidate == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, raw)
}

// ParsePermissions validates and deduplicates a raw permission list.
func ParsePermissions(raw []string) ([]Permission, error) {
	seen := make(map[Permission]struct{}, len(raw))
	var out []Permission
	for _, r := range raw {
		p, err := ParsePermission(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// RolePermissions returns the full permission set a role implies. Legacy
// tokens had no granular scope, so a legacy credential inherits everything
// its owner's role allows.
func RolePermissions(role Role) []Permission {
	switch role {
	case RoleAdmin:
		return append([]Permission(nil), AllPermissions...)
	default:
		return []Permission{
			PermKeysRead,
			PermKeysWrite,
			PermKeysDelete,
			PermFoldersRead,
			PermFoldersWrite,
			PermTokensManage,
		}
	}
}
