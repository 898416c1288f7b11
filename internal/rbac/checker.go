// Package rbac maps roles to permissions and guards HTTP routes with them.
package rbac

import (
	"slices"
	"strings"
)

// Checker answers permission queries against a role → permissions policy.
// A permission ending in "*" grants every permission with that prefix.
type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	return slices.ContainsFunc(c.RolePermissions[role], func(p string) bool {
		return matchPerm(p, perm)
	})
}

func (c *Checker) Any(role string, perms ...string) bool {
	return slices.ContainsFunc(perms, func(p string) bool { return c.Has(role, p) })
}

func (c *Checker) All(role string, perms ...string) bool {
	return !slices.ContainsFunc(perms, func(p string) bool { return !c.Has(role, p) })
}

// Granted lists the concrete permissions of role out of known, in order.
func (c *Checker) Granted(role string, known ...string) []string {
	var out []string
	for _, p := range known {
		if c.Has(role, p) {
			out = append(out, p)
		}
	}
	return out
}

func matchPerm(pattern, perm string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(perm, prefix)
	}
	return pattern == perm
}
