package rbac

import (
	"fmt"
	"sort"
	"strings"
)

// ViolationKind classifies a governance finding.
type ViolationKind string

// Violation kinds reported by the Checker.
const (
	ViolationDanglingPermission      ViolationKind = "DanglingPermission"
	ViolationMissingPrerequisite     ViolationKind = "MissingPrerequisite"
	ViolationDuplicateAssignment     ViolationKind = "DuplicateAssignment"
	ViolationContradictoryAssignment ViolationKind = "ContradictoryAssignment"
	ViolationDanglingPrerequisite    ViolationKind = "DanglingPrerequisite"
	ViolationPrerequisiteCycle       ViolationKind = "PrerequisiteCycle"
	ViolationSeniorityInversion      ViolationKind = "SeniorityInversion"
	ViolationScenarioMismatch        ViolationKind = "ScenarioMismatch"
)

// Violation is a single finding tied to the offending role and permission.
// Catalog-level findings leave Role empty.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	Role       Role          `json:"role,omitempty"`
	Permission Permission    `json:"permission,omitempty"`
	Detail     string        `json:"detail"`
}

func (v Violation) String() string {
	var b strings.Builder
	b.WriteString(string(v.Kind))
	if v.Role != "" {
		b.WriteString(" role=")
		b.WriteString(string(v.Role))
	}
	if v.Permission != "" {
		b.WriteString(" permission=")
		b.WriteString(string(v.Permission))
	}
	if v.Detail != "" {
		b.WriteString(": ")
		b.WriteString(v.Detail)
	}
	return b.String()
}

// Report is the result of a governance audit.
type Report struct {
	Violations         []Violation `json:"violations"`
	RolesChecked       int         `json:"roles_checked"`
	PermissionsChecked int         `json:"permissions_checked"`
	ScenariosChecked   int         `json:"scenarios_checked"`
}

// OK reports whether the audit found nothing.
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Count returns the number of violations of kind.
func (r Report) Count(kind ViolationKind) int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

// ByKind groups violations by kind.
func (r Report) ByKind() map[ViolationKind][]Violation {
	out := make(map[ViolationKind][]Violation)
	for _, v := range r.Violations {
		out[v.Kind] = append(out[v.Kind], v)
	}
	return out
}

// Checker statically audits a Registry against a Catalog. It never mutates
// its inputs.
type Checker struct {
	catalog    *Catalog
	registry   *Registry
	authorizer *Authorizer
	scenarios  []Scenario
}

// CheckerOption customises a Checker.
type CheckerOption func(*Checker)

// WithScenarios makes the Checker evaluate deployment scenarios through a.
func WithScenarios(a *Authorizer, scenarios []Scenario) CheckerOption {
	return func(c *Checker) {
		c.authorizer = a
		c.scenarios = append([]Scenario(nil), scenarios...)
	}
}

// NewChecker constructs a Checker. Nil tables are audited as empty.
func NewChecker(catalog *Catalog, registry *Registry, opts ...CheckerOption) *Checker {
	if catalog == nil {
		catalog = &Catalog{}
	}
	if registry == nil {
		registry = &Registry{}
	}
	c := &Checker{catalog: catalog, registry: registry}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check runs every audit pass and returns a deterministically ordered report.
func (c *Checker) Check() Report {
	effective := effectiveSets(c.catalog, c.registry)
	var out []Violation
	out = append(out, c.checkAssignments()...)
	out = append(out, c.checkPrerequisites(effective)...)
	out = append(out, c.checkCatalog()...)
	out = append(out, c.checkSeniority(effective)...)
	out = append(out, c.checkScenarios()...)
	sortViolations(out)
	if out == nil {
		out = []Violation{}
	}
	return Report{
		Violations:         out,
		RolesChecked:       len(c.registry.order),
		PermissionsChecked: c.catalog.Len(),
		ScenariosChecked:   len(c.scenarios),
	}
}

// checkAssignments finds dangling references, duplicates and grant/deny contradictions.
func (c *Checker) checkAssignments() []Violation {
	var out []Violation
	for _, code := range c.registry.order {
		def := c.registry.roles[code]
		out = append(out, c.scanList(code, def.Grants, "grant")...)
		out = append(out, c.scanList(code, def.Denies, "deny")...)
		denied := make(permissionSet, len(def.Denies))
		for _, p := range def.Denies {
			denied[p] = struct{}{}
		}
		reported := make(permissionSet)
		for _, p := range def.Grants {
			if denied.has(p) && !reported.has(p) {
				reported[p] = struct{}{}
				out = append(out, Violation{
					Kind:       ViolationContradictoryAssignment,
					Role:       code,
					Permission: p,
					Detail:     "permission is both granted and denied",
				})
			}
		}
	}
	return out
}

func (c *Checker) scanList(role Role, perms []Permission, list string) []Violation {
	var out []Violation
	counts := make(map[Permission]int, len(perms))
	for _, p := range perms {
		counts[p]++
	}
	for p, n := range counts {
		if !c.catalog.Contains(p) {
			out = append(out, Violation{
				Kind:       ViolationDanglingPermission,
				Role:       role,
				Permission: p,
				Detail:     fmt.Sprintf("%s references a permission outside the catalog", list),
			})
		}
		if n > 1 {
			out = append(out, Violation{
				Kind:       ViolationDuplicateAssignment,
				Role:       role,
				Permission: p,
				Detail:     fmt.Sprintf("%s listed %d times", list, n),
			})
		}
	}
	return out
}

// checkPrerequisites verifies every held permission comes with its declared prerequisites.
func (c *Checker) checkPrerequisites(effective map[Role]permissionSet) []Violation {
	var out []Violation
	for _, code := range c.registry.order {
		held := effective[code]
		for p := range held {
			def := c.catalog.defs[p]
			for _, req := range def.Requires {
				if !c.catalog.Contains(req) || held.has(req) {
					continue
				}
				out = append(out, Violation{
					Kind:       ViolationMissingPrerequisite,
					Role:       code,
					Permission: p,
					Detail:     fmt.Sprintf("requires %s", req),
				})
			}
		}
	}
	return out
}

// checkCatalog validates the prerequisite graph itself.
func (c *Checker) checkCatalog() []Violation {
	var out []Violation
	for _, id := range c.catalog.order {
		for _, req := range c.catalog.defs[id].Requires {
			if !c.catalog.Contains(req) {
				out = append(out, Violation{
					Kind:       ViolationDanglingPrerequisite,
					Permission: id,
					Detail:     fmt.Sprintf("requires unknown permission %s", req),
				})
			}
		}
		if c.reachesItself(id) {
			out = append(out, Violation{
				Kind:       ViolationPrerequisiteCycle,
				Permission: id,
				Detail:     "permission is its own transitive prerequisite",
			})
		}
	}
	return out
}

func (c *Checker) reachesItself(start Permission) bool {
	visited := make(permissionSet)
	stack := append([]Permission(nil), c.catalog.defs[start].Requires...)
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p == start {
			return true
		}
		if visited.has(p) || !c.catalog.Contains(p) {
			continue
		}
		visited[p] = struct{}{}
		stack = append(stack, c.catalog.defs[p].Requires...)
	}
	return false
}

// checkSeniority flags role managers that outrank a role holding permissions
// the manager lacks; such a table makes role creation inconsistent with rank.
func (c *Checker) checkSeniority(effective map[Role]permissionSet) []Violation {
	var out []Violation
	for _, manager := range c.registry.order {
		managerSet := effective[manager]
		if !managerSet.has(PermManageRoles) {
			continue
		}
		managerRank := c.registry.roles[manager].Rank
		for _, other := range c.registry.order {
			if other == manager || c.registry.roles[other].Rank >= managerRank {
				continue
			}
			for p := range effective[other] {
				if managerSet.has(p) {
					continue
				}
				out = append(out, Violation{
					Kind:       ViolationSeniorityInversion,
					Role:       manager,
					Permission: p,
					Detail:     fmt.Sprintf("outranks %s which holds a permission the manager lacks", other),
				})
			}
		}
	}
	return out
}

func (c *Checker) checkScenarios() []Violation {
	if c.authorizer == nil {
		return nil
	}
	var out []Violation
	for _, res := range c.authorizer.RunScenarios(c.scenarios) {
		if res.Passed {
			continue
		}
		detail := fmt.Sprintf("scenario %q expected allowed=%t, got allowed=%t (%s)", res.Scenario.Name, res.Scenario.Expect, res.Decision.Allowed, res.Decision.Reason)
		if res.Err != "" {
			detail = fmt.Sprintf("scenario %q failed: %s", res.Scenario.Name, res.Err)
		}
		out = append(out, Violation{
			Kind:       ViolationScenarioMismatch,
			Role:       res.Scenario.Role,
			Permission: res.Scenario.Permission,
			Detail:     detail,
		})
	}
	return out
}

func sortViolations(vs []Violation) {
	sort.Slice(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		if a.Permission != b.Permission {
			return a.Permission < b.Permission
		}
		return a.Detail < b.Detail
	})
}

// ViolationKinds lists every kind the Checker can report.
func ViolationKinds() []ViolationKind {
	return []ViolationKind{
		ViolationDanglingPermission,
		ViolationMissingPrerequisite,
		ViolationDuplicateAssignment,
		ViolationContradictoryAssignment,
		ViolationDanglingPrerequisite,
		ViolationPrerequisiteCycle,
		ViolationSeniorityInversion,
		ViolationScenarioMismatch,
	}
}
