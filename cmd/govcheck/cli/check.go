package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/buildtrust/govern/internal/rbac"
)

// ExitViolations is returned when the audit finds violations.
const ExitViolations = 10

// CheckOptions defines available flags for the check command.
type CheckOptions struct {
	PolicyFile string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// CheckSummary describes the JSON response for check.
type CheckSummary struct {
	OK            bool             `json:"ok"`
	PolicyVersion string           `json:"policy_version"`
	Fingerprint   string           `json:"fingerprint"`
	Counts        map[string]int   `json:"counts"`
	Violations    []rbac.Violation `json:"violations"`
	Roles         int              `json:"roles_checked"`
	Permissions   int              `json:"permissions_checked"`
	Scenarios     int              `json:"scenarios_checked"`
}

// CheckCommand loads a policy, runs the consistency checker and prints the
// outcome. It returns 0 when clean, ExitViolations on findings and 1 on error.
func CheckCommand(ctx context.Context, opts CheckOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if err := ctx.Err(); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "check: %v\n", err)
		return 1
	}
	policy, err := rbac.Load(opts.PolicyFile)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "check: %v\n", err)
		return 1
	}
	engine, err := policy.Build()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "check: %v\n", err)
		return 1
	}
	report := engine.Audit()
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(buildCheckSummary(engine, report)); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "check: encode json: %v\n", err)
			return 1
		}
	} else {
		renderCheckHuman(opts.Stdout, engine, report)
	}
	if !report.OK() {
		return ExitViolations
	}
	return 0
}

func buildCheckSummary(engine *rbac.Engine, report rbac.Report) CheckSummary {
	counts := make(map[string]int)
	for kind, items := range report.ByKind() {
		counts[string(kind)] = len(items)
	}
	return CheckSummary{
		OK:            report.OK(),
		PolicyVersion: engine.Version,
		Fingerprint:   engine.Fingerprint,
		Counts:        counts,
		Violations:    report.Violations,
		Roles:         report.RolesChecked,
		Permissions:   report.PermissionsChecked,
		Scenarios:     report.ScenariosChecked,
	}
}

func renderCheckHuman(out io.Writer, engine *rbac.Engine, report rbac.Report) {
	_, _ = fmt.Fprintf(out, "Governance check for policy %s (%s)\n", engine.Version, shortFingerprint(engine.Fingerprint))
	_, _ = fmt.Fprintf(out, "Checked %d role(s), %d permission(s), %d scenario(s).\n",
		report.RolesChecked, report.PermissionsChecked, report.ScenariosChecked)
	if report.OK() {
		_, _ = fmt.Fprintln(out, "No violations found.")
		return
	}
	_, _ = fmt.Fprintf(out, "%d violation(s) detected:\n", len(report.Violations))
	grouped := report.ByKind()
	kinds := make([]string, 0, len(grouped))
	for kind := range grouped {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		items := grouped[rbac.ViolationKind(kind)]
		_, _ = fmt.Fprintf(out, "%s (%d):\n", kind, len(items))
		for _, v := range items {
			_, _ = fmt.Fprintf(out, " - %s\n", v.String())
		}
	}
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
