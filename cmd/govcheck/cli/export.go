package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/buildtrust/govern/internal/rbac"
)

// ExportOptions defines available flags for the export command.
type ExportOptions struct {
	PolicyFile string
	Stdout     io.Writer
	Stderr     io.Writer
}

// ExportCommand prints the policy as YAML. With no policy file it prints the
// built-in tables, which is the usual starting point for a custom policy.
func ExportCommand(opts ExportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	policy, err := rbac.Load(opts.PolicyFile)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return 1
	}
	raw, err := rbac.EncodePolicy(policy)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return 1
	}
	if _, err := opts.Stdout.Write(raw); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return 1
	}
	return 0
}
