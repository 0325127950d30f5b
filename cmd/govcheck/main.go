// Command govcheck audits governance policies and manages audit jobs.
//
// Usage:
//
//	govcheck check [--policy file] [--json]
//	govcheck export [--policy file]
//	govcheck audit enqueue [--redis addr]
//	govcheck audit queue [--redis addr]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/buildtrust/govern/cmd/govcheck/cli"
)

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var (
	policyFile string
	jsonOutput bool
	redisAddr  string
)

var rootCmd = &cobra.Command{
	Use:           "govcheck",
	Short:         "Audit role-based access governance policies",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the governance consistency checker",
	Long: `Loads the policy (the built-in tables when --policy is empty), runs the
consistency checker and the deployment scenarios, and exits 10 when any
violation is found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		code := cli.CheckCommand(cmd.Context(), cli.CheckOptions{
			PolicyFile: policyFile,
			JSONOutput: jsonOutput,
			Stdout:     cmd.OutOrStdout(),
			Stderr:     cmd.ErrOrStderr(),
		})
		if code != 0 {
			return exitError{code: code}
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the policy as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		code := cli.ExportCommand(cli.ExportOptions{
			PolicyFile: policyFile,
			Stdout:     cmd.OutOrStdout(),
			Stderr:     cmd.ErrOrStderr(),
		})
		if code != 0 {
			return exitError{code: code}
		}
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Manage the scheduled governance audit",
}

var auditEnqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Enqueue an on-demand governance audit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobsCLI, err := cli.NewJobsCLI(redisAddr)
		if err != nil {
			return err
		}
		defer jobsCLI.Close()
		info, err := jobsCLI.TriggerAudit(cmd.Context(), uuid.NewString())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s) on queue %s\n", info.ID, info.Type, info.Queue)
		return nil
	},
}

var auditQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show queue statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobsCLI, err := cli.NewJobsCLI(redisAddr)
		if err != nil {
			return err
		}
		defer jobsCLI.Close()
		stats, err := jobsCLI.InspectQueue(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", os.Getenv("POLICY_FILE"), "policy YAML file (built-in tables when empty)")
	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	auditCmd.PersistentFlags().StringVar(&redisAddr, "redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address")

	auditCmd.AddCommand(auditEnqueueCmd, auditQueueCmd)
	rootCmd.AddCommand(checkCmd, exportCmd, auditCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if exit, ok := err.(exitError); ok {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
