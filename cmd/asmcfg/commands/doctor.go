package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/asmcfg/internal/config"
	"github.com/l3aro/asmcfg/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration and the graph cache",
	Long: `Checks that the configuration resolves to valid parse settings and that the
persisted graph cache can be loaded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := healthcheck.Check(appConfig, effectiveConfigPath(), effectiveConfigPath())
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(cmd.OutOrStdout(), result)

		if result.HasError() {
			return fmt.Errorf("health check failed: one or more components are not usable")
		}
		return nil
	},
}

// effectiveConfigPath returns the config file in use, or "" when only
// defaults and environment variables apply.
func effectiveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	// Project config is applied after global config and wins.
	for _, p := range []string{config.ProjectConfigPath(), config.GlobalConfigPath()} {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func displayDoctorResult(w io.Writer, result *healthcheck.HealthCheckResult) {
	if result.EffectivePath == "" {
		fmt.Fprintln(w, "Using config: defaults (run 'asmcfg init' to create a config file)")
	} else {
		fmt.Fprintf(w, "Using config: %s (%s)\n", result.EffectivePath, result.EffectiveScope)
	}

	for _, c := range []healthcheck.ComponentStatus{result.Parser, result.Cache} {
		fmt.Fprintf(w, "\n%s:\n", c.Name)
		if c.Detail != "" {
			fmt.Fprintf(w, "  %s\n", c.Detail)
		}
		printComponentStatus(w, c.Status, c.Error)
	}
}

func printComponentStatus(w io.Writer, status string, errMsg string) {
	fmt.Fprintf(w, "  Status: %s %s\n", formatStatusIcon(status), status)
	if errMsg != "" && status == healthcheck.StatusError {
		fmt.Fprintf(w, "  Error: %s\n", errMsg)
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case healthcheck.StatusReady:
		return "✓"
	case healthcheck.StatusEmpty:
		return "◐"
	case healthcheck.StatusDisabled:
		return "-"
	case healthcheck.StatusError:
		return "✗"
	default:
		return "?"
	}
}
