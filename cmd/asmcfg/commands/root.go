package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/asmcfg/internal/config"
	"github.com/l3aro/asmcfg/internal/log"
)

var (
	configPath string
	verbose    bool
	jsonLogs   bool

	// Set by PersistentPreRunE for every subcommand.
	appConfig *config.Config
	logger    log.Logger = log.Nop()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "asmcfg",
	Short: "asmcfg - Control flow graphs from assembly source",
	Long: `asmcfg builds control flow graphs from assembly listings without assembling them.

Commands:
  parse       Build the graph of one assembly file
  batch       Build graphs for every assembly file under a directory
  detect      Report the detected architecture of a file
  convert     Convert a graph file between JSON and msgpack
  compare     Compare two graphs and optionally write their union
  find        Find instructions matching a regex and report their blocks
  init        Create a configuration file interactively
  doctor      Check configuration and cache health

Use "asmcfg [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if verbose {
			c.Verbose = true
		}
		if jsonLogs {
			c.JSONLogs = true
		}
		appConfig = c
		logger = log.New(log.LoggerConfig{
			Level:      c.Level(),
			JSONOutput: c.JSONLogs,
			Output:     os.Stderr,
		})
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: project then global config)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")

	RootCmd.AddCommand(parseCmd)
	RootCmd.AddCommand(batchCmd)
	RootCmd.AddCommand(detectCmd)
	RootCmd.AddCommand(convertCmd)
	RootCmd.AddCommand(compareCmd)
	RootCmd.AddCommand(findCmd)
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(doctorCmd)
}
