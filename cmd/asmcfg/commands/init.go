package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/asmcfg/internal/config"
	"github.com/l3aro/asmcfg/internal/healthcheck"
	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/cfg"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize asmcfg configuration interactively",
	Long: `Guides you through setting up asmcfg configuration step by step.
Creates a config file with architecture, include expansion and cache settings.`,
	Args: cobra.NoArgs,
	// Skips loading the current config, which may be invalid.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	c := config.DefaultConfig()

	// === SECTION 1: Parsing ===
	archOptions := []huh.Option[string]{huh.NewOption("Detect from source", config.ArchAuto)}
	for _, a := range arch.All() {
		archOptions = append(archOptions, huh.NewOption(string(a), string(a)))
	}

	includeMode := c.IncludeMode
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Architecture").
				Description("Jump vocabulary used to classify block terminators").
				Options(archOptions...).
				Value(&c.Arch),
			huh.NewSelect[string]().
				Title("Include expansion").
				Description("When to expand include directives").
				Options(
					huh.NewOption("MASM sources only (.asm)", string(cfg.IncludeAuto)),
					huh.NewOption("Every file", string(cfg.IncludeAlways)),
					huh.NewOption("Never", string(cfg.IncludeNever)),
				).
				Value(&includeMode),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	c.IncludeMode = includeMode

	// === SECTION 2: Cache ===
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Graph cache").
				Description("Reuse graphs of unchanged sources between runs?").
				Affirmative("Yes").
				Negative("No").
				Value(&c.CacheEnabled),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	if c.CacheEnabled {
		cacheSize := strconv.Itoa(c.CacheSize)
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Cache file").
					Placeholder(c.CacheFile).
					Value(&c.CacheFile),
				huh.NewInput().
					Title("Maximum cached graphs").
					Placeholder(cacheSize).
					Value(&cacheSize).
					Validate(func(s string) error {
						n, err := strconv.Atoi(s)
						if err != nil || n <= 0 {
							return fmt.Errorf("enter a positive number")
						}
						return nil
					}),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		c.CacheSize, _ = strconv.Atoi(cacheSize)
	}

	// === SECTION 3: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.asmcfg/config.yaml)", "global"),
					huh.NewOption("Project (./.asmcfg/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectConfigPath()
	if saveLocationChoice == "global" {
		configPath = config.GlobalConfigPath()
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Architecture: %s\n", c.Arch)
	fmt.Printf("Include expansion: %s\n", c.IncludeMode)
	if c.CacheEnabled {
		fmt.Printf("Cache: %s (up to %d graphs)\n", c.CacheFile, c.CacheSize)
	} else {
		fmt.Println("Cache: disabled")
	}
	fmt.Println("================================")

	if err := c.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)

	// === SECTION 4: Health Check ===
	fmt.Println("\n=== Running Health Check ===")

	loadedCfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}

	result, err := healthcheck.Check(loadedCfg, configPath, configPath)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Printf("\nConfig Scope: %s\n", result.SavedScope)
	if result.SavedScope == "global" {
		fmt.Printf("Config Path: %s\n", configPath)
	} else {
		absPath, _ := filepath.Abs(configPath)
		fmt.Printf("Config Path: %s\n", absPath)
	}
	displayDoctorResult(os.Stdout, result)

	return nil
}
