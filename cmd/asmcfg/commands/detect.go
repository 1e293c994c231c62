package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/cfg"
)

var (
	detectOpts parseFlags
	detectJSON bool
)

type detectResult struct {
	File     string         `json:"file"`
	Arch     arch.Arch      `json:"arch"`
	Scores   map[string]int `json:"scores"`
	Encoding string         `json:"encoding"`
	Expanded bool           `json:"expanded"`
}

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Report the detected architecture of an assembly file",
	Long: `Counts the architecture indicators present in a file, after include
expansion, and reports the architecture the graph builder would pick.
Ties go to x86_64.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := detectOpts.options()
		if err != nil {
			return err
		}
		opts.AutoDetect = true

		src, err := cfg.Prepare(args[0], opts)
		if err != nil {
			return err
		}

		res := detectResult{
			File:     args[0],
			Arch:     src.Arch,
			Scores:   make(map[string]int),
			Encoding: string(src.Encoding),
			Expanded: src.Expanded,
		}
		scores := arch.Scores(src.Text)
		for _, a := range arch.All() {
			res.Scores[string(a)] = scores[a]
		}

		w := cmd.OutOrStdout()
		if detectJSON {
			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(data))
			return nil
		}

		fmt.Fprintf(w, "%s: %s\n", res.File, res.Arch)
		for _, a := range arch.All() {
			fmt.Fprintf(w, "  %-7s %d/%d indicators\n", a, scores[a], len(arch.Indicators(a)))
		}
		return nil
	},
}

func init() {
	detectOpts.register(detectCmd)
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "Output as JSON")
}
