package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/asmcfg/pkg/codec"
)

var convertOpts parseFlags

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert a graph file between JSON and msgpack",
	Long: `Reads a graph and writes it to output, choosing each encoding by file
extension (.json, .msgpack or .mpk). An assembly input is parsed first.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out := args[0], args[1]
		if _, err := codec.FormatForPath(out); err != nil {
			return err
		}

		p, closeParser, err := convertOpts.openParser()
		if err != nil {
			return err
		}
		defer closeParser()

		res, err := p.Load(in)
		if err != nil {
			return err
		}
		if err := codec.WriteFile(out, res.Graph); err != nil {
			return fmt.Errorf("writing graph: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d blocks, %d edges)\n", out, res.Graph.NumNodes(), res.Graph.NumEdges())
		return nil
	},
}

func init() {
	convertOpts.register(convertCmd)
}
