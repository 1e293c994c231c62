package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/l3aro/asmcfg/internal/runner"
	"github.com/l3aro/asmcfg/pkg/cfg"
	"github.com/l3aro/asmcfg/pkg/codec"
)

const formatSummary = "summary"

var (
	parseOpts   parseFlags
	parseFormat string
	parseOutput string
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Build the control flow graph of an assembly file",
	Long: `Builds the control flow graph of one assembly file.

The graph is printed as a node-link JSON document unless --format says
otherwise. With -o the graph is written to a file whose extension picks the
encoding (.json, .msgpack or .mpk).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, closeParser, err := parseOpts.openParser()
		if err != nil {
			return err
		}
		defer closeParser()

		res, err := p.Parse(args[0])
		if err != nil {
			return err
		}
		for _, d := range res.Source.Diagnostics {
			logger.Warn("include not expanded", "diagnostic", d.String())
		}

		if parseOutput != "" {
			if err := codec.WriteFile(parseOutput, res.Graph); err != nil {
				return fmt.Errorf("writing graph: %w", err)
			}
			logger.Info("wrote graph", "file", parseOutput, "blocks", res.Graph.NumNodes(), "edges", res.Graph.NumEdges())
			return nil
		}

		return writeGraph(cmd.OutOrStdout(), res, parseFormat)
	},
}

func writeGraph(w io.Writer, res *runner.Result, format string) error {
	if format == formatSummary {
		printSummary(w, res)
		return nil
	}
	f, err := codec.ParseFormat(format)
	if err != nil {
		return err
	}
	if f == codec.FormatMsgpack {
		if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			return fmt.Errorf("refusing to write msgpack to a terminal, use -o")
		}
	}
	return codec.Encode(w, res.Graph, f)
}

func printSummary(w io.Writer, res *runner.Result) {
	g := res.Graph
	fmt.Fprintf(w, "File: %s\n", res.Path)
	if src := res.Source; src != nil {
		fmt.Fprintf(w, "Architecture: %s\n", src.Arch)
		enc := string(src.Encoding)
		if src.Lossy {
			enc += " (lossy)"
		}
		fmt.Fprintf(w, "Encoding: %s\n", enc)
		if len(src.Diagnostics) > 0 {
			fmt.Fprintf(w, "Include diagnostics: %d\n", len(src.Diagnostics))
		}
	}
	fmt.Fprintf(w, "Blocks: %d, Edges: %d\n\n", g.NumNodes(), g.NumEdges())

	for _, b := range g.Nodes() {
		fmt.Fprintf(w, "%s [%d-%d] %d lines\n", b.ID, b.StartLine, b.EndLine, len(b.Lines))
		if preds := g.Predecessors(b.ID); len(preds) > 0 {
			fmt.Fprintf(w, "  <- %s\n", strings.Join(preds, ", "))
		}
		for _, succ := range g.Successors(b.ID) {
			e, _ := g.Edge(b.ID, succ)
			fmt.Fprintf(w, "  -> %s (%s)\n", succ, edgeLabel(e))
		}
	}
}

func edgeLabel(e cfg.Edge) string {
	if e.Type == "" {
		return "untyped"
	}
	return string(e.Type)
}

func init() {
	parseOpts.register(parseCmd)
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "json", "Output format: json, msgpack or summary")
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "", "Write the graph to this file instead of stdout")
}
