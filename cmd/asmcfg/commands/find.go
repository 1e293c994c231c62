package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/asmcfg/internal/log"
	"github.com/l3aro/asmcfg/internal/runner"
	"github.com/l3aro/asmcfg/internal/scanner"
	"github.com/l3aro/asmcfg/pkg/search"
)

var (
	findOpts          parseFlags
	findJSON          bool
	findCaseSensitive bool
	findMaxResults    int
)

type fileMatch struct {
	File string `json:"file"`
	search.Match
}

var findCmd = &cobra.Command{
	Use:   "find <pattern> [path]",
	Short: "Find instructions matching a regex and report their blocks",
	Long: `Searches assembly files, or a single graph file, for lines matching a regular
expression. Each match is reported with the block it belongs to and that
block's successors. Matching is case-insensitive unless --case-sensitive.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 1 {
			root = args[1]
		}

		s, err := search.New(args[0], search.Options{
			CaseSensitive: findCaseSensitive,
			MaxResults:    findMaxResults,
		})
		if err != nil {
			return err
		}

		p, closeParser, err := findOpts.openParser()
		if err != nil {
			return err
		}
		defer closeParser()

		results, err := loadFindTargets(cmd, p, root)
		if err != nil {
			return err
		}

		var matches []fileMatch
		for _, res := range results {
			var lines []string
			if res.Source != nil {
				lines = strings.Split(res.Source.Text, "\n")
			}
			for _, m := range s.Graph(res.Graph, lines) {
				matches = append(matches, fileMatch{File: res.Path, Match: m})
			}
		}

		w := cmd.OutOrStdout()
		if findJSON {
			if matches == nil {
				matches = []fileMatch{}
			}
			data, err := json.MarshalIndent(matches, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(data))
			return nil
		}

		for _, m := range matches {
			loc := m.File
			if m.Line >= 0 {
				loc = fmt.Sprintf("%s:%d", m.File, m.Line+1)
			}
			fmt.Fprintf(w, "%s [%s] %s", loc, m.Block, m.Text)
			if len(m.Successors) > 0 {
				fmt.Fprintf(w, "  -> %s", strings.Join(m.Successors, ", "))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "\n%d matches in %d files\n", len(matches), len(results))
		return nil
	},
}

// loadFindTargets loads root as one file, or every assembly file below it.
// Files that fail to parse are logged and skipped.
func loadFindTargets(cmd *cobra.Command, p *runner.Parser, root string) ([]*runner.Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		res, err := p.Load(root)
		if err != nil {
			return nil, err
		}
		return []*runner.Result{res}, nil
	}

	files, err := scanner.ScanAssembly(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	spinner := log.NewProgressSpinner("Parsing", len(files))
	spinner.Start()
	items, err := p.Batch(cmd.Context(), files, runner.BatchOptions{
		Workers: appConfig.Workers,
		OnDone:  func(runner.Item) { spinner.Increment() },
	})
	spinner.Stop()
	if err != nil {
		return nil, err
	}

	results := make([]*runner.Result, 0, len(items))
	for _, it := range items {
		if it.Err != nil {
			logger.Warn("skipping file", "file", it.File.Path, "error", it.Err)
			continue
		}
		results = append(results, it.Result)
	}
	return results, nil
}

func init() {
	findOpts.register(findCmd)
	findCmd.Flags().BoolVar(&findJSON, "json", false, "Output as JSON")
	findCmd.Flags().BoolVar(&findCaseSensitive, "case-sensitive", false, "Match case")
	findCmd.Flags().IntVar(&findMaxResults, "max-results", 0, "Maximum matches per file (0 for no limit)")
}
