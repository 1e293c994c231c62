package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/asmcfg/internal/log"
	"github.com/l3aro/asmcfg/internal/runner"
	"github.com/l3aro/asmcfg/internal/scanner"
	"github.com/l3aro/asmcfg/pkg/codec"
	"github.com/l3aro/asmcfg/pkg/dirty"
)

var (
	batchOpts    parseFlags
	batchWorkers int
	batchOutDir  string
	batchFormat  string
	batchChanged bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [directory]",
	Short: "Build graphs for every assembly file under a directory",
	Long: `Scans a directory for assembly sources (.asm, .s, .S) and builds their
graphs concurrently. Hidden files, common build directories and paths listed
in .asmcfgignore files are skipped.

With --out-dir every graph is written next to its relative path with the
extension of --format appended. Adding --changed skips files whose content
is unchanged since their graph was last written there.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		ext := "." + strings.ToLower(batchFormat)
		if _, err := codec.FormatForPath(ext); err != nil {
			return err
		}

		if batchChanged && batchOutDir == "" {
			return fmt.Errorf("--changed requires --out-dir")
		}

		files, err := scanner.ScanAssembly(root)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", root, err)
		}
		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No assembly files found.")
			return nil
		}

		var (
			tracker *dirty.Tracker
			hashes  map[string]string
		)
		if batchChanged {
			tracker, err = dirty.Open(filepath.Join(batchOutDir, dirty.DefaultManifestName))
			if err != nil {
				return err
			}
			var skipped int
			files, hashes, skipped, err = changedFiles(tracker, files, ext)
			if err != nil {
				return err
			}
			defer func() {
				if err := tracker.Save(); err != nil {
					logger.Warn("failed to save batch manifest", "error", err)
				}
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "%d unchanged files skipped\n", skipped)
			if len(files) == 0 {
				return nil
			}
		}

		p, closeParser, err := batchOpts.openParser()
		if err != nil {
			return err
		}
		defer closeParser()

		workers := batchWorkers
		if workers <= 0 {
			workers = appConfig.Workers
		}
		logger.Debug("starting batch", "root", root, "files", len(files), "workers", workers)

		spinner := log.NewProgressSpinner("Building graphs", len(files))
		spinner.Start()
		items, err := p.Batch(cmd.Context(), files, runner.BatchOptions{
			Workers: workers,
			OnDone:  func(runner.Item) { spinner.Increment() },
		})
		spinner.Stop()
		if err != nil {
			return err
		}

		failed := 0
		for i := range items {
			it := &items[i]
			if it.Err != nil {
				failed++
				logger.Error("failed to build graph", "file", it.File.Path, "error", it.Err)
				continue
			}
			if batchOutDir == "" {
				continue
			}
			out := batchOutput(it.File, ext)
			if err := codec.WriteFile(out, it.Result.Graph); err != nil {
				failed++
				it.Err = err
				logger.Error("failed to write graph", "file", out, "error", err)
				continue
			}
			if tracker != nil {
				tracker.Record(it.File.Path, hashes[it.File.Path], out)
			}
		}

		printBatchTable(cmd, items)

		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(items))
		}
		return nil
	},
}

func batchOutput(f scanner.FileInfo, ext string) string {
	return filepath.Join(batchOutDir, filepath.FromSlash(f.Path)+ext)
}

// changedFiles drops files the tracker says are unchanged and forgets
// manifest entries for files that no longer exist.
func changedFiles(tracker *dirty.Tracker, files []scanner.FileInfo, ext string) ([]scanner.FileInfo, map[string]string, int, error) {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	for _, p := range tracker.Prune(paths) {
		logger.Debug("forgetting removed file", "file", p)
	}

	var (
		changed []scanner.FileInfo
		hashes  = make(map[string]string)
		skipped int
	)
	for _, f := range files {
		isChanged, hash, err := tracker.Check(f.Path, f.FullPath, batchOutput(f, ext))
		if err != nil {
			return nil, nil, 0, err
		}
		if !isChanged {
			skipped++
			continue
		}
		hashes[f.Path] = hash
		changed = append(changed, f)
	}
	return changed, hashes, skipped, nil
}

func printBatchTable(cmd *cobra.Command, items []runner.Item) {
	w := cmd.OutOrStdout()
	width := len("FILE")
	for _, it := range items {
		if n := len(it.File.Path); n > width {
			width = n
		}
	}

	fmt.Fprintf(w, "%-*s  %-7s  %6s  %6s  %s\n", width, "FILE", "ARCH", "BLOCKS", "EDGES", "STATUS")
	var blocks, edges, cached int
	for _, it := range items {
		if it.Err != nil {
			fmt.Fprintf(w, "%-*s  %-7s  %6s  %6s  %s\n", width, it.File.Path, "-", "-", "-", "error")
			continue
		}
		g := it.Result.Graph
		status := "built"
		if it.Result.Cached {
			status = "cached"
			cached++
		}
		if len(it.Result.Source.Diagnostics) > 0 {
			status += fmt.Sprintf(", %d include diagnostics", len(it.Result.Source.Diagnostics))
		}
		blocks += g.NumNodes()
		edges += g.NumEdges()
		fmt.Fprintf(w, "%-*s  %-7s  %6d  %6d  %s\n", width, it.File.Path, it.Result.Source.Arch, g.NumNodes(), g.NumEdges(), status)
	}
	fmt.Fprintf(w, "\n%d files, %d blocks, %d edges (%d from cache)\n", len(items), blocks, edges, cached)
}

func init() {
	batchOpts.register(batchCmd)
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Concurrent parses (default from config)")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "Write each graph under this directory")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "Graph file format for --out-dir: json or msgpack")
	batchCmd.Flags().BoolVar(&batchChanged, "changed", false, "Only rebuild files changed since the last run into --out-dir")
}
