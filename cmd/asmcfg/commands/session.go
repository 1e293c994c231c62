package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/asmcfg/internal/config"
	"github.com/l3aro/asmcfg/internal/runner"
	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/cache"
	"github.com/l3aro/asmcfg/pkg/cfg"
)

// parseFlags are the graph build flags shared by commands that read
// assembly. Unset flags fall back to the loaded config.
type parseFlags struct {
	arch       string
	autoDetect bool
	includes   string
	includeDir string
	noCache    bool
}

func (f *parseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.arch, "arch", "", "Architecture: auto, x86_64 or arm64 (default from config)")
	cmd.Flags().BoolVar(&f.autoDetect, "auto-detect", false, "Detect the architecture from the source")
	cmd.Flags().StringVar(&f.includes, "includes", "", "Include expansion: auto, always or never (default from config)")
	cmd.Flags().StringVar(&f.includeDir, "include-dir", "", "Directory include names are resolved against (default: the file's directory)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Do not read or update the graph cache")
}

func (f *parseFlags) options() (cfg.Options, error) {
	opts, err := appConfig.ParseOptions(logger)
	if err != nil {
		return cfg.Options{}, err
	}

	switch {
	case f.autoDetect, strings.EqualFold(f.arch, config.ArchAuto):
		opts.AutoDetect = true
	case f.arch != "":
		a, err := arch.Parse(f.arch)
		if err != nil {
			return cfg.Options{}, err
		}
		opts.Arch = a
		opts.AutoDetect = false
	}

	if f.includes != "" {
		mode, err := cfg.ParseIncludeMode(f.includes)
		if err != nil {
			return cfg.Options{}, err
		}
		opts.IncludeMode = mode
	}
	if f.includeDir != "" {
		opts.IncludeDir = f.includeDir
	}
	return opts, nil
}

// openParser returns a parser backed by the persistent graph cache. The
// returned close function saves the cache if it changed.
func (f *parseFlags) openParser() (*runner.Parser, func(), error) {
	opts, err := f.options()
	if err != nil {
		return nil, nil, err
	}
	p := &runner.Parser{Options: opts}

	if f.noCache || !appConfig.CacheEnabled {
		return p, func() {}, nil
	}

	gc, err := cache.New(cache.Options{MaxSize: appConfig.CacheSize})
	if err != nil {
		return nil, nil, fmt.Errorf("creating graph cache: %w", err)
	}
	if err := gc.LoadFile(appConfig.CacheFile); err != nil {
		// An unreadable cache starts empty and is overwritten on save.
		logger.Warn("ignoring unreadable graph cache", "file", appConfig.CacheFile, "error", err)
		gc.Clear()
	}
	p.Cache = gc

	closeFn := func() {
		if !p.Dirty() {
			return
		}
		if err := gc.SaveFile(appConfig.CacheFile); err != nil {
			logger.Warn("failed to save graph cache", "file", appConfig.CacheFile, "error", err)
			return
		}
		logger.Debug("saved graph cache", "file", appConfig.CacheFile, "graphs", gc.Len())
	}
	return p, closeFn, nil
}
