package healthcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/asmcfg/internal/config"
	"github.com/l3aro/asmcfg/internal/log"
	"github.com/l3aro/asmcfg/pkg/cache"
)

// Status values reported by checks.
const (
	StatusReady    = "ready"
	StatusEmpty    = "empty"
	StatusDisabled = "disabled"
	StatusError    = "error"
)

// ComponentStatus represents the health of one configured component.
type ComponentStatus struct {
	Name   string
	Detail string
	Status string // "ready", "empty", "disabled" or "error"
	Error  string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	SavedPath      string
	SavedScope     string // "global" or "project"
	EffectivePath  string
	EffectiveScope string // "global" or "project"
	Parser         ComponentStatus
	Cache          ComponentStatus
}

// HasError reports whether any component failed its check.
func (r *HealthCheckResult) HasError() bool {
	return r.Parser.Status == StatusError || r.Cache.Status == StatusError
}

// Check performs a health check against the given config.
// savedPath is where the user saved config (may be empty outside init).
// effectivePath is the config file actually in use (considering priority).
func Check(cfg *config.Config, savedPath string, effectivePath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &HealthCheckResult{
		SavedPath:      savedPath,
		SavedScope:     scopeFromPath(savedPath),
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
		Parser:         checkParser(cfg),
		Cache:          checkCache(cfg),
	}, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	globalDir := config.GlobalDir()
	if abs, err := filepath.Abs(path); err == nil {
		if rel, err := filepath.Rel(globalDir, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return "global"
		}
	}

	return "project"
}

// checkParser verifies that the parse settings resolve to build options.
func checkParser(cfg *config.Config) ComponentStatus {
	status := ComponentStatus{Name: "parser"}

	opts, err := cfg.ParseOptions(log.Nop())
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}

	archDesc := string(opts.Arch)
	if opts.AutoDetect {
		archDesc = "auto-detect"
	}
	encs := make([]string, len(opts.Encodings))
	for i, e := range opts.Encodings {
		encs[i] = string(e)
	}
	status.Detail = fmt.Sprintf("arch %s, includes %s (depth %d), encodings %s",
		archDesc, opts.IncludeMode, opts.MaxIncludeDepth, strings.Join(encs, ","))
	status.Status = StatusReady
	return status
}

// checkCache loads the persisted graph cache without modifying it.
func checkCache(cfg *config.Config) ComponentStatus {
	status := ComponentStatus{Name: "cache", Detail: cfg.CacheFile}

	if !cfg.CacheEnabled {
		status.Status = StatusDisabled
		return status
	}

	if _, err := os.Stat(cfg.CacheFile); os.IsNotExist(err) {
		status.Status = StatusEmpty
		return status
	}

	c, err := cache.New(cache.Options{MaxSize: cfg.CacheSize})
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}
	if err := c.LoadFile(cfg.CacheFile); err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}

	status.Status = StatusReady
	status.Detail = fmt.Sprintf("%s (%d graphs)", cfg.CacheFile, c.Len())
	return status
}
