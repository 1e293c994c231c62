// Package arch holds the per-architecture jump vocabularies and the
// substring heuristic that guesses an architecture from source text.
package arch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Arch is an instruction-set tag.
type Arch string

const (
	X86_64 Arch = "x86_64"
	ARM64  Arch = "arm64"
)

// Default is used when detection is inconclusive or no architecture is given.
const Default = X86_64

// ErrUnknownArch is returned by Parse for unsupported names.
var ErrUnknownArch = errors.New("unknown architecture")

// All returns the supported architectures in a stable order.
func All() []Arch {
	return []Arch{X86_64, ARM64}
}

// Parse resolves an architecture name or alias.
func Parse(name string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "x86_64", "x86-64", "amd64", "x64", "x86", "i386":
		return X86_64, nil
	case "arm64", "aarch64", "arm":
		return ARM64, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownArch, name)
	}
}

// indicators are substrings whose presence hints at an architecture.
// Policy lives here as data; Scores and Detect only count.
var indicators = map[Arch][]string{
	ARM64:  {"adrp", "stp", "ldp", "b.eq", "b.ne", "cbz", "cbnz"},
	X86_64: {"mov\t", "push", "pop", "rax", "rbx", "rcx", "rdx", "rsp", "rbp"},
}

// Indicators returns a copy of the indicator list for a.
func Indicators(a Arch) []string {
	src := indicators[a]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Scores returns, for each architecture, how many of its indicators occur
// in text (case-insensitive). Each indicator counts at most once.
func Scores(text string) map[Arch]int {
	lower := strings.ToLower(text)
	scores := make(map[Arch]int, len(indicators))
	for a, inds := range indicators {
		n := 0
		for _, ind := range inds {
			if strings.Contains(lower, ind) {
				n++
			}
		}
		scores[a] = n
	}
	return scores
}

// Detect returns the architecture with the strictly highest score. Ties,
// including all-zero scores, resolve to Default.
func Detect(text string) Arch {
	return pick(Scores(text))
}

func pick(scores map[Arch]int) Arch {
	archs := make([]Arch, 0, len(scores))
	for a := range scores {
		archs = append(archs, a)
	}
	sort.Slice(archs, func(i, j int) bool { return archs[i] < archs[j] })

	best := Default
	bestScore := scores[Default]
	tied := false
	for _, a := range archs {
		if a == Default {
			continue
		}
		switch s := scores[a]; {
		case s > bestScore:
			best, bestScore, tied = a, s, false
		case s == bestScore:
			tied = true
		}
	}
	if tied {
		return Default
	}
	return best
}
