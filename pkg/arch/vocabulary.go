package arch

import (
	"sort"
	"strings"
)

// Kind classifies a mnemonic's effect on control flow.
type Kind int

const (
	KindNone   Kind = iota // not a control transfer
	KindJump               // unconditional jump to an operand
	KindReturn             // unconditional transfer out of the routine
	KindBranch             // conditional jump
	KindCall               // call that returns to the next instruction
)

func (k Kind) String() string {
	switch k {
	case KindJump:
		return "jump"
	case KindReturn:
		return "return"
	case KindBranch:
		return "branch"
	case KindCall:
		return "call"
	default:
		return "none"
	}
}

type set map[string]struct{}

func newSet(words ...string) set {
	s := make(set, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func (s set) has(w string) bool {
	_, ok := s[w]
	return ok
}

// Vocabulary is the jump vocabulary of one architecture. Unconditional
// includes the return forms listed in Returns.
type Vocabulary struct {
	Arch          Arch
	unconditional set
	returns       set
	conditional   set
	call          set
	prefixes      set
}

// Classify returns the kind of a lower-case mnemonic.
func (v Vocabulary) Classify(mnemonic string) Kind {
	switch {
	case v.call.has(mnemonic):
		return KindCall
	case v.returns.has(mnemonic):
		return KindReturn
	case v.unconditional.has(mnemonic):
		return KindJump
	case v.conditional.has(mnemonic):
		return KindBranch
	default:
		return KindNone
	}
}

// IsPrefix reports whether word is an instruction prefix that precedes the
// real mnemonic (for example "rep" in "rep ret").
func (v Vocabulary) IsPrefix(word string) bool {
	return v.prefixes.has(word)
}

// Unconditional returns the sorted unconditional mnemonics, returns included.
func (v Vocabulary) Unconditional() []string { return sorted(v.unconditional) }

// Returns returns the sorted return mnemonics.
func (v Vocabulary) Returns() []string { return sorted(v.returns) }

// Conditional returns the sorted conditional mnemonics.
func (v Vocabulary) Conditional() []string { return sorted(v.conditional) }

// Calls returns the sorted call mnemonics.
func (v Vocabulary) Calls() []string { return sorted(v.call) }

func sorted(s set) []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

var x86Returns = []string{"ret", "retn", "retf", "iret", "iretd", "iretq"}

var arm64Conds = []string{
	"eq", "ne", "cs", "hs", "cc", "lo", "mi", "pl",
	"vs", "vc", "hi", "ls", "ge", "lt", "gt", "le",
}

var vocabularies = map[Arch]Vocabulary{
	X86_64: {
		Arch:          X86_64,
		unconditional: newSet(append([]string{"jmp"}, x86Returns...)...),
		returns:       newSet(x86Returns...),
		conditional: newSet(
			"je", "jne", "jz", "jnz", "jg", "jge", "jl", "jle",
			"ja", "jae", "jb", "jbe", "jo", "jno", "js", "jns",
			"jp", "jpe", "jnp", "jpo", "jc", "jnc",
			"jna", "jnae", "jnb", "jnbe", "jng", "jnge", "jnl", "jnle",
			"jcxz", "jecxz", "jrcxz",
			"loop", "loope", "loopne", "loopz", "loopnz",
		),
		call:     newSet("call"),
		prefixes: newSet("rep", "repe", "repz", "repne", "repnz", "lock", "bnd", "notrack"),
	},
	ARM64: {
		Arch:          ARM64,
		unconditional: newSet("b", "br", "ret"),
		returns:       newSet("ret"),
		conditional:   newSet(append(prefixed("b.", arm64Conds), "cbz", "cbnz", "tbz", "tbnz")...),
		call:          newSet("bl", "blr"),
		prefixes:      newSet(),
	},
}

func prefixed(prefix string, words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = prefix + w
	}
	return out
}

// VocabularyFor returns the jump vocabulary of a. Unknown tags get the
// vocabulary of Default.
func VocabularyFor(a Arch) Vocabulary {
	if v, ok := vocabularies[Arch(strings.ToLower(string(a)))]; ok {
		return v
	}
	return vocabularies[Default]
}
