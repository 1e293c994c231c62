package arch

import (
	"errors"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Arch
	}{
		{
			name: "empty text uses default",
			text: "",
			want: X86_64,
		},
		{
			name: "x86 registers",
			text: "push rbp\nmov rbp, rsp\npop rbp\nret\n",
			want: X86_64,
		},
		{
			name: "arm64 prologue",
			text: "stp x29, x30, [sp, #-16]!\nadrp x0, msg\nldp x29, x30, [sp], #16\ncbz x0, .L1\n",
			want: ARM64,
		},
		{
			name: "indicators are case-insensitive",
			text: "ADRP X0, msg\nSTP X29, X30, [SP]\n",
			want: ARM64,
		},
		{
			name: "tie resolves to default",
			text: "adrp x0, sym\npush 1\n",
			want: X86_64,
		},
		{
			name: "repeated indicator counts once",
			text: "cbz x0, a\ncbz x1, b\ncbz x2, c\npush rax\n",
			want: X86_64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect() = %s, want %s (scores %v)", got, tt.want, Scores(tt.text))
			}
		})
	}
}

func TestScores(t *testing.T) {
	scores := Scores("push rbp\nmov\trbp, rsp\n")
	if scores[X86_64] != 4 {
		t.Errorf("x86_64 score = %d, want 4", scores[X86_64])
	}
	if scores[ARM64] != 0 {
		t.Errorf("arm64 score = %d, want 0", scores[ARM64])
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Arch
		wantErr bool
	}{
		{"x86_64", X86_64, false},
		{"AMD64", X86_64, false},
		{"aarch64", ARM64, false},
		{" arm64 ", ARM64, false},
		{"mips", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if err != nil && !errors.Is(err, ErrUnknownArch) {
				t.Errorf("Parse(%q) error should wrap ErrUnknownArch", tt.in)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestVocabularyClassify(t *testing.T) {
	x86 := VocabularyFor(X86_64)
	arm := VocabularyFor(ARM64)

	tests := []struct {
		vocab    Vocabulary
		mnemonic string
		want     Kind
	}{
		{x86, "jmp", KindJump},
		{x86, "ret", KindReturn},
		{x86, "retn", KindReturn},
		{x86, "je", KindBranch},
		{x86, "loop", KindBranch},
		{x86, "call", KindCall},
		{x86, "mov", KindNone},
		{x86, "b", KindNone},
		{arm, "b", KindJump},
		{arm, "br", KindJump},
		{arm, "ret", KindReturn},
		{arm, "b.eq", KindBranch},
		{arm, "cbnz", KindBranch},
		{arm, "bl", KindCall},
		{arm, "jmp", KindNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.vocab.Arch)+"/"+tt.mnemonic, func(t *testing.T) {
			if got := tt.vocab.Classify(tt.mnemonic); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.mnemonic, got, tt.want)
			}
		})
	}
}

func TestVocabularySetsDisjoint(t *testing.T) {
	for _, a := range All() {
		v := VocabularyFor(a)
		seen := map[string]string{}
		groups := map[string][]string{
			"unconditional": v.Unconditional(),
			"conditional":   v.Conditional(),
			"call":          v.Calls(),
		}
		for group, words := range groups {
			for _, w := range words {
				if prev, ok := seen[w]; ok {
					t.Errorf("%s: %q in both %s and %s", a, w, prev, group)
				}
				seen[w] = group
			}
		}
		for _, r := range v.Returns() {
			if seen[r] != "unconditional" {
				t.Errorf("%s: return %q not in unconditional set", a, r)
			}
		}
	}
}

func TestVocabularyForUnknownFallsBack(t *testing.T) {
	v := VocabularyFor("z80")
	if v.Arch != Default {
		t.Errorf("VocabularyFor(z80).Arch = %s, want %s", v.Arch, Default)
	}
}
