package prompt

import (
	"strings"
	"testing"

	"akelarre/pkg/domain"
)

func TestCompileDeterministic(t *testing.T) {
	c := NewCompiler(Tables{})
	style := domain.StyleConfig{Aesthetic: "psycho_anarcho", ArtStyle: "fusion", Glitch: 0.4, Chaos: 0.6}
	first := c.Compile("a lone wolf 💀 in the rain", style)
	for i := 0; i < 5; i++ {
		if got := c.Compile("a lone wolf 💀 in the rain", style); got != first {
			t.Fatalf("compile not deterministic:\nfirst: %q\ngot:   %q", first, got)
		}
	}
}

func TestCompileSubstitutesSymbols(t *testing.T) {
	c := NewCompiler(Tables{})
	out := c.Compile("💀 rider 💀", domain.StyleConfig{RawMode: true})
	if strings.Contains(out, "💀") {
		t.Fatalf("symbol left untranslated: %q", out)
	}
	if got := strings.Count(out, "(memento mori, skull, death, gothic, danger, skeletal)"); got != 2 {
		t.Fatalf("expected 2 substitutions, got %d in %q", got, out)
	}
}

func TestSubstituteOrderIndependent(t *testing.T) {
	// Non-overlapping symbols must substitute to the same result no matter
	// where they sit relative to each other.
	c := NewCompiler(Tables{})
	ab := c.Compile("🤖 versus 🔥", domain.StyleConfig{RawMode: true})
	ba := c.Compile("🔥 versus 🤖", domain.StyleConfig{RawMode: true})
	for _, meaning := range []string{"a robot, cyborg", "infused with fire"} {
		if !strings.Contains(ab, meaning) || !strings.Contains(ba, meaning) {
			t.Fatalf("missing %q in %q / %q", meaning, ab, ba)
		}
	}
}

func TestCompileEmptyInputFallback(t *testing.T) {
	c := NewCompiler(Tables{})
	for _, input := range []string{"", "   ", "\n\t"} {
		out := c.Compile(input, domain.StyleConfig{})
		if !strings.Contains(out, FallbackVision) {
			t.Fatalf("input %q: fallback vision missing from %q", input, out)
		}
		if out == "" {
			t.Fatalf("compile returned empty instruction")
		}
	}
}

func TestCompileRawModeSkipsStyles(t *testing.T) {
	c := NewCompiler(Tables{})
	out := c.Compile("a lone wolf", domain.StyleConfig{
		RawMode:   true,
		Aesthetic: "psycho_anarcho",
		ArtStyle:  "fusion",
		Glitch:    1,
		Chaos:     1,
	})
	if out != "a lone wolf" {
		t.Fatalf("raw mode output = %q, want user text alone", out)
	}
	if strings.Contains(out, "Core Aesthetic") || strings.Contains(out, "Artistic Style") {
		t.Fatalf("raw mode leaked style phrases: %q", out)
	}
}

func TestCompileFixedAssemblyOrder(t *testing.T) {
	c := NewCompiler(Tables{})
	out := c.Compile("neon ruins", domain.StyleConfig{Aesthetic: "psycho_anarcho", ArtStyle: "glitch", Glitch: 0.9, Chaos: 0.1})
	vision := strings.Index(out, "**User's Vision:**")
	aesthetic := strings.Index(out, "**Core Aesthetic:**")
	artStyle := strings.Index(out, "**Artistic Style:**")
	closing := strings.Index(out, "**Final Instruction:**")
	if vision < 0 || aesthetic < 0 || artStyle < 0 || closing < 0 {
		t.Fatalf("missing section in %q", out)
	}
	if !(vision < aesthetic && aesthetic < artStyle && artStyle < closing) {
		t.Fatalf("sections out of order in %q", out)
	}
	if !strings.Contains(out, "through the lens of the core aesthetic") {
		t.Fatalf("wrong closing variant with aesthetic applied: %q", out)
	}
}

func TestCompileClosingVariantWithoutAesthetic(t *testing.T) {
	c := NewCompiler(Tables{})
	out := c.Compile("neon ruins", domain.StyleConfig{Aesthetic: "none", ArtStyle: "glitch"})
	if strings.Contains(out, "**Core Aesthetic:**") {
		t.Fatalf("aesthetic line present for none: %q", out)
	}
	if !strings.Contains(out, "Interpret the user's vision faithfully") {
		t.Fatalf("wrong closing variant without aesthetic: %q", out)
	}
}

func TestCompileUnknownKeysFallBack(t *testing.T) {
	c := NewCompiler(Tables{})
	known := c.Compile("x", domain.StyleConfig{Aesthetic: "none", ArtStyle: "none"})
	unknown := c.Compile("x", domain.StyleConfig{Aesthetic: "corporate", ArtStyle: "clipart"})
	if known != unknown {
		t.Fatalf("unknown keys did not fall back to default:\n%q\n%q", known, unknown)
	}
}

func TestCompileStyleOmittedEntirelyWhenNone(t *testing.T) {
	c := NewCompiler(Tables{})
	out := c.Compile("x", domain.StyleConfig{Aesthetic: "psycho_anarcho", ArtStyle: "none", Glitch: 1, Chaos: 1})
	if strings.Contains(out, "**Artistic Style:**") || strings.Contains(out, "Glitch intensity") {
		t.Fatalf("style/intensity phrases present with style none: %q", out)
	}
}
