// Package prompt compiles free-form user text plus style selectors into the
// final generation instruction. Compilation is pure and total: identical
// inputs always produce the identical instruction, and no input can make it
// fail.
package prompt

import (
	"strings"

	"akelarre/pkg/domain"
)

// FallbackVision substitutes for empty or whitespace-only user input so the
// compiler always produces a non-empty instruction.
const FallbackVision = "a chaotic and surreal vision"

const masterHeader = "**MASTER PROMPT:** Generate a high-quality, visually striking image."

const (
	closingWithAesthetic = "**Final Instruction:** Interpret the user's vision through the lens of the core aesthetic. Be creative, be chaotic, be bold. The final image should feel like a piece of underground art."
	closingPlain         = "**Final Instruction:** Interpret the user's vision faithfully. Be creative and bold. The final image should feel like a piece of underground art."
)

// Tables is the fixed vocabulary the compiler draws from. All fields are
// optional; zero values fall back to the built-in defaults.
type Tables struct {
	Grimoire     map[string]string
	GlitchLevels []string
	ChaosLevels  []string
	Aesthetics   map[string]string
	ArtStyles    map[string]string
}

// DefaultTables returns the built-in vocabulary.
func DefaultTables() Tables {
	return Tables{
		Grimoire:     defaultGrimoire,
		GlitchLevels: defaultGlitchLevels,
		ChaosLevels:  defaultChaosLevels,
		Aesthetics:   defaultAesthetics,
		ArtStyles:    defaultArtStyles,
	}
}

// Compiler turns user text and a style configuration into an instruction
// string. It holds no mutable state and is safe for concurrent use.
type Compiler struct {
	tables Tables
}

// NewCompiler builds a compiler over the given tables, filling any empty
// table from the defaults.
func NewCompiler(tables Tables) *Compiler {
	def := DefaultTables()
	if len(tables.Grimoire) == 0 {
		tables.Grimoire = def.Grimoire
	}
	if len(tables.GlitchLevels) == 0 {
		tables.GlitchLevels = def.GlitchLevels
	}
	if len(tables.ChaosLevels) == 0 {
		tables.ChaosLevels = def.ChaosLevels
	}
	if len(tables.Aesthetics) == 0 {
		tables.Aesthetics = def.Aesthetics
	}
	if len(tables.ArtStyles) == 0 {
		tables.ArtStyles = def.ArtStyles
	}
	return &Compiler{tables: tables}
}

// Compile produces the final instruction for the backend.
//
// The vision text gets grimoire substitution first. In raw mode the result is
// the substituted text alone. Otherwise the instruction is assembled in fixed
// order: vision line, core aesthetic (omitted for "none"), art style plus the
// two quantized intensity phrases (omitted for "none"), and a closing whose
// wording depends on whether an aesthetic was applied.
func (c *Compiler) Compile(userText string, style domain.StyleConfig) string {
	vision := strings.TrimSpace(userText)
	if vision == "" {
		vision = FallbackVision
	}
	vision = strings.TrimSpace(substitute(vision, c.tables.Grimoire))

	if style.RawMode {
		return vision
	}

	aesthetic := c.lookupAesthetic(style.Aesthetic)
	artStyle := c.lookupArtStyle(style.ArtStyle)

	lines := []string{
		masterHeader,
		"**User's Vision:** " + vision,
	}
	if aesthetic != "" {
		lines = append(lines, "**Core Aesthetic:** "+aesthetic)
	}
	if artStyle != "" {
		lines = append(lines,
			"**Artistic Style:** "+artStyle+
				" Glitch intensity: "+levelPhrase(style.Glitch, c.tables.GlitchLevels)+"."+
				" Chaos intensity: "+levelPhrase(style.Chaos, c.tables.ChaosLevels)+".")
	}
	if aesthetic != "" {
		lines = append(lines, closingWithAesthetic)
	} else {
		lines = append(lines, closingPlain)
	}
	return strings.Join(lines, "\n")
}

func (c *Compiler) lookupAesthetic(key string) string {
	if phrase, ok := c.tables.Aesthetics[key]; ok {
		return phrase
	}
	return c.tables.Aesthetics[DefaultAesthetic]
}

func (c *Compiler) lookupArtStyle(key string) string {
	if phrase, ok := c.tables.ArtStyles[key]; ok {
		return phrase
	}
	return c.tables.ArtStyles[DefaultArtStyle]
}
