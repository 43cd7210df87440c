package prompt

import (
	"sort"
	"strings"
)

// The grimoire maps user-facing glyphs to the textual meanings injected into
// the compiled instruction. The set is closed; substitution replaces every
// occurrence of a symbol with "(meaning) ".
var defaultGrimoire = map[string]string{
	"👨":  "a male figure, a man, a boy",
	"👩":  "a female figure, a woman, a girl",
	"💀":  "memento mori, skull, death, gothic, danger, skeletal",
	"🤖":  "a robot, cyborg, android, artificial intelligence, machine",
	"🔥":  "infused with fire, chaos, passion, destruction, creative energy, flames",
	"🖤":  "a black heart, dark essence, rebellion, sorrow, anti-love",
	"⚡️": "electric, high-energy, neon glow, power, speed, lightning",
	"⛓️": "chains, bondage, oppression, connection, industrial, metallic links",
	"Ⓐ":  "anarchy symbol, anti-authoritarian, punk rock, chaos magic sigil",
	"💻":  "hacker, computer, digital realm, cyberspace, terminal screen",
	"🧠":  "psychedelic, consciousness, mind-bending, intelligence, trippy visuals",
	"💊":  "a pill, drugs, medicine, altered state, transhumanism",
	"👁️": "an eye, seeing, surveillance, esoteric knowledge, all-seeing eye",
	"🔪":  "a knife, blade, danger, sharp, cutting edge, violence",
	"💥":  "explosion, impact, breakthrough, sudden change",
	"🍄":  "mushroom, psychedelic trip, nature, fungus, magic mushrooms",
}

// substitute replaces every grimoire symbol in text with its parenthesized
// meaning. Symbols are processed in a fixed (sorted) order so the result is
// deterministic; meanings never contain symbols, so replacement order only
// matters for overlapping glyph sequences.
func substitute(text string, grimoire map[string]string) string {
	symbols := make([]string, 0, len(grimoire))
	for sym := range grimoire {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		text = strings.ReplaceAll(text, sym, "("+grimoire[sym]+") ")
	}
	return text
}
