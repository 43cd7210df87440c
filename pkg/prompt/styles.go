package prompt

// DefaultAesthetic is the selector value that applies no core aesthetic.
// Unknown selectors fall back to it rather than failing.
const DefaultAesthetic = "none"

// DefaultArtStyle is the selector value that applies no art style.
const DefaultArtStyle = "none"

var defaultAesthetics = map[string]string{
	"none":           "",
	"psycho_anarcho": "The style must be a fusion of anarcho-punk, psycho-rebel, cyberpunk, and street hacker. Emphasize a DIY, gritty, raw, and chaotic feeling.",
	"digital_shaman": "The style must channel digital shamanism: sacred geometry, ritual circuitry, neon sigils and trance-state visuals woven through technology.",
	"gothic_dread":   "The style must drip with gothic dread: candlelit darkness, decayed ornamentation, memento mori symbolism and oppressive shadow.",
	"street_oracle":  "The style must feel like street prophecy: wheatpaste posters, stencil graffiti, cracked concrete and urgent spray-painted warnings.",
}

var defaultArtStyles = map[string]string{
	"none":         "",
	"fusion":       "Blend styles like photorealistic render, ink + marker sketches, and controlled glitch art. Avoid corporate or clean aesthetics.",
	"glitch":       "Pure glitch art: corrupted scanlines, datamoshing, RGB channel splits and compression artifacts as the dominant visual language.",
	"zine":         "Photocopied punk zine collage: harsh xerox contrast, torn paper edges, hand-lettered cutouts and safety-pin assembly.",
	"anime_fusion": "Anime fusion: expressive cel-shaded linework collided with western street art, oversized eyes and kinetic speed lines.",
	"isometric":    "Isometric diorama: a tilted miniature world with crisp axonometric geometry and dense, obsessive detail.",
}
