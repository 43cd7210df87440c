package domain

import "time"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// StyleConfig carries the aesthetic selectors and intensity sliders for a
// single generation request. It is consumed once by the prompt compiler and
// never mutated.
type StyleConfig struct {
	Aesthetic string  `json:"aesthetic"`
	ArtStyle  string  `json:"artStyle"`
	Glitch    float64 `json:"glitch"`
	Chaos     float64 `json:"chaos"`
	RawMode   bool    `json:"rawMode"`
}

// SamplingParams are forwarded to the generation backend unchanged.
type SamplingParams struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GenerationRecord is the persisted metadata of one successful generation.
// Records are append-only.
type GenerationRecord struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	UserPrompt  string         `json:"userPrompt"`
	FinalPrompt string         `json:"finalPrompt"`
	StorageKey  string         `json:"storageKey"`
	IsModified  bool           `json:"isModified"`
	Style       StyleConfig    `json:"style"`
	Sampling    SamplingParams `json:"sampling"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Generation is what the orchestrator hands back to the caller: the record
// plus the produced image bytes (PNG) and, when an object store that can
// presign is configured, a fetch URL.
type Generation struct {
	Record GenerationRecord `json:"record"`
	Image  []byte           `json:"-"`
	URL    string           `json:"url,omitempty"`
}
