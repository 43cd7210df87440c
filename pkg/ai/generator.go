package ai

import "context"

// ImageGenerator produces image bytes from a compiled instruction and an
// optional source image (modification requests).
type ImageGenerator interface {
	GenerateImage(ctx context.Context, instruction string, source *SourceImage, sampling Sampling) ([]byte, error)
}

// TextGenerator generates text from a system prompt and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
