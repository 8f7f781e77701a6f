package pipeline

import (
	"strings"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

// EnhancedPrompt is an enriched prompt pair for the still-image engines.
type EnhancedPrompt struct {
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt"`
	Tags           []string `json:"tags"`
}

// toneStyles maps a project tone to style tags appended to the prompt.
var toneStyles = map[string][]string{
	"playful":      {"vibrant colors", "dynamic composition"},
	"luxury":       {"premium lighting", "minimal composition", "elegant"},
	"professional": {"studio lighting", "clean background"},
	"bold":         {"high contrast", "dramatic lighting"},
	"friendly":     {"warm tones", "natural light"},
}

var qualityTags = []string{
	"high detail", "sharp focus", "professional product photography", "8k",
}

var negativeTags = []string{
	"blurry", "low quality", "watermark", "text artifacts",
	"distorted", "extra limbs", "oversaturated",
}

// EnhancePrompt enriches a raw prompt with the project brief, tone-matched
// style tags, and a standard negative prompt. The expansion is deterministic.
func EnhancePrompt(project *model.Project, prompt string) EnhancedPrompt {
	parts := []string{strings.TrimSpace(prompt)}
	var tags []string

	if project != nil {
		if project.Product != "" && !strings.Contains(strings.ToLower(prompt), strings.ToLower(project.Product)) {
			parts = append(parts, "featuring "+project.Product)
		}
		if styles, ok := toneStyles[strings.ToLower(project.Tone)]; ok {
			tags = append(tags, styles...)
		}
	}
	tags = append(tags, qualityTags...)

	return EnhancedPrompt{
		Prompt:         strings.Join(append(parts, tags...), ", "),
		NegativePrompt: strings.Join(negativeTags, ", "),
		Tags:           tags,
	}
}
