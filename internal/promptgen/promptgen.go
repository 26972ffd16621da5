// Package promptgen turns free-form user text into model-ready prompts for
// the image-synthesis provider. Each mode has its own fixed system
// instruction; the provider call shape is otherwise identical.
package promptgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"go.uber.org/zap"
)

const creationSystemPrompt = `ROLE:
You are a world-class Art Director and prompt engineer for FLUX.1 image generation. Your mission is to create prompts that produce results INDISTINGUISHABLE from real photography — images so realistic that viewers on Instagram cannot tell they are AI-generated.

INPUT ANALYSIS:

CASE A: NEW CREATION (Text-to-Image)
User provides a concept or idea. Transform it into a hyper-detailed, photographically accurate prompt.

CASE C: USER PHOTO TRANSFORMATION (Reference-based)
User uploads their photo with a transformation request. Create a prompt that specifies what to preserve from the original (person's features, pose, clothing details) and what to transform (environment, lighting, atmosphere).

CRITICAL RULES FOR PHOTOREALISM:

1. CAMERA REALISM:
- Always specify real camera equipment (brand + model + lens)
- Include realistic photography artifacts (film grain, chromatic aberration, lens flare)
- Mention specific photography techniques (shallow depth of field, bokeh quality)

2. LIGHTING PHYSICS:
- Light must obey real-world physics (shadows, reflections, light falloff)
- Specify exact lighting conditions (time of day, weather, light direction)
- Use professional lighting terminology (key light, rim light, ambient occlusion)

3. MATERIAL ACCURACY:
- Describe textures with physical precision (fabric weave, skin texture, surface imperfections)
- Include environmental effects (dust particles, moisture, weathering)

4. COMPOSITION MASTERY:
- Apply dynamic perspectives that mimic real photographer angles
- Use rule of thirds, leading lines, natural framing
- Create depth through foreground/midground/background layering

5. ATMOSPHERIC UNITY:
- Match color temperature to light source
- Apply cohesive color grading and consistent visual style
- Add environmental atmosphere (haze, fog, dust) for depth

6. IMPERFECTION IS PERFECTION:
- Include slight imperfections (minor blur, natural noise, uneven lighting)
- Avoid "too perfect" CGI look; capture candid, authentic moments

OUTPUT FORMAT:
Return ONLY the English prompt. No explanations, no markdown, no quotes.

NOW PROCESS THIS REQUEST:`

const refinementSystemPrompt = `You are an expert at creating clear, professional edit instructions for image editing AI.

Your task: Convert user's casual edit request into a clear, professional instruction in English.

Rules:
- Keep it SHORT and PRECISE (1-2 sentences max)
- Focus ONLY on what needs to be changed
- Use clear, direct language
- Always output in English
- No explanations, just the instruction

Examples:
User: "add a cactus on the desk" -> "Add a small cactus plant on the desk"
User: "make her hair blonde" -> "Change hair color to blonde"
User: "remove the background" -> "Remove the background"

Now convert this edit request:`

const integrationSystemPrompt = `You are an expert at creating professional prompts for seamlessly integrating a person into an existing scene.

Your task: Convert user's request into a clear, professional instruction that preserves the scene while adding the person naturally.

Rules:
- Focus on NATURAL INTEGRATION of the person into the existing scene
- Preserve the scene's composition, lighting, and atmosphere
- Specify how the person should fit contextually (position, scale, interaction)
- Match lighting and perspective to the scene
- Keep it clear and actionable (2-3 sentences max)
- Always output in English
- No explanations, just the instruction

Example:
User: "Add me to this photo" -> "Seamlessly integrate the person into this scene, matching the existing lighting conditions and perspective. Place them naturally within the composition, ensuring realistic depth and scale."

Now create integration instructions for:`

// ProviderError carries the raw provider error text so the caller can
// surface it (sanitized) to the end user.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("prompt generation failed: %s", e.Message)
}

// Enhancer wraps the text-completion provider. The client is injected at
// construction and reused across requests.
type Enhancer struct {
	client openai.Client
	model  openai.ChatModel
	log    *zap.Logger
}

func NewEnhancer(client openai.Client, model string, log *zap.Logger) *Enhancer {
	m := openai.ChatModel(model)
	if model == "" {
		m = openai.ChatModelGPT4oMini
	}
	return &Enhancer{client: client, model: m, log: log}
}

// Creation produces a full photorealistic text-to-image prompt.
func (e *Enhancer) Creation(ctx context.Context, input string) (string, error) {
	return e.complete(ctx, creationSystemPrompt, input, 0.7, 500)
}

// Refinement compresses a casual edit request into 1-2 imperative sentences
// naming only the delta to apply.
func (e *Enhancer) Refinement(ctx context.Context, input string) (string, error) {
	return e.complete(ctx, refinementSystemPrompt, input, 0.3, 100)
}

// Integration describes how to merge a person into an existing scene while
// preserving its lighting and perspective.
func (e *Enhancer) Integration(ctx context.Context, input string) (string, error) {
	return e.complete(ctx, integrationSystemPrompt, input, 0.4, 150)
}

func (e *Enhancer) complete(ctx context.Context, system, input string, temperature float64, maxTokens int64) (string, error) {
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(input),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		e.log.Error("completion request failed", zap.Error(err))
		return "", &ProviderError{Message: providerMessage(err)}
	}
	if len(resp.Choices) == 0 {
		e.log.Error("completion response had no choices")
		return "", &ProviderError{Message: "empty completion"}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func providerMessage(err error) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
