package book

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/twojabajka/server/internal/infra"
	"github.com/twojabajka/server/internal/providers/openai"
)

// SceneMode selects how much detail the scene summary carries. The short mode
// exists for the degraded second attempt after a rejected submission.
type SceneMode string

const (
	SceneFull  SceneMode = "full"
	SceneShort SceneMode = "short"
)

const sceneTimeout = 20 * time.Second

type sceneTuning struct {
	targetChars int
	targetWords string
	temperature float64
	maxTokens   int
}

var sceneTunings = map[SceneMode]sceneTuning{
	SceneFull:  {targetChars: 600, targetWords: "80-100", temperature: 0.55, maxTokens: 200},
	SceneShort: {targetChars: 350, targetWords: "40-55", temperature: 0.25, maxTokens: 100},
}

// ScenePrompter condenses a Polish story fragment into an English scene
// description suitable for the image backend.
type ScenePrompter struct {
	llm    Completer
	logger *infra.Logger
}

func NewScenePrompter(llm Completer, logger *infra.Logger) *ScenePrompter {
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}
	return &ScenePrompter{llm: llm, logger: logger}
}

// Summarize turns one fragment into a scene description. It always returns a
// usable string; on any failure it falls back to a generic sentence naming
// the child.
func (p *ScenePrompter) Summarize(ctx context.Context, fragmentText, childName string, age int, mode SceneMode) string {
	tuning, ok := sceneTunings[mode]
	if !ok {
		tuning = sceneTunings[SceneFull]
	}
	fallback := fmt.Sprintf("A scene from the story featuring %s.", childName)

	summary, err := p.llm.Complete(ctx, openai.ChatRequest{
		Prompt:      scenePrompt(fragmentText, childName, age, tuning),
		Temperature: tuning.temperature,
		MaxTokens:   tuning.maxTokens,
		Timeout:     sceneTimeout,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("mode", string(mode)).Msg("book: scene summary call failed, using fallback")
		return fallback
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return fallback
	}
	if len(summary) > tuning.targetChars+50 {
		p.logger.Warn().
			Str("mode", string(mode)).
			Int("length", len(summary)).
			Msg("book: scene summary over target, truncating")
		summary = summary[:tuning.targetChars+47] + "..."
	}
	return summary
}

func scenePrompt(fragmentText, childName string, age int, tuning sceneTuning) string {
	return fmt.Sprintf(`You are an expert children's book scene describer for an AI image generator.
Based on the following POLISH children's story fragment (for a %d-year-old child), provide a vivid and DETAILED ENGLISH scene description.
The description MUST BE **UNDER %d CHARACTERS** (target around %s words).

Your description MUST include:
1. The main CHARACTER '%s' (%d years old) and their primary ACTION or emotional state.
2. ALL other characters or creatures '%s' is INTERACTING with or that are significantly present. Describe them briefly (e.g., "a fluffy white rabbit with a blue vest", "three colorful singing butterflies: one red, one blue, one yellow", "a grumpy old troll under a wooden bridge").
3. A description of the ENVIRONMENT/BACKGROUND with 2-3 key visual details (e.g., "a sun-dappled magical forest with glowing flowers and tall, twisted trees", "a bustling medieval marketplace full of colorful stalls under a blue sky").
4. The overall MOOD or ATMOSPHERE of the scene (e.g., "joyful and bright", "mysterious and slightly spooky", "adventurous and exciting").
Ensure the description is dynamic, implies a full scene with interactions, and avoids a simple portrait focus. The character should be an integral part of the environment. Be direct and visual.
Output ONLY the English scene description.
**CRITICALLY IMPORTANT: The generated English description must be completely anodyne, child-safe, and contain NO words, substrings, or letter combinations that could be misinterpreted by a sensitive content moderation AI as inappropriate, offensive, or adult-themed, especially in a child context. Double-check for any accidental similarities to problematic English words.**

Polish Story Fragment:
"%s"

Detailed, child-safe English Scene Description for Illustration (MAX %d characters):`,
		age, tuning.targetChars, tuning.targetWords, childName, age, childName, fragmentText, tuning.targetChars)
}
