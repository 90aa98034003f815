// Package book generates a personalized Polish children's book: story text,
// per-scene illustration prompts and the synthesized images for them.
package book

import (
	"fmt"
	"strings"
)

// DefaultStyle is used whenever the caller sends no style or an unknown one.
const DefaultStyle = "Bajkowy pastelowy (domyślny)"

// styleMap translates the Polish style names shown to users into the English
// style descriptors prepended to every image prompt.
var styleMap = map[string]string{
	"Bajkowy pastelowy (domyślny)": "storybook illustration style, pastel colors, soft lighting, painterly texture, 2D fairytale",
	"Disney/Pixar":                 "3D animated style, inspired by Disney and Pixar, cinematic lighting, expressive characters, magical realism",
	"Płaski i minimalistyczny":     "flat vector style, minimalist shapes, bold colors, simple characters, children's magazine style",
	"Akwarela":                     "hand-painted watercolor style, soft brush strokes, dreamy colors, traditional illustration",
	"Komiksowy":                    "comic book style, dynamic lines, exaggerated expressions, vivid saturated colors, energetic scene",
	"Anime":                        "anime-style illustration, large expressive eyes, dynamic composition, vibrant colors",
	"Ghibli":                       "inspired by Studio Ghibli, dreamy landscapes, soft shadows, magical realism, whimsical mood",
	"Fotorealistyczny":             "photorealistic digital painting, high detail, cinematic lighting, fantasy atmosphere",
}

// StylePrompt returns the style descriptor for a user-facing style name,
// falling back to the default style for unknown names.
func StylePrompt(styleID string) string {
	if prompt, ok := styleMap[styleID]; ok {
		return prompt
	}
	return styleMap[DefaultStyle]
}

// Dimensions is the pixel size requested from the image backend.
type Dimensions struct {
	Width  int
	Height int
}

var proportionDimensions = map[string]Dimensions{
	"square":    {Width: 1024, Height: 1024},
	"portrait":  {Width: 768, Height: 1024},
	"landscape": {Width: 1024, Height: 768},
}

// DimensionsFor maps a book proportion to image dimensions. Unknown
// proportions fall back to landscape.
func DimensionsFor(proportion string) Dimensions {
	if dims, ok := proportionDimensions[proportion]; ok {
		return dims
	}
	return proportionDimensions["landscape"]
}

// negativePrompt is sent with every synthesis request to suppress text,
// anatomy glitches and frame artifacts.
const negativePrompt = "text, words, letters, watermark, signature, blurry, low quality, jpeg artifacts, deformed, ugly, disfigured, extra limbs, missing limbs, bad anatomy, mutated hands, poorly drawn hands, poorly drawn face, extra fingers, too many fingers, low detail, undetailed scene, empty scene, doll, plastic, fake, ((monochrome)), ((grayscale)), ((text box)), ((speech bubble)), frames, borders, artifacts, signature, username, logo, (worst quality, low quality, normal quality:1.4), (jpeg artifacts), (blurry), (poorly drawn), (bad hands), (bad anatomy), (disfigured), (extra limbs), (missing limbs), (fused fingers), (too many fingers), (malformed hands)"

// standardShots are camera directions for first attempts; safeShots are the
// toned-down variants used after a moderation rejection.
var standardShots = []string{
	"dynamic wide establishing shot, character in detailed environment",
	"eye-level medium shot, character interacting with key scene elements",
	"full shot of character performing action from story",
	"action shot, capturing movement and energy",
	"cinematic wide shot, showing depth and scale, character active within",
	"interactive scene, focus on the story's key event",
	"storybook illustration, rich detailed background, character naturally integrated",
	"whimsical and magical atmosphere, showing character's exploration",
	"adventurous scene, character navigating the environment",
}

var safeShots = []string{
	"dynamic wide scene, character part of a detailed environment",
	"eye-level medium shot, character interacting with surroundings",
	"full shot of character in action, clear narrative moment",
	"energetic scene capturing movement",
	"cinematic wide view, showing depth and scale, character active within",
	"interactive scene, focus on the story's key event, character visible",
	"perspective showing the character looking at something wondrous",
	"overview of the location with character engaged in an activity",
}

// Request is one book-generation submission.
type Request struct {
	ChildName  string
	Age        int
	Theme      string
	Dedication string
	StyleID    string
	Proportion string
	Photo      []byte
}

// GeneratedImage records the outcome of one illustration, successful or not.
// Failed items carry a placeholder URL and the failure reason.
type GeneratedImage struct {
	Prompt            string `json:"prompt"`
	GenerationID      string `json:"generationId,omitempty"`
	URL               string `json:"url"`
	Error             string `json:"error,omitempty"`
	PromptVersionUsed string `json:"promptVersionUsed"`
}

// Result is the complete generated book: title, story fragments and one
// image per item (cover first, then one per fragment).
type Result struct {
	StoryTitle      string           `json:"storyTitle"`
	Fragments       []string         `json:"fragments"`
	GeneratedImages []GeneratedImage `json:"generatedImages"`
	Dedication      string           `json:"dedication"`
}

// StoryDocument is the parsed output of the story writer.
type StoryDocument struct {
	Title     string
	Fragments []string
}

// Appearance is the structured description of the child extracted from the
// uploaded photo. FullDescription is always non-empty.
type Appearance struct {
	FullDescription string
	Hair            string
	Eyes            string
	Gender          string
}

// KeyFeatures builds the short identity string repeated in every image
// prompt so the character stays consistent across illustrations.
func (a Appearance) KeyFeatures(age int) string {
	gender := a.Gender
	if gender == "" {
		gender = "child"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "a %d-year-old %s", age, gender)
	if a.Hair != "" {
		b.WriteString(" with " + a.Hair)
	}
	if a.Eyes != "" {
		b.WriteString(" and " + a.Eyes)
	}
	return b.String()
}

// ValidationError reports a rejected submission field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("book: invalid %s: %s", e.Field, e.Reason)
}
