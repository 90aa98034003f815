package book

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/twojabajka/server/internal/infra"
	"github.com/twojabajka/server/internal/providers/leonardo"
)

const (
	minAge = 1
	maxAge = 18

	defaultPendingJobsWait = 5 * time.Second
)

// ImageHoster uploads the submitted photo and returns a public URL.
type ImageHoster interface {
	Upload(ctx context.Context, image []byte) (string, error)
}

// Synthesizer submits illustration jobs and polls them to completion.
type Synthesizer interface {
	Submit(ctx context.Context, req leonardo.SubmitRequest) (string, error)
	Poll(ctx context.Context, jobID string) (string, error)
}

// AppearanceSource describes the child from a hosted photo.
type AppearanceSource interface {
	Describe(ctx context.Context, publicImageURL string, statedAge int) Appearance
}

// StorySource writes and parses the story.
type StorySource interface {
	Write(ctx context.Context, childName string, age int, theme string) (StoryDocument, error)
}

// SceneSource condenses a fragment into an image-prompt scene description.
type SceneSource interface {
	Summarize(ctx context.Context, fragmentText, childName string, age int, mode SceneMode) string
}

// RetryAction is the follow-up after a classified submission failure.
type RetryAction int

const (
	// ActionFail gives up on the item immediately.
	ActionFail RetryAction = iota
	// ActionNextAttempt moves on to the degraded second attempt.
	ActionNextAttempt
	// ActionRedo waits briefly and redoes the same attempt once. Used when
	// the backend reports too many queued jobs.
	ActionRedo
)

// SubmitPolicy maps submission failure causes to retry actions. Causes absent
// from the map fail the item.
type SubmitPolicy map[leonardo.SubmitErrorKind]RetryAction

// DefaultSubmitPolicy mirrors the behavior users see in production: content
// and length rejections degrade to the short attempt, a busy queue is worth
// one redo, anything else fails the item.
func DefaultSubmitPolicy() SubmitPolicy {
	return SubmitPolicy{
		leonardo.KindModeration:    ActionNextAttempt,
		leonardo.KindPromptTooLong: ActionNextAttempt,
		leonardo.KindMalformedBody: ActionNextAttempt,
		leonardo.KindMissingJobID:  ActionNextAttempt,
		leonardo.KindPendingJobs:   ActionRedo,
		leonardo.KindOther:         ActionFail,
	}
}

// Orchestrator runs the full generation pipeline for one submission.
type Orchestrator struct {
	host      ImageHoster
	describer AppearanceSource
	writer    StorySource
	scenes    SceneSource
	images    Synthesizer
	policy    SubmitPolicy
	logger    *infra.Logger

	pendingJobsWait time.Duration
	pickShot        func(shots []string) string
}

// OrchestratorOptions collects the orchestrator's collaborators.
type OrchestratorOptions struct {
	Host      ImageHoster
	Describer AppearanceSource
	Writer    StorySource
	Scenes    SceneSource
	Images    Synthesizer
	// Policy overrides DefaultSubmitPolicy when non-nil.
	Policy SubmitPolicy
	// PendingJobsWait is how long ActionRedo pauses before resubmitting.
	PendingJobsWait time.Duration
	Logger          *infra.Logger
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Host == nil || opts.Describer == nil || opts.Writer == nil || opts.Scenes == nil || opts.Images == nil {
		return nil, errors.New("book: orchestrator requires all collaborators")
	}
	policy := opts.Policy
	if policy == nil {
		policy = DefaultSubmitPolicy()
	}
	pendingJobsWait := opts.PendingJobsWait
	if pendingJobsWait <= 0 {
		pendingJobsWait = defaultPendingJobsWait
	}
	logger := opts.Logger
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}
	return &Orchestrator{
		host:            opts.Host,
		describer:       opts.Describer,
		writer:          opts.Writer,
		scenes:          opts.Scenes,
		images:          opts.Images,
		policy:          policy,
		logger:          logger,
		pendingJobsWait: pendingJobsWait,
		pickShot: func(shots []string) string {
			return shots[rand.Intn(len(shots))]
		},
	}, nil
}

// Validate checks the submission fields the pipeline cannot proceed without.
func (r Request) Validate() error {
	if strings.TrimSpace(r.ChildName) == "" {
		return &ValidationError{Field: "childName", Reason: "is required"}
	}
	if r.Age < minAge || r.Age > maxAge {
		return &ValidationError{Field: "age", Reason: fmt.Sprintf("must be between %d and %d", minAge, maxAge)}
	}
	if strings.TrimSpace(r.Theme) == "" {
		return &ValidationError{Field: "storyTheme", Reason: "is required"}
	}
	if len(r.Photo) == 0 {
		return &ValidationError{Field: "photo", Reason: "is required"}
	}
	return nil
}

// GenerateBook runs the pipeline: host the photo, describe the child, write
// the story, then illustrate the cover and each fragment in order. Individual
// illustration failures degrade to placeholders; upload failure and an
// unparseable story are fatal.
func (o *Orchestrator) GenerateBook(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.StyleID == "" {
		req.StyleID = DefaultStyle
	}
	if req.Proportion == "" {
		req.Proportion = "square"
	}

	publicURL, err := o.host.Upload(ctx, req.Photo)
	if err != nil {
		return nil, fmt.Errorf("book: photo upload: %w", err)
	}

	appearance := o.describer.Describe(ctx, publicURL, req.Age)
	keyFeatures := appearance.KeyFeatures(req.Age)

	story, err := o.writer.Write(ctx, req.ChildName, req.Age, req.Theme)
	if err != nil {
		return nil, err
	}

	dims := DimensionsFor(req.Proportion)
	stylePrompt := StylePrompt(req.StyleID)

	items := make([]illustrationItem, 0, 1+len(story.Fragments))
	items = append(items, illustrationItem{kind: itemCover, title: story.Title, theme: req.Theme})
	for _, fragment := range story.Fragments {
		items = append(items, illustrationItem{kind: itemFragment, fragment: fragment})
	}

	images := make([]GeneratedImage, 0, len(items))
	for index, item := range items {
		o.logger.Info().
			Int("item", index+1).
			Int("total", len(items)).
			Str("proportion", req.Proportion).
			Msg("book: generating illustration")
		images = append(images, o.illustrate(ctx, item, index, req, appearance, keyFeatures, stylePrompt, dims))
	}

	return &Result{
		StoryTitle:      story.Title,
		Fragments:       story.Fragments,
		GeneratedImages: images,
		Dedication:      req.Dedication,
	}, nil
}

type itemKind int

const (
	itemCover itemKind = iota
	itemFragment
)

type illustrationItem struct {
	kind     itemKind
	title    string
	theme    string
	fragment string
}

// illustrate runs the two-attempt policy for one item: a full scene with a
// standard camera shot first, then a short scene after a rejection (safe
// shots when the rejection mentioned moderation). A busy-queue rejection
// earns one redo of the current attempt before counting against it.
func (o *Orchestrator) illustrate(ctx context.Context, item illustrationItem, index int, req Request, appearance Appearance, keyFeatures, stylePrompt string, dims Dimensions) GeneratedImage {
	var (
		prompt        string
		promptVersion string
		failure       string
		moderated     bool
	)

attempts:
	for attempt := 1; attempt <= 2; attempt++ {
		mode := SceneFull
		promptVersion = "full_scene_desc"
		if attempt == 2 {
			mode = SceneShort
			promptVersion = "short_scene_desc"
		}
		shots := standardShots
		if moderated {
			shots = safeShots
		}

		var scene string
		if item.kind == itemFragment {
			scene = o.scenes.Summarize(ctx, item.fragment, req.ChildName, req.Age, mode)
		}
		prompt = o.buildPrompt(item, scene, keyFeatures, appearance.FullDescription, stylePrompt, o.pickShot(shots))

		redoUsed := false
		for {
			jobID, err := o.images.Submit(ctx, leonardo.SubmitRequest{
				Prompt:         prompt,
				NegativePrompt: negativePrompt,
				Width:          dims.Width,
				Height:         dims.Height,
			})
			if err != nil {
				failure = err.Error()
				var submitErr *leonardo.SubmitError
				if !errors.As(err, &submitErr) {
					break attempts
				}
				moderated = moderated || submitErr.Moderated
				o.logger.Warn().
					Int("item", index+1).
					Int("attempt", attempt).
					Stringer("cause", submitErr.Kind).
					Bool("moderated", submitErr.Moderated).
					Msg("book: illustration submit rejected")

				switch o.policy[submitErr.Kind] {
				case ActionRedo:
					if redoUsed {
						break attempts
					}
					redoUsed = true
					if err := sleepCtx(ctx, o.pendingJobsWait); err != nil {
						failure = err.Error()
						break attempts
					}
					continue
				case ActionNextAttempt:
					continue attempts
				default:
					break attempts
				}
			}

			url, err := o.images.Poll(ctx, jobID)
			if err != nil {
				// A job that was accepted but never produced an image is not
				// worth resubmitting, the same prompt already passed moderation.
				failure = err.Error()
				o.logger.Error().Err(err).Int("item", index+1).Str("job_id", jobID).Msg("book: illustration poll failed")
				break attempts
			}
			return GeneratedImage{
				Prompt:            prompt,
				GenerationID:      jobID,
				URL:               url,
				PromptVersionUsed: promptVersion,
			}
		}
	}

	o.logger.Error().Int("item", index+1).Str("reason", failure).Msg("book: illustration failed, using placeholder")
	return GeneratedImage{
		Prompt:            prompt,
		URL:               placeholderURL(dims, index),
		Error:             failure,
		PromptVersionUsed: promptVersion,
	}
}

func (o *Orchestrator) buildPrompt(item illustrationItem, scene, keyFeatures, fullAppearance, stylePrompt, shot string) string {
	if item.kind == itemCover {
		return fmt.Sprintf(`%s. Children's book cover: "%s". Featuring main character: %s. Full appearance details: (%s). Theme: '%s'. Magical, inviting, dynamic scene with a sense of wonder. Vibrant colors. Composition: %s.`,
			stylePrompt, item.title, keyFeatures, fullAppearance, item.theme, shot)
	}
	return fmt.Sprintf(`%s. Illustration for a children's story. Main character: %s. Full appearance details: (%s). Scene based on this summary: "%s". Ensure all mentioned characters and interactions from the summary are depicted. Shot: %s. The illustration must be dynamic, showing the main character actively participating and integrated into a detailed environment. Avoid static portraits. Focus on the narrative moment, action, and emotions.`,
		stylePrompt, keyFeatures, fullAppearance, scene, shot)
}

// placeholderURL is the deterministic stand-in for a failed illustration.
// The renderer recognizes it by host and swaps in its own fallback block.
func placeholderURL(dims Dimensions, index int) string {
	return fmt.Sprintf("https://placehold.co/%dx%d/FF0000/FFFFFF?text=Image+Gen+Failed+%d", dims.Width, dims.Height, index+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
