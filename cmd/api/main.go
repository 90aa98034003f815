package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/twojabajka/server/internal/book"
	"github.com/twojabajka/server/internal/http/handlers"
	"github.com/twojabajka/server/internal/http/httpapi"
	"github.com/twojabajka/server/internal/infra"
	"github.com/twojabajka/server/internal/providers/imghost"
	"github.com/twojabajka/server/internal/providers/leonardo"
	"github.com/twojabajka/server/internal/providers/openai"
	"github.com/twojabajka/server/internal/render"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	textClient, err := openai.NewClient(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build text client")
	}

	imageHost, err := imghost.NewClient(imghost.Options{
		APIKey:    cfg.ImgBBAPIKey,
		UploadURL: cfg.ImgBBUploadURL,
		Logger:    &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build image host client")
	}

	// One process-wide limiter paces all synthesis submissions.
	submitLimiter := rate.NewLimiter(rate.Limit(float64(cfg.SubmitRatePerMin)/60.0), 1)
	synthesizer, err := leonardo.NewClient(leonardo.Options{
		APIKey:  cfg.LeonardoAPIKey,
		BaseURL: cfg.LeonardoBaseURL,
		ModelID: cfg.LeonardoModelID,
		Limiter: submitLimiter,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build synthesizer client")
	}

	orchestrator, err := book.NewOrchestrator(book.OrchestratorOptions{
		Host:      imageHost,
		Describer: book.NewDescriber(textClient, cfg.OpenAIVisionModel, &logger),
		Writer:    book.NewStoryWriter(textClient, &logger),
		Scenes:    book.NewScenePrompter(textClient, &logger),
		Images:    synthesizer,
		Logger:    &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	renderer := render.NewRenderer(render.RendererOptions{
		LLM:      textClient,
		FontsDir: cfg.FontsDir,
		Logger:   &logger,
	})

	app := &handlers.App{
		Cfg:         cfg,
		Log:         &logger,
		Books:       orchestrator,
		Renderer:    renderer,
		Themes:      book.NewThemeSuggester(textClient),
		Dedications: book.NewDedicationWriter(textClient),
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
