package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/snapdish/core/internal/adapters/events"
	"github.com/snapdish/core/internal/adapters/storage"
	"github.com/snapdish/core/internal/application/services"
	"github.com/snapdish/core/internal/domain/entities"
	"github.com/snapdish/core/internal/domain/providers"
	redisclient "github.com/snapdish/core/internal/infrastructure/clients/redis"
	"github.com/snapdish/core/internal/infrastructure/clients/visionapi"
	"github.com/snapdish/core/internal/infrastructure/observability"
	"github.com/snapdish/core/pkg/config"
)

func main() {
	healthOnly := flag.Bool("health", false, "probe the vision API and exit")
	useRedis := flag.Bool("redis", false, "persist results and events through Redis")
	background := flag.Bool("background", false, "generate recipes through the background job tracker")
	env := flag.String("env", "development", "environment name for log formatting")
	flag.Parse()

	// Optional .env for local development; missing files are fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger("snapdish-analyzer", *env)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
		}
	}

	client, err := visionapi.NewClient(&cfg.VisionAPI)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vision API client")
	}

	if *healthOnly {
		if client.Health(ctx) {
			fmt.Println("vision API: ok")
			return
		}
		fmt.Println("vision API: unreachable")
		os.Exit(1)
	}

	imagePaths := flag.Args()
	if len(imagePaths) == 0 {
		logger.Fatal().Msg("usage: analyzer [flags] image [image ...]")
	}

	var store providers.ResultStore
	var bus providers.EventBus
	if *useRedis {
		rdb, err := redisclient.NewClient(&cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		store = storage.NewRedisStore(rdb)
		bus = events.NewRedisEventBus(rdb)
	} else {
		store = storage.NewMemoryStore()
		bus = events.NewMemoryEventBus()
	}
	defer bus.Close()

	images := make([][]byte, 0, len(imagePaths))
	for _, path := range imagePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("failed to read image")
		}
		images = append(images, data)
	}

	orchestrator := services.NewAnalysisOrchestrator(client, store, bus, cfg.Analysis)

	logger.Info().Int("images", len(images)).Msg("starting detection")
	if err := orchestrator.Detect(ctx, images, nil); err != nil {
		logger.Fatal().Err(err).Msg("detection failed")
	}

	if warning := orchestrator.Warning(); warning != "" {
		logger.Warn().Msg(warning)
	}

	fmt.Println("Detected ingredients:")
	for _, ing := range orchestrator.Ingredients() {
		fmt.Printf("  - %s (confidence %.2f)\n", ing.Name, ing.Confidence)
	}

	if *background {
		runBackgroundJob(ctx, client, store, bus, cfg.Jobs, orchestrator.Ingredients(), images[0])
		return
	}

	profile, err := store.LoadUserProfile(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load user profile, generating without it")
		profile = nil
	}

	logger.Info().Msg("generating recipes")
	if err := orchestrator.Generate(ctx, profile, nil); err != nil {
		logger.Fatal().Err(err).Msg("generation failed")
	}

	result := orchestrator.Result()
	fmt.Println("Recipes:")
	for _, recipe := range result.Recipes {
		fmt.Printf("  %s", recipe.Name)
		if recipe.Servings > 0 {
			fmt.Printf(" (serves %d)", recipe.Servings)
		}
		fmt.Println()
		for i, step := range recipe.Instructions {
			fmt.Printf("    %d. %s\n", i+1, step)
		}
	}

	if err := orchestrator.Save(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to save analysis")
	}
	logger.Info().Str("analysis_id", result.ID).Msg("analysis saved")
}

// runBackgroundJob submits generation to the tracker and streams job updates
// until the job reaches a terminal state. The tracker persists the finished
// result itself.
func runBackgroundJob(ctx context.Context, client providers.AnalysisProvider, store providers.ResultStore, bus providers.EventBus, cfg config.JobsConfig, ingredients []entities.Ingredient, thumbnail []byte) {
	logger := observability.GetLogger()

	updates, err := bus.Subscribe(ctx, providers.EventChannelJobs)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to subscribe to job updates")
	}

	tracker := services.NewBackgroundJobTracker(client, store, bus, cfg)
	jobID := tracker.Submit(ingredients, thumbnail)
	logger.Info().Str("job_id", jobID).Msg("background job submitted")

	for event := range updates {
		if event.Job == nil || event.Job.ID != jobID {
			continue
		}
		fmt.Printf("job %s: %s\n", event.Job.ID, event.Job.Status)
		if event.Job.Status.IsTerminal() {
			break
		}
	}
	tracker.Wait()

	job := tracker.Job(jobID)
	if job == nil || job.Status != entities.JobStatusFinished {
		reason := "job not found"
		if job != nil {
			reason = job.FailureReason
		}
		logger.Fatal().Str("reason", reason).Msg("background generation failed")
	}

	fmt.Println("Recipes:")
	for _, recipe := range job.Recipes {
		fmt.Printf("  %s\n", recipe.Name)
	}
}
