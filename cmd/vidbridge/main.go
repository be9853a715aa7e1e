package main

import (
	"fmt"
	"os"

	"github.com/PizzaHomicide/vidbridge/internal/config"
	"github.com/PizzaHomicide/vidbridge/internal/domain"
	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/player"
	"github.com/PizzaHomicide/vidbridge/internal/repository/catalog"
	"github.com/PizzaHomicide/vidbridge/internal/service"
	"github.com/PizzaHomicide/vidbridge/internal/ui/tui"
	"github.com/PizzaHomicide/vidbridge/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// It is unrecoverable if we cannot produce an application config
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialise logger
	logger, err := log.New(log.Config{
		Level:    cfg.Logging.Level,
		FilePath: cfg.Logging.FilePath,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	// Set the default global logger
	log.SetDefaultLogger(logger)

	log.Info("Starting up vidbridge", "version", version.GetVersion(), "build_time", version.GetBuildTime())

	if err := run(cfg); err != nil {
		log.Error("Unhandled error while running vidbridge", "error", err)
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		logger.Close()
		os.Exit(1)
	}

	log.Info("vidbridge shutting down.  Goodbye!")
}

func run(cfg *config.Config) error {
	backend, err := player.CreateBackend(cfg)
	if err != nil {
		return fmt.Errorf("invalid player configuration: %w", err)
	}

	var repo domain.MediaRepository
	if cfg.Library.CatalogURL != "" {
		client, err := catalog.NewClient(cfg.Library.CatalogURL, cfg.Library.CatalogToken)
		if err != nil {
			return fmt.Errorf("failed to create catalog client: %w", err)
		}
		repo = catalog.NewMediaRepository(client)
	}
	library := service.NewLibraryService(cfg.Library.Entries, repo)

	return tui.Run(backend, player.FileHost{AssetDir: cfg.Library.AssetDir}, library)
}
