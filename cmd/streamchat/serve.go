package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/streamchat/internal/config"
	"github.com/weiawesome/streamchat/internal/credential"
	"github.com/weiawesome/streamchat/internal/handler"
	"github.com/weiawesome/streamchat/internal/hub"
	"github.com/weiawesome/streamchat/internal/identity"
	"github.com/weiawesome/streamchat/internal/moderation"
	"github.com/weiawesome/streamchat/internal/platform"
	"github.com/weiawesome/streamchat/internal/registry"
	"github.com/weiawesome/streamchat/internal/relay"
	"github.com/weiawesome/streamchat/internal/repository"
	"github.com/weiawesome/streamchat/internal/service"
	"github.com/weiawesome/streamchat/pkg/database"
	"github.com/weiawesome/streamchat/pkg/jwt"
	pkglog "github.com/weiawesome/streamchat/pkg/log"
	"github.com/weiawesome/streamchat/pkg/pubsub"
)

func init() {
	run := func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	}

	// serve is also the default when no subcommand is given.
	rootCmd.RunE = run
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE:  run,
	})
}

func serve(parent context.Context) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize structured logger
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session history
	var history repository.HistoryRepository = repository.NopHistoryRepository{}
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database.Config)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer database.Close(db)

		repo := repository.NewGormHistoryRepository(db)
		if err := repo.Migrate(); err != nil {
			return fmt.Errorf("migrate session history: %w", err)
		}
		history = repo
		logger.Info().Str("driver", cfg.Database.Driver).Msg("session history enabled")
	}

	// Chat relay bus
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("connect relay bus: %w", err)
	}
	defer bus.Close()

	// Media platform
	twilio := platform.NewTwilioClient(platform.Config{
		AccountSID:   cfg.Platform.AccountSID,
		APIKeySID:    cfg.Platform.APIKeySID,
		APIKeySecret: cfg.Platform.APIKeySecret,
		VideoBaseURL: cfg.Platform.VideoBaseURL,
		MediaBaseURL: cfg.Platform.MediaBaseURL,
		Timeout:      cfg.Platform.Timeout,
	})

	signer, err := jwt.NewSigner(cfg.Platform.AccountSID, cfg.Platform.APIKeySID, cfg.Platform.APIKeySecret, cfg.Platform.TokenTTL)
	if err != nil {
		return fmt.Errorf("create token signer: %w", err)
	}

	// Services
	lifecycle := service.NewLifecycleService(twilio, registry.New(twilio), history)
	issuer := credential.NewIssuer(twilio, signer, cfg.Platform.PlaybackTTL)

	classifier := moderation.NewCohereClassifier(moderation.Config{
		APIKey:  cfg.Moderation.APIKey,
		BaseURL: cfg.Moderation.BaseURL,
		Model:   cfg.Moderation.Model,
		Timeout: cfg.Moderation.Timeout,
	})

	instanceID, err := identity.NewUUIDGenerator().Generate()
	if err != nil {
		return err
	}
	chatHub := hub.NewHub(cfg.WebSocket)
	chatRelay := relay.New(bus, chatHub, pubsub.ChatRelayChannel(cfg.Relay.Namespace), instanceID)
	chat := service.NewChatService(classifier, chatRelay, lifecycle)

	// Setup Gin router
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(handler.CORS(cfg.Server.AllowedOrigins))

	handler.NewHandler(lifecycle, chat, issuer).RegisterRoutes(r)
	handler.NewWSHandler(chatHub, chat, cfg.WebSocket, cfg.Server.AllowedOrigins).RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		chatHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		chatRelay.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info().
			Str("addr", addr).
			Str("relay_driver", cfg.PubSub.Driver).
			Str("instance", instanceID).
			Msg("streamchat starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
