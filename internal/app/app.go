package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"petlens/internal/config"
	"petlens/internal/logger"
	"petlens/internal/repository"
	"petlens/internal/repository/redis"
	"petlens/internal/repository/sqlite"
	"petlens/internal/routes"
	"petlens/internal/service"
	"petlens/internal/service/ai"
	"petlens/internal/service/camera"
	"petlens/internal/service/capture"
	"petlens/internal/service/community"
	"petlens/internal/service/storage"
	"petlens/internal/service/vision"
	"petlens/internal/service/websocket"
	"petlens/internal/session"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	store         repository.BlobStore
	detector      *ai.DetectorService
	source        vision.FrameSource
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	manager       *service.Manager
	server        *http.Server
	closers       []io.Closer
}

// New builds every component. A missing camera, model or unreachable store
// is an error.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.config

	orientation, err := vision.ParseOrientation(cfg.Orientation)
	if err != nil {
		return err
	}

	a.db, err = sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, a.db)

	switch cfg.StoreDriver {
	case config.StoreRedis:
		store, err := redis.New(ctx, redis.Config{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisPrefix,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store)
		a.store = store
	default:
		a.store = sqlite.NewBlobStore(a.db)
	}
	a.logger.Info("Blob store: %s", cfg.StoreDriver)

	a.detector, err = ai.NewDetectorService(cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to load detector: %w", err)
	}
	a.closers = append(a.closers, a.detector)

	a.source, err = openSource(cfg, a.logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, a.source)

	sessions := session.NewStore(time.Duration(cfg.SessionTTLHours) * time.Hour)
	accounts := community.NewAccountService(a.store, sessions, a.logger)
	posts := community.NewPostService(a.store, a.detector, a.logger)
	matcher := vision.NewMatcher(posts, a.detector, cfg.MatchRecompute, a.logger)

	detections := sqlite.NewDetectionRepository(a.db)
	a.hubService = websocket.NewHubService(a.logger)
	a.bufferService = storage.NewBufferService(cfg, a.logger, detections)

	a.manager = service.NewManager(service.ManagerOptions{
		Source:      a.source,
		Classifier:  a.detector,
		Orientation: orientation,
		Matcher:     matcher,
		Display:     image.Pt(cfg.DisplayWidth, cfg.DisplayHeight),
		Annotator:   a.detector,
		Hub:         a.hubService,
		History:     a.bufferService,
	}, a.logger)

	router := routes.SetupRoutes(routes.Services{
		Accounts:   accounts,
		Posts:      posts,
		Manager:    a.manager,
		Hub:        a.hubService,
		Detections: detections,
	}, cfg, a.logger)

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func openSource(cfg *config.Config, logger *logger.Logger) (vision.FrameSource, error) {
	if cfg.CaptureSource == config.SourceUDP {
		src, err := capture.ListenUDP(fmt.Sprintf(":%d", cfg.CapturePort), image.Pt(cfg.CaptureWidth, cfg.CaptureHeight), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open UDP frame source: %w", err)
		}
		return src, nil
	}
	return camera.Open(cfg, logger)
}

// Run serves until ctx is cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start background services
	go a.hubService.Run(ctx)
	bufferDone := make(chan struct{})
	go func() {
		a.bufferService.Run(ctx)
		close(bufferDone)
	}()
	pipelineDone := make(chan struct{})
	go func() {
		a.manager.Run(ctx)
		close(pipelineDone)
	}()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("🚀 PetLens listening on http://localhost:%d", a.config.Port)
		a.logger.Info("🤖 AI Model: %s", a.config.ModelPath)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		runErr = err
	case <-pipelineDone:
		runErr = errors.New("frame source stopped")
	}

	a.logger.Info("Shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP shutdown: %v", err)
	}

	cancel()
	// A UDP read returns as soon as the socket closes; a camera read
	// finishes its current frame before Close takes the device.
	a.source.Close()
	<-pipelineDone
	<-bufferDone

	return runErr
}

// close releases resources in reverse order of acquisition.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warning("Close: %v", err)
		}
	}
	a.closers = nil
}
