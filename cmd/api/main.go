package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zone-coverage-backend/config"
	"zone-coverage-backend/internal/delivery/http/middleware"
	v1 "zone-coverage-backend/internal/delivery/http/v1"
	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/internal/infrastructure/cache"
	"zone-coverage-backend/internal/infrastructure/lock"
	"zone-coverage-backend/internal/repository/memory"
	"zone-coverage-backend/internal/repository/pgxrepo"
	"zone-coverage-backend/internal/seed"
	"zone-coverage-backend/internal/usecase"
	"zone-coverage-backend/pkg/logger"
	"zone-coverage-backend/pkg/storage"
	"zone-coverage-backend/pkg/utils"

	"github.com/NYTimes/gziphandler"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const serviceName = "zone-coverage-backend"

var version = "dev"

// repositories groups the store implementation selected by STORE_DRIVER.
type repositories struct {
	zones      domain.ZoneRepository
	schedules  domain.ScheduleRepository
	bands      domain.BandRepository
	exceptions domain.ExceptionRepository
	txManager  domain.TransactionManager
	// writeZone is only used to load SEED_FILE into the memory driver.
	writeZone seed.ZoneWriter
	ping      func(ctx context.Context) error
	close     func()
}

func openPostgres(ctx context.Context, cfg *config.Config) (*repositories, error) {
	pool, err := pgxrepo.NewPgxPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &repositories{
		zones:      pgxrepo.NewZoneRepository(pool),
		schedules:  pgxrepo.NewScheduleRepository(pool),
		bands:      pgxrepo.NewBandRepository(pool),
		exceptions: pgxrepo.NewExceptionRepository(pool),
		txManager:  pgxrepo.NewTransactionManager(pool),
		ping:       pool.Ping,
		close:      pool.Close,
	}, nil
}

func openMemory() *repositories {
	store := memory.NewStore()
	return &repositories{
		zones:      store,
		schedules:  store,
		bands:      store,
		exceptions: store,
		txManager:  memory.NewTransactionManager(),
		writeZone: func(_ context.Context, z domain.Zone) (*domain.Zone, error) {
			saved := store.SaveZone(z)
			return &saved, nil
		},
		ping:  func(context.Context) error { return nil },
		close: func() {},
	}
}

func openLocker(ctx context.Context, cfg *config.Config) (domain.ZoneLocker, *redis.Client, error) {
	if cfg.LockDriver != config.LockDriverRedis {
		return lock.NewMemoryLocker(cfg.ZoneLockWait), nil, nil
	}
	client, err := lock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return lock.NewRedisLocker(client, cfg.ZoneLockTTL, cfg.ZoneLockWait), client, nil
}

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	ctx := context.Background()

	var repos *repositories
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		repos = openMemory()
		log.Warn().Msg("Using in-memory store; rules are lost on restart")
	default:
		var err error
		repos, err = openPostgres(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		log.Info().Msg("Successfully connected to PostgreSQL via pgx")
	}
	defer repos.close()

	locker, redisClient, err := openLocker(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info().Str("addr", cfg.RedisAddr).Msg("Zone locks backed by Redis")
	}

	// Default expiration 30m, cleanup every 60m
	memCache := cache.NewMemoryCache(30*time.Minute, 60*time.Minute)

	// --- Storage Module (R2) ---
	var archive usecase.SnapshotArchive
	if cfg.R2Enabled() {
		r2Storage, err := storage.NewR2Storage(
			ctx,
			cfg.R2AccountID,
			cfg.R2AccessKeyID,
			cfg.R2AccessKeySecret,
			cfg.R2BucketName,
			cfg.R2PublicURL,
			cfg.R2UploadTimeout,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 Storage")
		}
		archive = r2Storage
	} else {
		log.Info().Msg("R2 not configured; coverage snapshots disabled")
	}

	// --- Modules Initialization ---

	rulesUC := usecase.NewZoneRulesUsecase(
		repos.zones,
		repos.schedules,
		repos.bands,
		repos.exceptions,
		repos.txManager,
		locker,
		memCache,
		cfg.ServiceLocation,
	)
	availabilityUC := usecase.NewAvailabilityUsecase(
		repos.zones,
		repos.schedules,
		repos.bands,
		repos.exceptions,
		cfg.ServiceLocation,
	)
	coverageUC := usecase.NewCoverageUsecase(
		repos.zones,
		repos.schedules,
		repos.bands,
		repos.exceptions,
		memCache,
		cfg.CacheCoverageTTL,
		domain.GapFillDefaults{Cost: cfg.GapFillDefaultCost, ExtraMinutes: cfg.GapFillDefaultMinutes},
		archive,
	)

	if repos.writeZone != nil && cfg.SeedFile != "" {
		file, err := seed.Load(cfg.SeedFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load seed file")
		}
		res, err := seed.Apply(ctx, file, repos.writeZone, rulesUC)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed memory store")
		}
		log.Info().Int("zones", res.Zones).Int("schedules", res.Schedules).
			Int("bands", res.Bands).Int("exceptions", res.Exceptions).Msg("Memory store seeded")
	}

	availabilityHandler := v1.NewAvailabilityHandler(availabilityUC, cfg.ServiceLocation)
	configHandler := v1.NewConfigHandler(memCache, repos.zones)
	adminConfigHandler := v1.NewAdminConfigHandler(memCache, repos.zones)
	adminRulesHandler := v1.NewAdminZoneRulesHandler(rulesUC)
	adminCoverageHandler := v1.NewAdminCoverageHandler(coverageUC)

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /api/v1/zones/{id}/availability", availabilityHandler.GetAvailability)
	mux.HandleFunc("GET /api/v1/config/enums", configHandler.GetEnums)

	// Admin (Protected)
	adminMiddleware := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.AdminMiddleware(h))
	}

	mux.Handle("GET /api/v1/admin/zones", adminMiddleware(adminConfigHandler.ListZones))
	mux.Handle("GET /api/v1/admin/zones/{id}", adminMiddleware(adminConfigHandler.GetZone))
	mux.Handle("POST /api/v1/admin/config/refresh", adminMiddleware(adminConfigHandler.RefreshEnums))

	// Weekly schedule
	mux.Handle("GET /api/v1/admin/zones/{id}/schedules", adminMiddleware(adminRulesHandler.ListSchedules))
	mux.Handle("POST /api/v1/admin/zones/{id}/schedules", adminMiddleware(adminRulesHandler.CreateSchedule))
	mux.Handle("PUT /api/v1/admin/schedules/{id}", adminMiddleware(adminRulesHandler.UpdateSchedule))
	mux.Handle("DELETE /api/v1/admin/schedules/{id}", adminMiddleware(adminRulesHandler.DeleteSchedule))

	// Distance bands
	mux.Handle("GET /api/v1/admin/zones/{id}/bands", adminMiddleware(adminRulesHandler.ListBands))
	mux.Handle("POST /api/v1/admin/zones/{id}/bands", adminMiddleware(adminRulesHandler.CreateBand))
	mux.Handle("PUT /api/v1/admin/bands/{id}", adminMiddleware(adminRulesHandler.UpdateBand))
	mux.Handle("DELETE /api/v1/admin/bands/{id}", adminMiddleware(adminRulesHandler.DeleteBand))

	// Calendar exceptions
	mux.Handle("GET /api/v1/admin/zones/{id}/exceptions", adminMiddleware(adminRulesHandler.ListExceptions))
	mux.Handle("POST /api/v1/admin/zones/{id}/exceptions", adminMiddleware(adminRulesHandler.CreateException))
	mux.Handle("PUT /api/v1/admin/exceptions/{id}", adminMiddleware(adminRulesHandler.UpdateException))
	mux.Handle("DELETE /api/v1/admin/exceptions/{id}", adminMiddleware(adminRulesHandler.DeleteException))

	// Coverage analytics
	mux.Handle("GET /api/v1/admin/zones/{id}/coverage", adminMiddleware(adminCoverageHandler.GetZoneCoverage))
	mux.Handle("GET /api/v1/admin/coverage", adminMiddleware(adminCoverageHandler.GetCoverageSummary))
	mux.Handle("POST /api/v1/admin/coverage/snapshots", adminMiddleware(adminCoverageHandler.CreateSnapshot))
	mux.Handle("GET /api/v1/admin/coverage/snapshots", adminMiddleware(adminCoverageHandler.ListSnapshots))

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := repos.ping(pingCtx); err != nil {
			logger.WithContext(r.Context()).Error().Err(err).Msg("Health check failed")
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": "unreachable"})
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": cfg.StoreDriver})
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler) // Support root health check for Load Balancers

	rateLimiter := middleware.NewRateLimiter(
		ctx,
		rate.Limit(cfg.RateLimitRPS),
		cfg.RateLimitBurst,
		time.Minute,   // cleanup period
		3*time.Minute, // client TTL
	)

	// Apply CORS, Request Logger, Rate Limit, and Gzip
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.ServiceStart(serviceName, version, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	rateLimiter.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.ServiceStop(serviceName)
}
