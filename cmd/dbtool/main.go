// Command dbtool prepares a Postgres database for the API.
//
//	dbtool schema          apply db/schema.sql
//	dbtool seed [file]     schema + zones and rules from JSON (SEED_FILE by default)
//	dbtool token <email>   print an admin access token
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"zone-coverage-backend/config"
	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/internal/infrastructure/cache"
	"zone-coverage-backend/internal/infrastructure/lock"
	"zone-coverage-backend/internal/repository/pgxrepo"
	"zone-coverage-backend/internal/seed"
	"zone-coverage-backend/internal/usecase"
	"zone-coverage-backend/pkg/logger"
	"zone-coverage-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dbtool schema | seed [file] | token <email>")
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	cfg := config.LoadConfig()
	logger.Init(cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	switch flag.Arg(0) {
	case "schema":
		pool := openPool(ctx, cfg)
		defer pool.Close()
		initSchema(ctx, pool)

	case "seed":
		path := cfg.SeedFile
		if flag.NArg() > 1 {
			path = flag.Arg(1)
		}
		if path == "" {
			log.Fatal("seed file is required (argument or SEED_FILE)")
		}
		pool := openPool(ctx, cfg)
		defer pool.Close()
		initSchema(ctx, pool)
		seedFromJSON(ctx, cfg, pool, path)

	case "token":
		if flag.NArg() < 2 {
			usage()
		}
		utils.SetSecret(cfg.JWTSecret)
		token, err := utils.GenerateJWT(uuid.NewString(), flag.Arg(1), domain.RoleAdmin, cfg.AdminTokenExpiry)
		if err != nil {
			log.Fatalf("token generation failed: %v", err)
		}
		fmt.Println(token)

	default:
		usage()
	}
}

func openPool(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		log.Fatalf("dbtool needs STORE_DRIVER=%s, got %q", config.StoreDriverPostgres, cfg.StoreDriver)
	}
	pool, err := pgxrepo.NewPgxPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Initializing database schema...")
	if err := pgxrepo.ApplySchema(ctx, pool); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")
}

func seedFromJSON(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, path string) {
	file, err := seed.Load(path)
	if err != nil {
		log.Fatal(err)
	}

	// dbtool is the only writer while it runs; a process-local lock is enough.
	rules := usecase.NewZoneRulesUsecase(
		pgxrepo.NewZoneRepository(pool),
		pgxrepo.NewScheduleRepository(pool),
		pgxrepo.NewBandRepository(pool),
		pgxrepo.NewExceptionRepository(pool),
		pgxrepo.NewTransactionManager(pool),
		lock.NewMemoryLocker(cfg.ZoneLockWait),
		cache.NewMemoryCache(cfg.CacheCoverageTTL, cfg.CacheCoverageTTL),
		cfg.ServiceLocation,
	)
	writeZone := func(ctx context.Context, z domain.Zone) (*domain.Zone, error) {
		return pgxrepo.UpsertZone(ctx, pool, z)
	}

	log.Println("Seeding database...")
	res, err := seed.Apply(ctx, file, writeZone, rules)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Printf("Seeding complete: %d zones (%d already had rules), %d schedules, %d bands, %d exceptions.",
		res.Zones, res.Skipped, res.Schedules, res.Bands, res.Exceptions)
}
