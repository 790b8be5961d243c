package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kitvault-api/internal/cache"
	"kitvault-api/internal/config"
	"kitvault-api/internal/handler"
	"kitvault-api/internal/middleware"
	"kitvault-api/internal/model"
	"kitvault-api/internal/repository"
	"kitvault-api/internal/router"
	"kitvault-api/internal/service"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting KitVault API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize claim repository based on config
	var claimRepo repository.ClaimRepository
	switch cfg.ClaimDB.Type {
	case "mysql":
		db, err := sql.Open("mysql", cfg.ClaimDB.DSN())
		if err != nil {
			log.Fatalf("Failed to open MySQL: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping MySQL: %v", err)
		}
		defer db.Close()

		mysqlRepo, err := repository.NewMySQLClaimRepository(db)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL claim repository: %v", err)
		}
		claimRepo = mysqlRepo
		log.Println("MySQL claim repository initialized")
	case "redis":
		redisRepo, err := repository.NewRedisClaimRepository(repository.RedisClaimConfig{
			Addr:     cfg.ClaimDB.RedisAddress(),
			Password: cfg.ClaimDB.RedisPassword,
			DB:       cfg.ClaimDB.RedisDB,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Redis claim repository: %v", err)
		}
		defer redisRepo.Close()
		claimRepo = redisRepo
		log.Println("Redis claim repository initialized")
	default: // sqlite
		sqliteRepo, err := repository.NewSQLiteClaimRepository(cfg.ClaimDB.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite claim repository: %v", err)
		}
		defer sqliteRepo.Close()
		claimRepo = sqliteRepo
		log.Println("SQLite claim repository initialized")
	}

	// Initialize kit definition storage and the catalog
	kitStore, err := repository.NewKitFileStore(cfg.Kits.Dir)
	if err != nil {
		log.Fatalf("Failed to initialize kit store: %v", err)
	}

	codec, err := service.NewItemCodec()
	if err != nil {
		log.Fatalf("Failed to initialize item codec: %v", err)
	}
	defer codec.Close()

	catalog := service.NewCatalog(kitStore, codec)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	loaded, err := catalog.Reload(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to load kits: %v", err)
	}
	if loaded == 0 && cfg.Kits.SeedStarter {
		seedStarterKit(catalog)
	}

	claimService := service.NewClaimService(catalog, codec, claimRepo)

	// Debounce cache for the interactive claim surface
	debounceCache := cache.NewMemoryCache()
	defer debounceCache.Close()

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version)
	kitHandler := handler.NewKitHandler(handler.KitHandlerConfig{
		Catalog:       catalog,
		Claims:        claimService,
		DebounceCache: debounceCache,
		Debounce:      cfg.Kits.ClaimDebounce,
		PerPage:       cfg.Kits.PerPage,
		AllowConsole:  cfg.Kits.ConsoleCommands,
	})
	adminHandler := handler.NewAdminHandler(catalog, claimRepo, cfg.ClaimDB.Type)

	// Create auth middleware with injected dependencies
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKeys: cfg.App.APIKeyList(),
	})

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		KitHandler:     kitHandler,
		AdminHandler:   adminHandler,
		AuthMiddleware: authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// seedStarterKit writes a sample kit so a fresh install has something to
// claim.
func seedStarterKit(catalog *service.Catalog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := catalog.Create(ctx, "starter", []model.Item{
		{Type: "apple", Count: 5},
		{Type: "bread", Count: 3},
		{Type: "sword", Count: 1, Attributes: map[string]string{"material": "wood"}},
	})
	if result != model.CreateSuccess {
		log.Printf("Warning: failed to seed starter kit: %s", result)
		return
	}
	log.Println("Seeded starter kit")
}
