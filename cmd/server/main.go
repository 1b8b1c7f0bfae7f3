package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	v1 "github.com/selams/selams-web/internal/api/v1"
	"github.com/selams/selams-web/internal/auth"
	"github.com/selams/selams-web/internal/backend"
	"github.com/selams/selams-web/internal/cache"
	"github.com/selams/selams-web/internal/catalog"
	"github.com/selams/selams-web/internal/config"
	"github.com/selams/selams-web/internal/media"
	"github.com/selams/selams-web/internal/server"
	"github.com/selams/selams-web/internal/service"
	"github.com/selams/selams-web/internal/store"
	"github.com/selams/selams-web/internal/utils"
	"github.com/selams/selams-web/internal/web"
)

func main() {
	cfg, cfgErr := config.Load()
	env := os.Getenv("APP_ENV")
	if cfg != nil {
		env = cfg.Env
	}
	logger, err := utils.NewLogger(env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfgErr != nil {
		logger.Fatal("main: invalid configuration", zap.Error(cfgErr))
	}

	client, err := backend.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, backend.WithAvatarBucket(cfg.AvatarBucket))
	if err != nil {
		logger.Fatal("main: backend client", zap.Error(err))
	}

	checks := map[string]v1.Pinger{}

	var source catalog.Source
	if cfg.DatabaseURL != "" {
		st, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("main: connect database", zap.Error(err))
		}
		defer st.Close()
		source = st
		checks["db"] = st
		logger.Info("main: serving courses from database")
	} else {
		source = catalog.NewSample()
		logger.Info("main: DATABASE_URL not set, serving the sample catalog")
	}

	var profileCache cache.Profiles = cache.NewMemory(cfg.ProfileCacheTTL)
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisProfiles(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ProfileCacheTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			logger.Warn("main: redis unreachable, using in-process profile cache", zap.Error(err))
			_ = rc.Close()
		} else {
			defer rc.Close()
			profileCache = rc
			checks["cache"] = rc
		}
	}

	mediaStore, err := media.New(cfg)
	if err != nil {
		logger.Fatal("main: media store", zap.Error(err))
	}

	profiles := service.NewProfileService(client, profileCache, logger)
	courses := service.NewCourseService(source, mediaStore, logger)
	authn := auth.NewAuthenticator(cfg.SupabaseJWTSecret, client, profiles, client, cfg.CookieSecure, logger)
	limiter := auth.NewLoginLimiter(12*time.Second, 5)

	api := v1.NewAPI(v1.Deps{
		Config:   cfg,
		Log:      logger,
		Backend:  client,
		Auth:     authn,
		Profiles: profiles,
		Courses:  courses,
		Media:    mediaStore,
		Limiter:  limiter,
		Checks:   checks,
	})
	pages, err := web.NewPages(web.Deps{
		Config:   cfg,
		Log:      logger,
		Backend:  client,
		Auth:     authn,
		Profiles: profiles,
		Courses:  courses,
		Limiter:  limiter,
		Google:   web.NewGoogleSignIn(cfg),
	})
	if err != nil {
		logger.Fatal("main: templates", zap.Error(err))
	}

	srv := server.NewServer(cfg, logger, api, pages).NewHTTPServer()

	logger.Info("main: starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("main: server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: server is shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: forced shutdown", zap.Error(err))
		return
	}
	logger.Info("main: server stopped gracefully")
}
