// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/yama-shu/gourmet-battle/internal/database"
	"github.com/yama-shu/gourmet-battle/internal/handlers"
	"github.com/yama-shu/gourmet-battle/internal/middleware"
	"github.com/yama-shu/gourmet-battle/internal/shops"
	"github.com/yama-shu/gourmet-battle/internal/store"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(lvl)
	}

	ctx := context.Background()

	// Room store: Redis when configured, in-process otherwise. The memory
	// store only synchronizes sessions on this one instance.
	var roomStore store.RoomStore
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rs, err := store.NewRedisStore(ctx, addr, getEnvInt("REDIS_DB", 0), logger)
		if err != nil {
			log.Fatalf("redis connect failed: %v", err)
		}
		roomStore = rs
		logger.Infof("using redis room store at %s", addr)
	} else {
		roomStore = store.NewMemoryStore()
		logger.Warn("REDIS_ADDR not set, using in-memory room store")
	}

	// Hotpepper proxy: a missing API key leaves the client nil and the
	// handler reports the configuration error per request.
	var shopClient *shops.Client
	if apiKey := os.Getenv("HOTPEPPER_API_KEY"); apiKey != "" {
		shopClient = shops.NewClient(shops.DefaultBaseURL, apiKey)
	} else {
		logger.Warn("HOTPEPPER_API_KEY not set, shop search will fail")
	}

	mux := http.NewServeMux()

	logMW := middleware.LogMiddleware(logger)
	mux.Handle("/api/shops", logMW(handlers.ShopSearchHandler(logger, shopClient)))

	// High scores need Postgres; skip the route when it is not configured.
	if os.Getenv("PG_HOST") != "" {
		if err := database.ConnectDB(ctx); err != nil {
			log.Fatalf("postgres connect failed: %v", err)
		}
		defer database.DB.Close()
		mux.Handle("/api/highscore", logMW(handlers.HighScoreHandler(logger)))
	} else {
		logger.Warn("PG_HOST not set, high score routes disabled")
	}

	// The websocket route stays unwrapped: the logging middleware's response
	// recorder would hide the Hijacker the upgrade needs.
	rs := handlers.NewRoomServer(logger, roomStore, clockwork.NewRealClock())
	mux.Handle("/room/ws", rs.Handler())

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(mux)

	addr := ":" + getEnv("PORT", "8080")
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", addr)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("server exited: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
