package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwinters/go-spotify-muse/internal/cache"
	"github.com/cwinters/go-spotify-muse/internal/config"
	"github.com/cwinters/go-spotify-muse/internal/db"
	"github.com/cwinters/go-spotify-muse/internal/gemini"
	"github.com/cwinters/go-spotify-muse/internal/history"
	"github.com/cwinters/go-spotify-muse/internal/recommend"
	"github.com/cwinters/go-spotify-muse/internal/web"
	webfs "github.com/cwinters/go-spotify-muse/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web application",
	Long: `Run the Spotify Muse web server. Requires SPOTIFY_ID, SPOTIFY_SECRET
and GEMINI_API_KEY. With DATABASE_URL set, sessions, recommendation history
and feedback persist in PostgreSQL; without it everything lives in memory.
REDIS_URL switches the data cache from in-process to Redis.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides MUSE_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	ctx := cmd.Context()

	llm, err := gemini.NewClient(gemini.Config{APIKey: cfg.GeminiKey})
	if err != nil {
		return fmt.Errorf("creating gemini client: %w", err)
	}

	dataCache, closeCache, err := buildCache(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeCache()

	serverCfg := web.ServerConfig{
		Addr:         cfg.Addr,
		ClientID:     cfg.SpotifyID,
		ClientSecret: cfg.SpotifySecret,
		RedirectURI:  cfg.RedirectURI,
	}

	var store history.Store
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		store = database.Recommendations()
		serverCfg.Sessions = web.NewDBSessionStore(database)
		serverCfg.Users = database.Users()
		serverCfg.Feedback = database.Feedback()

		svc := recommend.New(dataCache, llm, history.New(store), database.Feedback())
		serverCfg.Recommender = svc
	} else {
		log.Println("DATABASE_URL not set; running with in-memory sessions and history")
		store = history.NewMemoryStore()
		svc := recommend.New(dataCache, llm, history.New(store), noFeedback{})
		serverCfg.Recommender = svc
	}

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}
	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}
	serverCfg.TemplatesFS = templates
	serverCfg.StaticFS = static

	server, err := web.NewServer(serverCfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}

// buildCache picks the Redis cache when configured, the in-process one
// otherwise. The returned func releases the backend.
func buildCache(ctx context.Context, redisURL string) (cache.Cache, func(), error) {
	if redisURL == "" {
		return cache.NewMemory(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	r, err := cache.NewRedis(connectCtx, redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return r, func() { _ = r.Close() }, nil
}

// noFeedback backs the insights endpoint when no database is configured.
type noFeedback struct{}

func (noFeedback) ListForUser(_ context.Context, _ string, _ int) ([]db.Feedback, error) {
	return nil, nil
}
