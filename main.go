package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"dmm-flipper/internal/api"
	"dmm-flipper/internal/db"
	"dmm-flipper/internal/engine"
	"dmm-flipper/internal/history"
	"dmm-flipper/internal/logger"
	"dmm-flipper/internal/wiki"
)

var version = "dev"

// historyRetentionDays bounds the cycle archive; anything older is pruned
// at startup.
const historyRetentionDays = 30

func main() {
	port := flag.Int("port", 13370, "HTTP server port")
	flag.Parse()

	// .env is optional; real env vars win either way.
	godotenv.Load()

	logger.Banner(version)

	database, err := db.Open()
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	if removed, err := database.PruneCycles(historyRetentionDays); err == nil && removed > 0 {
		logger.Info("DB", fmt.Sprintf("Pruned %d archived cycles older than %d days", removed, historyRetentionDays))
	}

	cfg := database.LoadConfig()
	logger.Stats("Capital", humanize.Comma(cfg.Capital)+" gp")
	logger.Stats("Margin band", fmt.Sprintf("%.1f%% to %.1f%%", cfg.MinMarginPct, cfg.MaxMarginPct))
	logger.Stats("Auto refresh", fmt.Sprintf("%v (every %ds)", cfg.AutoRefresh, cfg.RefreshIntervalSeconds))

	// The wiki feed wants a descriptive contact string in the User-Agent.
	feed := wiki.NewClient(os.Getenv("WIKI_USER_AGENT"))

	wd, _ := os.Getwd()
	dataDir := filepath.Join(wd, "data")
	os.MkdirAll(dataDir, 0755)

	store := history.NewStore(history.NewFilePort(filepath.Join(dataDir, "price_history.json")))
	if err := store.Load(); err != nil {
		logger.Warn("History", fmt.Sprintf("Could not load price history: %v", err))
	} else if n := store.ItemCount(); n > 0 {
		logger.Info("History", fmt.Sprintf("Loaded history for %d items", n))
	}

	tracker := engine.NewTracker(feed, store)
	srv := api.NewServer(cfg, feed, tracker, database, version)

	go refreshLoop(srv)

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	logger.Server(addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
}

// refreshLoop runs the first cycle immediately, then keeps refreshing on
// the configured interval while auto-refresh stays enabled. Config changes
// apply on the next tick.
func refreshLoop(srv *api.Server) {
	for {
		cfg := srv.Config()
		if cfg.AutoRefresh {
			start := time.Now()
			snap, _, err := srv.RunRefresh(nil)
			if err != nil {
				logger.Error("Cycle", fmt.Sprintf("Refresh failed: %v", err))
			} else {
				logger.Success("Cycle", fmt.Sprintf("#%d: %d opportunities, %d stable, %d movers in %s",
					snap.Cycle, len(snap.Opportunities), len(snap.StablePicks), len(snap.Movers),
					time.Since(start).Round(time.Millisecond)))
			}
		}
		interval := cfg.RefreshIntervalSeconds
		if interval < minLoopInterval {
			interval = minLoopInterval
		}
		time.Sleep(time.Duration(interval) * time.Second)
	}
}

// minLoopInterval keeps a corrupted config from spinning the loop.
const minLoopInterval = 15
