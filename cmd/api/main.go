package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/agora/backend/internal/analysis/vote"
	"github.com/zhouzirui/agora/backend/internal/config"
	"github.com/zhouzirui/agora/backend/internal/handler"
	"github.com/zhouzirui/agora/backend/internal/service/replay"
	"github.com/zhouzirui/agora/backend/internal/service/session"
	"github.com/zhouzirui/agora/backend/internal/service/transport"
	"github.com/zhouzirui/agora/backend/internal/source"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store := session.NewStore()
	tracker := transport.NewTracker(store, newSubscriber(cfg.Debate))
	defer tracker.Close()
	log.Printf("live transport=%s upstream=%s", cfg.Debate.Transport, cfg.Debate.BaseURL)

	replayOpts := []replay.Option{replay.WithPeriod(cfg.Replay.Tick)}
	if cfg.Replay.ScrubFromStart {
		replayOpts = append(replayOpts, replay.WithScrubFromStart())
	}
	replays := replay.NewRegistry(replayOpts...)
	defer replays.CloseAll()

	router := handler.NewRouter(ctx, handler.Services{
		Store:      store,
		Tracker:    tracker,
		Aggregator: vote.NewAggregator(cfg.Debate.VoteThreshold),
		Replays:    replays,
		Fetcher:    source.NewHTTPFetcher(cfg.Debate.BaseURL, cfg.Debate.FetchTimeout),
	})

	startServer(ctx, cfg.Server, router)
}

// newSubscriber 根据配置选择直播事件接入方式
func newSubscriber(cfg config.DebateConfig) transport.Subscriber {
	if cfg.Transport == config.TransportWebSocket {
		return source.NewWebSocketSubscriber(cfg.BaseURL)
	}
	return source.NewSSESubscriber(cfg.BaseURL, nil)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		// 关闭信号到达时结束长连接的 SSE 请求
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	log.Printf("Agora backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
