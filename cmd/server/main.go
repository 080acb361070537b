package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"cdr-ingest/internal/adapter"
	"cdr-ingest/internal/config"
	"cdr-ingest/internal/logger"
	"cdr-ingest/internal/metrics"
	"cdr-ingest/internal/resource"
	"cdr-ingest/internal/server"
	"cdr-ingest/internal/txn"
	"cdr-ingest/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cdr-ingest: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ====================================================================
	// CPU 설정
	// ====================================================================
	//
	// 컨테이너 CPU quota 보다 GOMAXPROCS 가 크면 스케줄링 낭비가 생긴다.
	// 파이프라인은 producer / sink 두 goroutine 이 대부분의 일을 하므로 기본 2.
	// ====================================================================
	if v := os.Getenv("GOMAXPROCS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			runtime.GOMAXPROCS(n)
		}
	} else {
		runtime.GOMAXPROCS(2)
	}

	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config (optional)")
	flag.Parse()

	// ====================================================================
	// Config & Logger
	// ====================================================================
	//
	// YAML → env override → defaults. 잘못된 설정이면 시작하지 않는다.
	// logger 는 registry 에 가장 먼저 등록하지만 Cleanup 에서는 마지막에 닫힌다.
	// ====================================================================
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	sink, err := logger.Init(cfg)
	if err != nil {
		return err
	}

	reg := resource.NewRegistry()
	if err := reg.Register(resource.LogResourceKey, sink); err != nil {
		return err
	}
	defer func() {
		if err := reg.Cleanup(); err != nil {
			fmt.Fprintf(os.Stderr, "cdr-ingest: cleanup: %v\n", err)
		}
	}()

	log := logger.Component("main")

	// ====================================================================
	// Metrics
	// ====================================================================
	m := metrics.New()
	promReg := prometheus.NewRegistry()
	if err := m.Register(promReg); err != nil {
		return err
	}
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// ====================================================================
	// Pipeline
	// ====================================================================
	//
	//  coordinator ← adapter (claim / stream)
	//       ↑            ↓ LoadBatch
	//    Settle ← worker.Manager → Spooler (S3 or local dir)
	// ====================================================================
	coord := txn.NewManager(cfg.MaxTransactions, m, logger.Component("txn"))

	clock := worker.NewClock(nil)
	spool, err := newSpooler(ctx, cfg, m, clock)
	if err != nil {
		return err
	}
	mgr := worker.NewManager(cfg, m, coord, spool, clock, logger.Component("worker"))

	opts := []adapter.Option{
		adapter.WithLogger(logger.Component("adapter")),
		adapter.WithMetrics(m),
		adapter.WithScheduler(mgr),
	}
	if cfg.SortInput {
		opts = append(opts, adapter.WithFilePolicy(adapter.SortedFilePolicy{}))
	}
	in, err := adapter.New(cfg.Input, cfg.BatchSize, coord, opts...)
	if err != nil {
		return err
	}
	coord.Attach(in)
	if err := reg.Register("input", in); err != nil {
		return err
	}

	// ====================================================================
	// Admin HTTP
	// ====================================================================
	h := server.NewHandler(in, coord, m, promReg, logger.Component("http"))
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      h.Routes(),
		ReadTimeout:  8 * time.Second,
		WriteTimeout: 8 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ====================================================================
	// Run
	// ====================================================================
	//
	// SIGTERM/SIGINT → ctx 취소:
	//   - HTTP 서버 종료
	//   - worker: producer 정지 → sink 큐 drain → 정산
	// 파이프라인이 에러로 멈추면 (claim 된 파일을 열 수 없음 등) 프로세스도 종료한다.
	// ====================================================================
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("admin server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		return nil
	})

	g.Go(func() error {
		return mgr.Run(gctx, in)
	})

	err = g.Wait()
	mgr.Shutdown()

	log.Info().Str("metrics", m.String()).Msg("shutdown complete")
	return err
}

func newSpooler(ctx context.Context, cfg config.Config, m *metrics.Metrics, clock *worker.Clock) (worker.Spooler, error) {
	if cfg.OutputBucket == "" {
		return worker.DirSpooler{Dir: cfg.OutputDir}, nil
	}
	up, err := worker.NewS3Uploader(ctx, cfg, m)
	if err != nil {
		return nil, err
	}
	return worker.S3Spooler{Uploader: up, Prefix: cfg.OutputPrefix, Clock: clock}, nil
}
