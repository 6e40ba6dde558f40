package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"bidengine.ai/internal/persistence/indexdb"
	persistlog "bidengine.ai/internal/persistence/log"
	"bidengine.ai/internal/sim/simulation"
	"bidengine.ai/internal/sim/tuning"
	"bidengine.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = pflag.String("addr", ":8080", "http listen address")
		tuningPath = pflag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir    = pflag.String("data", "./data", "runtime data directory")
		logDir     = pflag.String("log_dir", "", "bid log directory (default: <data>/bids)")
		disableDB  = pflag.Bool("disable_db", false, "disable the sqlite round index")
		disableLog = pflag.Bool("disable_log", false, "disable the compressed bid log")
	)
	pflag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
		tune.Normalize()
	}
	logger.Printf("strategy=%s pairs=%s solo=%s sacrifice=%v", tune.Strategy, tune.Pairs.Policy, tune.Solo.Policy, tune.Sacrifice.On())

	var recorders []simulation.RoundLogger
	if !*disableLog {
		dir := strings.TrimSpace(*logDir)
		if dir == "" {
			dir = filepath.Join(*dataDir, "bids")
		}
		bidLog := persistlog.NewBidLogger(dir)
		defer bidLog.Close()
		recorders = append(recorders, bidLog)
		logger.Printf("bid log: %s", dir)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "rounds.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		recorders = append(recorders, idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		if idx == nil {
			return
		}
		st := idx.Stats()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP bidengine_index_rounds_written_total Rounds committed to the sqlite index.\n")
		fmt.Fprintf(rw, "# TYPE bidengine_index_rounds_written_total counter\n")
		fmt.Fprintf(rw, "bidengine_index_rounds_written_total %d\n", st.RoundsWritten)

		fmt.Fprintf(rw, "# HELP bidengine_index_dropped_rounds_total Rounds dropped because the index queue was full.\n")
		fmt.Fprintf(rw, "# TYPE bidengine_index_dropped_rounds_total counter\n")
		fmt.Fprintf(rw, "bidengine_index_dropped_rounds_total %d\n", st.DropRoundTotal)

		fmt.Fprintf(rw, "# HELP bidengine_index_write_errors_total Failed index transactions.\n")
		fmt.Fprintf(rw, "# TYPE bidengine_index_write_errors_total counter\n")
		fmt.Fprintf(rw, "bidengine_index_write_errors_total %d\n", st.WriteErrorTotal)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(tune, recorders, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
