// Command cgroups-exporter is a pull-based Prometheus exporter for
// Linux cgroups and processes, configured by a declarative rule file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	promVersion "github.com/prometheus/common/version"
	"github.com/prometheus/exporter-toolkit/web"

	"github.com/jwalton/oguz-cgroups-exporter/cgroupfs"
	"github.com/jwalton/oguz-cgroups-exporter/config"
	"github.com/jwalton/oguz-cgroups-exporter/configcell"
	"github.com/jwalton/oguz-cgroups-exporter/discovery"
	"github.com/jwalton/oguz-cgroups-exporter/internal/logging"
	"github.com/jwalton/oguz-cgroups-exporter/match"
	"github.com/jwalton/oguz-cgroups-exporter/procreader"
	"github.com/jwalton/oguz-cgroups-exporter/server"
	"github.com/jwalton/oguz-cgroups-exporter/shellrun"
	"github.com/jwalton/oguz-cgroups-exporter/watch"
)

// version is set at build time via -ldflags.
var version string

const defaultListenAddr = "127.0.0.1:9753"

func main() {
	defer recoverAndExit()

	log, err := logging.NewFiltered(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILTER"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid logging configuration:", err)
		os.Exit(1)
	}

	promVersion.Version = version
	app := kingpin.New("cgroups-exporter", "A Prometheus exporter for cgroups and processes.")
	app.Version(promVersion.Print("cgroups-exporter"))
	app.VersionFlag.Short('V')

	configPath := app.Flag("config", "Path to the config file.").Short('c').Envar("CONFIG_PATH").Required().String()
	listenAddr := app.Flag("listen-addr", "The address to listen on.").Short('l').Envar("LISTEN_ADDR").Default(defaultListenAddr).String()
	testOnly := app.Flag("test", "Load and compile the config file, then exit.").Short('t').Bool()
	watchFlag := app.Flag("watch", "Watch the config file for changes and reload.").Short('w').Bool()

	if _, err := app.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	matchable, err := loadAndCompile(*configPath)
	if err != nil {
		log.Error("msg", "failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	if *testOnly {
		log.Info("msg", "config file is valid", "path", *configPath)
		return
	}

	log.Info("msg", "loaded config", "path", *configPath, "cgroups", len(matchable.Cgroups), "processes", len(matchable.Processes))

	cell := configcell.New(matchable)
	evaluator := shellrun.NewEvaluator(matchable.ShellCacheSize)

	if *watchFlag {
		w, err := watch.New(*configPath, reloadFunc(*configPath, cell), log)
		if err != nil {
			log.Error("msg", "failed to start config watcher", "err", err)
			os.Exit(1)
		}
		log.Info("msg", "watching config file for changes", "path", *configPath)
		done := make(chan struct{})
		defer close(done)
		go w.Run(done)
	}

	procReader, err := procreader.NewReader("/proc")
	if err != nil {
		log.Error("msg", "failed to open /proc", "err", err)
		os.Exit(1)
	}

	cd := discovery.NewCgroupDiscovery(cgroupfs.DefaultRoot, concurrencyFromEnv(), evaluator, log)
	pd := discovery.NewProcDiscovery(procReader, log)
	srv := server.New(cell, cd, pd, log)

	httpServer := &http.Server{Addr: *listenAddr, Handler: srv.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- web.ListenAndServe(httpServer, &web.FlagConfig{
			WebListenAddresses: &[]string{*listenAddr},
		}, log.Base())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("msg", "server failed", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("msg", "received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ScrapeTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("msg", "graceful shutdown failed", "err", err)
		}
	}
	log.Info("msg", "server shut down")
}

func loadAndCompile(path string) (*match.MatchableConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return match.Compile(cfg)
}

func reloadFunc(path string, cell *configcell.Cell) watch.ReloadFunc {
	return func() error {
		matchable, err := loadAndCompile(path)
		if err != nil {
			return err
		}
		cell.Update(matchable)
		return nil
	}
}

func concurrencyFromEnv() int64 {
	const defaultConcurrency = 4
	v := os.Getenv("CONCURRENCY")
	if v == "" {
		return defaultConcurrency
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return defaultConcurrency
	}
	return n
}

func recoverAndExit() {
	if r := recover(); r != nil {
		fmt.Fprintln(os.Stderr, "panic:", r)
		os.Exit(1)
	}
}
