package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/devblok/korures/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	envFiles     = flag.String("env", "", "Comma separated .env files to load")
	manifestFile = flag.String("manifest", "", "Manifest of resources to load")
	metricsAddr  = flag.String("metrics", "", "Serve metrics on this address and keep resources loaded until interrupted")
)

func main() {
	flag.Parse()
	if *manifestFile == "" {
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var files []string
	if *envFiles != "" {
		files = strings.Split(*envFiles, ",")
	}
	cfg, err := core.LoadConfiguration(files...)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	engine, err := core.NewEngine(cfg, log.StandardLogger(), reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.WithError(err).Error("closing engine")
		}
	}()

	f, err := os.Open(*manifestFile)
	if err != nil {
		return err
	}
	entries, err := core.ParseManifest(f)
	f.Close()
	if err != nil {
		return err
	}

	if err := engine.Load(entries); err != nil {
		if cfg.Resources.FailFast {
			return err
		}
		log.WithError(err).Warn("some resources failed to load")
	}
	fmt.Print(engine.Manager.DumpStatistics())

	if *metricsAddr == "" {
		return nil
	}
	return serveMetrics(reg)
}

func serveMetrics(reg *prometheus.Registry) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := &http.Server{
		Addr:    *metricsAddr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Infof("serving metrics on %s", *metricsAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
