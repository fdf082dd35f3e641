package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"
	"github.com/shopspring/decimal"

	"mako/api/httpapi"
	"mako/domain/address"
	"mako/domain/dex"
	"mako/domain/orderbook"
	"mako/domain/rates"
	"mako/infra/config"
	"mako/infra/kafka"
	"mako/infra/oracle"
	"mako/infra/storage"
	"mako/jobs/broadcaster"
	"mako/service"
	"mako/snapshot"
)

const shutdownTimeout = 10 * time.Second

var log = slog.Disabled

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Logging.Level)

	// ---------------- Durable store ----------------

	store, err := storage.Open(cfg.Store.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	// ---------------- Rates ----------------

	rateCache := rates.New()
	err = store.EachRate(func(assetName, rate string) error {
		asset, err := dex.ParseAsset(assetName)
		if err != nil {
			return fmt.Errorf("stored rate for unknown asset %q: %w", assetName, err)
		}
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return fmt.Errorf("stored rate for %s: %w", assetName, err)
		}
		_, _, err = rateCache.Upsert(asset, d)
		return err
	})
	if err != nil {
		return err
	}

	// ---------------- Address actors ----------------

	if cfg.Oracle.URL == "" {
		return errors.New("oracle url is required")
	}
	node := oracle.New(cfg.Oracle.URL, cfg.Oracle.Timeout)
	registry := address.NewRegistry(node)
	defer registry.Close()

	// ---------------- Event stream ----------------

	bc, err := broadcaster.New(cfg.Kafka.Brokers, cfg.Kafka.EventTopic)
	if err != nil {
		return err
	}
	bcCtx, bcCancel := context.WithCancel(context.Background())
	go bc.Run(bcCtx)

	// ---------------- Engine (recovers from the store) ----------------

	restrictions, err := cfg.RestrictionsByPair()
	if err != nil {
		return err
	}
	eng, err := service.New(service.Config{
		Store:     store,
		Registry:  registry,
		Views:     snapshot.NewBookViewCache(),
		Publisher: bc,
		Restrictions: func(pair dex.AssetPair) dex.OrderRestrictions {
			return restrictions[pair.Key()]
		},
		Validator: dex.SignatureValidator{},
		Resolver:  node,
		SnapshotEvery:    cfg.Engine.SnapshotEvery,
		SnapshotInterval: cfg.Engine.SnapshotInterval,
	})
	if err != nil {
		return err
	}

	// ---------------- Command log ----------------

	resume, ok := eng.ResumeOffset()
	if !ok {
		resume = kafka.FirstOffset
		log.Infof("no recovery points, reading command log from the start")
	} else {
		log.Infof("resuming command log at offset %d", resume)
	}
	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.CommandTopic, cfg.Kafka.Partition, resume)
	if err != nil {
		return err
	}
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.CommandTopic)

	engCtx, engCancel := context.WithCancel(context.Background())
	var engErr error
	engStopped := make(chan struct{})
	go func() {
		defer close(engStopped)
		engErr = eng.Run(engCtx, consumer)
	}()

	// ---------------- HTTP API ----------------

	api := httpapi.New(cfg.HTTP.Addr, eng, registry, rateCache, store, producer)
	var apiErr error
	apiStopped := make(chan struct{})
	go func() {
		defer close(apiStopped)
		apiErr = api.Run()
	}()

	// ---------------- Wait ----------------

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	case <-apiStopped:
		if apiErr != nil {
			log.Errorf("http api failed: %v", apiErr)
		}
	case <-engStopped:
		if engErr != nil {
			log.Errorf("engine failed: %v", engErr)
		}
	}

	// Shutdown order: stop intake (HTTP, then the log consumer), drain the
	// engine and persist final recovery points, then release everything
	// else. The store closes last, via the defer above.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}
	engCancel()
	if err := consumer.Close(); err != nil {
		log.Warnf("closing consumer: %v", err)
	}
	<-engStopped
	eng.Close()

	bcCancel()
	if err := bc.Close(); err != nil {
		log.Warnf("closing broadcaster: %v", err)
	}
	if err := producer.Close(); err != nil {
		log.Warnf("closing producer: %v", err)
	}

	if engErr != nil {
		return engErr
	}
	return apiErr
}

// setupLogging points every subsystem at one stdout backend.
func setupLogging(level string) {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		lvl = slog.LevelInfo
	}
	backend := slog.NewBackend(os.Stdout)
	subsystems := map[string]func(slog.Logger){
		"BOOK": orderbook.UseLogger,
		"ADDR": address.UseLogger,
		"ENGN": service.UseLogger,
		"API":  httpapi.UseLogger,
		"BCST": broadcaster.UseLogger,
	}
	for name, use := range subsystems {
		logger := backend.Logger(name)
		logger.SetLevel(lvl)
		use(logger)
	}
	log = backend.Logger("MAIN")
	log.SetLevel(lvl)
}
