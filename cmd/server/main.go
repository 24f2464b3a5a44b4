package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"matchcore/api/grpcserver"
	"matchcore/api/httpserver"
	"matchcore/config"
	"matchcore/domain/event"
	"matchcore/domain/price"
	"matchcore/engine"
	"matchcore/infra/fanout"
	"matchcore/infra/kafka"
	"matchcore/infra/logging"
	"matchcore/infra/outbox"
	"matchcore/infra/queue"
	redismirror "matchcore/infra/redis"
	"matchcore/jobs/broadcaster"
	"matchcore/service"
)

func main() {
	cfgPath := flag.String("config", "", "optional config file (yaml, json, toml, env)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("matchcore exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Core ----------------

	scale, err := price.NewScale(cfg.PriceDigits)
	if err != nil {
		return err
	}
	q := queue.NewChan[event.Event](cfg.QueueCapacity)
	bookHub := fanout.NewHub[engine.TopSnapshot]()
	tradeHub := fanout.NewHub[engine.Trade]()
	defer bookHub.Close()
	defer tradeHub.Close()

	sinks := engine.MultiSink{engine.TradeSinkFunc(func(trades []engine.Trade) error {
		for _, t := range trades {
			tradeHub.Broadcast(t)
		}
		return nil
	})}

	// ---------------- Trade outbox ----------------

	var box *outbox.Outbox
	if cfg.Outbox.Dir != "" {
		box, err = outbox.Open(cfg.Outbox.Dir)
		if err != nil {
			return err
		}
		defer box.Close()
		sinks = append(sinks, box)
		log.Info("trade outbox open", zap.String("dir", cfg.Outbox.Dir), zap.Uint64("last_seq", box.LastSeq()))
	}

	eng := engine.New(q,
		engine.WithLogger(log.Named("engine")),
		engine.WithScale(scale),
		engine.WithSymbol(cfg.Symbol),
		engine.WithDepth(cfg.Depth),
		engine.WithTradeSink(sinks),
		engine.WithSnapshotObserver(bookHub.Broadcast),
	)
	svc := service.NewOrderService(q, eng, scale, log.Named("service"))

	// ---------------- Background jobs ----------------

	// Downstream jobs outlive ingress so they see the engine's final state.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	var bg sync.WaitGroup

	if box != nil && cfg.Kafka.Enabled() {
		producer, err := broadcaster.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		b := broadcaster.New(box, producer, cfg.Kafka.TradesTopic,
			broadcaster.WithKey(cfg.Symbol),
			broadcaster.WithInterval(cfg.Outbox.Interval),
			broadcaster.WithLogger(log.Named("broadcaster")),
		)
		defer b.Close()
		bg.Add(1)
		go func() {
			defer bg.Done()
			b.Run(bgCtx)
		}()
	}

	if cfg.Redis.Addr != "" {
		client := redismirror.NewClient(cfg.Redis.Addr)
		defer client.Close()
		mirror := redismirror.NewMirror(client, cfg.Redis.Key, cfg.Redis.Channel, log.Named("redis"))
		sub := bookHub.Subscribe(16)
		bg.Add(1)
		go func() {
			defer bg.Done()
			mirror.Run(bgCtx, sub.C())
		}()
	}

	// ---------------- Ingress ----------------

	var ingress sync.WaitGroup

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(
			kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.FeedTopic, cfg.Kafka.FeedGroup),
			svc, log.Named("feed"),
		)
		ingress.Add(1)
		go func() {
			defer ingress.Done()
			defer consumer.Close()
			if err := consumer.Run(ctx); err != nil {
				log.Error("feed consumer stopped", zap.Error(err))
				stop()
			}
		}()
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcSrv := grpc.NewServer()
	bookRPC := grpcserver.NewServer(svc, bookHub, log.Named("grpc"))
	grpcserver.Register(grpcSrv, bookRPC)
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc server exited", zap.Error(err))
			stop()
		}
	}()

	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpserver.New(svc, bookHub, tradeHub,
			httpserver.WithToken(cfg.HTTP.Token),
			httpserver.WithLogger(log.Named("http")),
		).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server exited", zap.Error(err))
			stop()
		}
	}()

	eng.Start()
	log.Info("matchcore running",
		zap.String("symbol", cfg.Symbol),
		zap.Int32("price_digits", scale.Digits()),
		zap.String("grpc", cfg.GRPC.Addr),
		zap.String("http", cfg.HTTP.Addr),
		zap.Bool("kafka", cfg.Kafka.Enabled()),
	)

	<-ctx.Done()
	log.Info("shutting down")

	// ingress first, then drain the engine, then let downstream catch up
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	bookRPC.Close()
	grpcSrv.GracefulStop()
	ingress.Wait()

	eng.Stop()
	q.Close()

	bgCancel()
	bg.Wait()

	log.Info("bye", zap.Uint64("processed", eng.Processed()))
	return nil
}
