// Command cover-control drives a two-position cover through MQTT switch
// actuators and publishes its state.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sweeney/cover-control/internal/cover"
	"github.com/sweeney/cover-control/internal/logger"
	"github.com/sweeney/cover-control/internal/metrics"
	"github.com/sweeney/cover-control/internal/mqtt"
	"github.com/sweeney/cover-control/internal/status"
	"github.com/sweeney/cover-control/internal/topics"
	"github.com/sweeney/cover-control/internal/web"
)

type config struct {
	broker    string
	clientID  string
	username  string
	password  string
	transit   time.Duration
	httpAddr  string
	commands  bool
	queue     int
	logLevel  string
	logFormat string
}

func main() {
	var cfg config
	flag.StringVar(&cfg.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&cfg.clientID, "client-id", "", "MQTT client ID (empty derives one)")
	flag.StringVar(&cfg.username, "username", "", "MQTT username")
	flag.StringVar(&cfg.password, "password", os.Getenv("COVER_MQTT_PASSWORD"), "MQTT password")
	flag.DurationVar(&cfg.transit, "timer", cover.DefaultTransitTime, "Full travel time before an opening/closing cover is assumed done")
	flag.StringVar(&cfg.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.BoolVar(&cfg.commands, "commands", true, "Subscribe to cover/command")
	flag.IntVar(&cfg.queue, "queue", cover.DefaultQueueSize, "Event queue size")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.logFormat, "log-format", "console", "Log format (console, json)")

	flag.Parse()

	zl, err := logger.New(cfg.logLevel, logger.Format(cfg.logFormat))
	if err != nil {
		log.Fatalf("fatal: init logger: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl.Sugar()); err != nil {
		zl.Sugar().Fatalf("fatal: %v", err)
	}
}

func run(cfg config, log *zap.SugaredLogger) error {
	clientID := mqtt.ClientID(cfg.clientID)

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:        cfg.broker,
		ClientID:      clientID,
		TransitTimeMs: cfg.transit.Milliseconds(),
		HTTPAddr:      cfg.httpAddr,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	transport, err := mqtt.NewRealTransport(mqtt.Config{
		Broker:   cfg.broker,
		ClientID: clientID,
		Username: cfg.username,
		Password: cfg.password,
	}, log.Named("mqtt"))
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer transport.Close()
	tracker.SetConnection(transport)

	coord := cover.NewCoordinator(transport,
		cover.WithTransitTime(cfg.transit),
		cover.WithQueueSize(cfg.queue),
		cover.WithObserver(tracker),
		cover.WithObserver(m),
		cover.WithLogger(log.Named("coordinator")),
	)
	transport.SetSink(coord.Receive)

	if err := start(coord, transport, cfg.commands); err != nil {
		return err
	}

	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), log.Named("web"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", cfg.httpAddr)
	}

	log.Infof("started: broker=%s client=%s timer=%v commands=%v", cfg.broker, clientID, cfg.transit, cfg.commands)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(coord, sigCh, log)
}

// start subscribes the state echoes, announces availability and, when
// enabled, subscribes the command topic in its own call.
func start(coord *cover.Coordinator, transport mqtt.Transport, commands bool) error {
	if err := coord.Initialize(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if !commands {
		return nil
	}
	if err := transport.SubscribeMany([]string{topics.CoverCommand}, []mqtt.QoS{mqtt.AtLeastOnce}); err != nil {
		return fmt.Errorf("subscribe commands: %w", err)
	}
	return nil
}

func runLoop(coord *cover.Coordinator, sig <-chan os.Signal, log *zap.SugaredLogger) error {
	for {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
			if err := coord.Finalize(); err != nil {
				log.Warnf("failed to publish offline: %v", err)
			} else {
				log.Infof("published offline")
			}
			return nil

		case ev := <-coord.Events():
			coord.Dispatch(ev)
		}
	}
}
