package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"exchange/config"
	"exchange/engine"
	"exchange/infra/kafka"
	"exchange/infra/sequence"
	"exchange/jobs/audit"
	"exchange/jobs/broadcaster"
	"exchange/refdata"
	"exchange/service"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}

	// ---------------- Logging ----------------

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out = zerolog.New(os.Stderr)
	if cfg.Log.Pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log := out.Level(level).With().Timestamp().Logger()

	// ---------------- Reference data ----------------

	store, err := refdata.Open(cfg.Refdata.Dir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open refdata store")
	}
	defer store.Close()

	// ---------------- Outbound ----------------

	bcast, err := broadcaster.New(cfg.Kafka.Brokers, cfg.Kafka.Outbound, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create broadcaster")
	}
	bcastCtx, stopBcast := context.WithCancel(context.Background())
	bcast.Start(bcastCtx)

	trail := audit.New(kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic), log)
	defer trail.Close()

	// ---------------- Engines ----------------

	registry := engine.NewRegistry(store, log)
	engines := make([]*engine.MatchingEngine, cfg.Engine.Partitions)
	for i := range engines {
		engines[i] = engine.NewMatchingEngine(i, registry, bcast, log)
		if err := engines[i].Start(); err != nil {
			log.Fatal().Err(err).Int("engine", i).Msg("start engine")
		}
	}
	router, err := engine.NewRouter(store, log, engines...)
	if err != nil {
		log.Fatal().Err(err).Msg("create router")
	}

	seq := sequence.New(0)
	scheduler := engine.NewSessionScheduler(router, seq, log)
	intake := service.NewIntake(router, store, scheduler, trail, seq, log)

	// ---------------- Inbound ----------------

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consume := func(topic string, handle kafka.Handler) {
		c := kafka.NewConsumer(cfg.Kafka.Brokers, topic, cfg.Kafka.GroupID, log)
		go func() {
			if err := c.Run(runCtx, handle); err != nil && runCtx.Err() == nil {
				log.Error().Err(err).Str("topic", topic).Msg("consumer stopped")
				stop()
			}
		}()
	}
	consume(cfg.Kafka.Inbound.OrderData, intake.HandleOrder)
	consume(cfg.Kafka.Inbound.StateChange, intake.HandleStateChange)
	consume(cfg.Kafka.Inbound.ReferenceData, intake.HandleReferenceData)

	log.Info().
		Int("partitions", cfg.Engine.Partitions).
		Strs("brokers", cfg.Kafka.Brokers).
		Msg("matching engine up")

	<-runCtx.Done()
	log.Info().Msg("shutting down")

	// ---------------- Shutdown ----------------

	scheduler.Stop()
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, e := range engines {
		if err := e.Stop(drainCtx); err != nil {
			log.Error().Err(err).Msg("engine did not drain")
		}
	}
	stopBcast()
	bcast.Wait()
}
