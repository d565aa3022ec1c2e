package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/go-ticketprint/internal/aws"
	"github.com/imrishuroy/go-ticketprint/internal/config"
	"github.com/imrishuroy/go-ticketprint/internal/dedup"
	"github.com/imrishuroy/go-ticketprint/internal/dispatch"
	"github.com/imrishuroy/go-ticketprint/internal/handlers"
	"github.com/imrishuroy/go-ticketprint/internal/intake"
	"github.com/imrishuroy/go-ticketprint/internal/ledger"
	"github.com/imrishuroy/go-ticketprint/internal/logging"
	"github.com/imrishuroy/go-ticketprint/internal/metrics"
	"github.com/imrishuroy/go-ticketprint/internal/notify"
	"github.com/imrishuroy/go-ticketprint/internal/printer"
	"github.com/imrishuroy/go-ticketprint/internal/service"
	"github.com/imrishuroy/go-ticketprint/internal/ticket"
	"github.com/imrishuroy/go-ticketprint/internal/tracing"
	"github.com/imrishuroy/go-ticketprint/internal/validation"
)

const serviceName = "printserver"

func main() {
	configPath := flag.String("config", os.Getenv("PRINTSRV_CONFIG"), "path to a YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	printerKind := flag.String("printer", "", "printer transport: spooler, raw or file (overrides config)")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New(serviceName, "info", true).Fatal().Err(err).Msg("invalid configuration")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *printerKind != "" {
		cfg.Printer.Kind = *printerKind
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	log := logging.New(serviceName, cfg.Log.Level, cfg.Log.JSON)
	if cfg.Server.Secret == "" {
		log.Warn().Msg("no shared secret configured, /print is open")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("print server stopped")
	}
	log.Info().Msg("print server stopped")
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	shutdownTracing, err := tracing.InitTracerProvider(serviceName, cfg.Tracing.JaegerEndpoint, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	dev, err := printer.New(cfg.Printer.Config)
	if err != nil {
		return err
	}
	guard, closeGuard, err := newGuard(cfg.Dedup)
	if err != nil {
		return err
	}
	defer closeGuard()

	var clients *aws.AWSClients
	if cfg.UsesAWS() {
		clients, err = aws.NewAWSClients(ctx, aws.Options{Region: cfg.AWS.Region, Endpoint: cfg.AWS.Endpoint})
		if err != nil {
			return err
		}
	}

	// the dispatcher is created before its metrics hook, which reads its status
	var d *dispatch.Dispatcher
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := metrics.NewPrometheus(reg, func() dispatch.Status { return d.Status() })
	if err != nil {
		return err
	}
	hooks := []dispatch.Hook{prom}
	if clients != nil {
		if cfg.AWS.LedgerTable != "" {
			hooks = append(hooks, ledger.NewStore(clients.DynamoDB, cfg.AWS.LedgerTable, cfg.AWS.LedgerRetention))
		}
		if cfg.AWS.OutcomeQueueURL != "" {
			hooks = append(hooks, notify.NewOutcomes(aws.NewPublisher(clients.SQS, cfg.AWS.OutcomeQueueURL), cfg.Station))
		}
		if cfg.AWS.MetricsNamespace != "" {
			hooks = append(hooks, metrics.NewCloudWatch(clients.CloudWatch, cfg.AWS.MetricsNamespace, cfg.Station))
		}
	}

	d = dispatch.New(ticket.NewRenderer(cfg.Ticket.Layout()), dev, dispatch.Config{
		SubmitTimeout:    cfg.Printer.SubmitTimeout,
		InterTicketDelay: cfg.Printer.InterTicketDelay,
	}, dispatch.WithLogger(log), dispatch.WithHooks(hooks...))
	svc := service.New(guard, d, log)

	gin.SetMode(gin.ReleaseMode)
	r := handlers.NewRouter(log)
	handlers.RegisterPrintRoutes(r, handlers.HandlerConfig{
		Service:  svc,
		Secret:   cfg.Server.Secret,
		Title:    cfg.Ticket.MerchantName,
		Gatherer: reg,
		Log:      log,
	})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Str("printer", cfg.Printer.Kind).Msg("print server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	v := validation.New()
	if clients != nil && cfg.AWS.IntakeQueueURL != "" {
		c := intake.NewSQSConsumer(clients.SQS, cfg.AWS.IntakeQueueURL, svc, v, log)
		g.Go(func() error { return c.Run(gctx) })
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "" {
		reader := intake.NewKafkaReader(intake.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
		c := intake.NewKafkaConsumer(reader, svc, v, log)
		g.Go(func() error { return c.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		if err := d.Close(sctx); err != nil {
			st := d.Status()
			log.Error().Err(err).Int("pending", st.Pending).Bool("active", st.Active).Msg("queued tickets not printed")
		}
		return nil
	})

	return g.Wait()
}

func newGuard(cfg config.Dedup) (dedup.Guard, func(), error) {
	if cfg.Backend != "redis" {
		return dedup.NewMemoryGuard(cfg.MaxHistory), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return dedup.NewRedisGuard(client, cfg.RedisKey, cfg.MaxHistory), func() { _ = client.Close() }, nil
}
