package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/floradistro/FloraPOS-sub004/pkg/kafka"
	"github.com/floradistro/FloraPOS-sub004/pkg/logging"
	"github.com/floradistro/FloraPOS-sub004/pkg/metrics"
	"github.com/floradistro/FloraPOS-sub004/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

func main() {
	app := &cli.App{
		Name:  "checkout-service",
		Usage: "POS checkout pipeline: order submission and stock deduction",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the checkout HTTP API",
				Action: serve,
			},
			{
				Name:  "submit",
				Usage: "run one checkout from a JSON file and print the result",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "path to a checkout request JSON file",
						Required: true,
					},
				},
				Action: submit,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("checkout-service stopped")
	}
}

// service holds the wired pipeline and what must be closed on exit.
type service struct {
	cfg       Config
	useCase   *CheckoutUseCase
	providers *telemetry.Providers
	closers   []func() error
}

func setup(ctx context.Context) (*service, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if _, err := logging.Setup(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}

	providers, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Enabled:     cfg.TelemetryEnabled,
	})
	if err != nil {
		return nil, err
	}
	tracer := otel.Tracer(cfg.ServiceName)
	pm, err := newPipelineMetrics(otel.Meter(cfg.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	commerceHTTP := newRestClient(cfg.CommerceBaseURL, cfg.CommerceConsumerKey, cfg.CommerceConsumerSecret)
	inventoryHTTP := newRestClient(cfg.InventoryBaseURL, cfg.InventoryConsumerKey, cfg.InventoryConsumerSecret)

	inventory := NewFloraInventoryClient(inventoryHTTP, cfg.ReadPolicy(), cfg.WritePolicy())
	orchestrator := NewDeductionOrchestrator(inventory, inventory, tracer, pm, cfg.InventoryConditionalWrites)
	coordinator := NewBatchDeductionCoordinator(orchestrator, inventory, tracer, pm, cfg.InventoryConditionalWrites)
	submitter := NewWooCommerceClient(commerceHTTP, cfg.OrderTimeout)

	a := &service{cfg: cfg, providers: providers}

	var alerts AlertPublisher = LogAlertPublisher{}
	writer, err := kafka.NewClient(cfg.KafkaBrokers).NewWriter(cfg.KafkaAlertTopic)
	switch {
	case err == nil:
		alerts = NewKafkaAlertPublisher(writer)
		a.closers = append(a.closers, writer.Close)
		log.Printf("📣 Publishing inventory alerts to kafka topic %s", cfg.KafkaAlertTopic)
	case errors.Is(err, kafka.ErrDisabled):
		log.Printf("📣 No kafka brokers configured, inventory alerts go to the log")
	default:
		return nil, fmt.Errorf("failed to create alert writer: %w", err)
	}

	a.useCase = NewCheckoutUseCase(submitter, coordinator, alerts, tracer, pm, cfg.DefaultTaxRate)
	return a, nil
}

func (a *service) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Printf("Error closing resource: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.providers.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down telemetry: %v", err)
	}
}

// newRestClient builds a JSON client that forwards the trace context.
func newRestClient(baseURL, key, secret string) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if key != "" {
		client.SetBasicAuth(key, secret)
	}
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
		return nil
	})
	return client
}

func newRouter(cfg Config, handler *CheckoutHandler, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(metrics.NewServerMetrics(registry, "checkout").Middleware())

	handler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(metrics.Handler(registry)))
	return r
}

// newHTTPServer has no write deadline: a checkout answers only after the order
// call and every line's reads, writes and compensations, which together are
// bounded by the retry policies and grow with the cart. A response cut off
// by a deadline would hide an order that exists.
func newHTTPServer(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	registry := prometheus.NewRegistry()
	handler := NewCheckoutHandler(a.useCase)
	srv := newHTTPServer(a.cfg, newRouter(a.cfg, handler, registry))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("🚀 Checkout Service listening on port %s", a.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down checkout service...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func submit(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read checkout file: %w", err)
	}
	var req CheckoutRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to parse checkout file: %w", err)
	}

	a, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	result := a.useCase.Checkout(c.Context, req)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))

	if !result.Success {
		return cli.Exit(fmt.Sprintf("checkout %s: %s", result.Status, result.ErrorKind), 1)
	}
	return nil
}
