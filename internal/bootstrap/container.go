package bootstrap

import (
	"context"
	"log"
	"time"

	"lab-compare-be/internal/config"
	"lab-compare-be/internal/controller"
	"lab-compare-be/internal/handler"
	"lab-compare-be/internal/pkg/logger"
	"lab-compare-be/internal/service"
	"lab-compare-be/internal/websocket"
	"lab-compare-be/pkg/metrics"

	pktNats "lab-compare-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	IntakeController controller.IIntakeController
	IntakeWsHandler  *handler.IntakeWsHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	GatewayService  service.IGatewayService // nil without NATS
	WebSocketHub    *websocket.Hub

	Intake   *Intake
	Registry *prometheus.Registry
	Logger   logger.ILogger

	cfg     *config.Config
	closers []func()
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	intakeMetrics := metrics.NewIntakeMetrics(registry)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)

	c := &Container{Registry: registry, Logger: sysLogger, cfg: cfg}
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure, all optional
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		var err error
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		}
		c.closers = append(c.closers, natsPub.Close, natsSub.Close)
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		cancel()
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 4. Services
	publisherService := service.NewPublisherService(cfg.Intake.OutcomeTopic, pubSub)

	intake, err := NewIntake(cfg, sysLogger, publisherService)
	if err != nil {
		return nil, err
	}
	c.Intake = intake

	var relay service.EventRelay
	if natsPub != nil {
		relay = natsPub
	}
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Intake.OutcomeTopic, intakeMetrics, relay)

	if natsPub != nil && natsSub != nil {
		c.GatewayService = service.NewGatewayService(natsSub, natsPub, intake.Dispatcher, sysLogger)
	}

	// 5. WebSockets
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	c.IntakeWsHandler = handler.NewIntakeWsHandler(c.WebSocketHub, intake.Dispatcher, cfg.Storage.MaxDocumentBytes, wsLogger)

	// 6. Controllers
	c.IntakeController = controller.NewIntakeController(intake.Dispatcher, intake.Service)

	return c, nil
}

// RunSweeper periodically releases documents no session refers to any more.
func (c *Container) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Storage.SweepInterval)
	defer ticker.Stop()

	maxAge := OrphanAge(c.cfg)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Intake.Storage.Sweep(maxAge); n > 0 {
				c.Logger.Warn("Sweeper", "Released orphaned documents", map[string]interface{}{"count": n})
			}
		}
	}
}

// Close waits for in-flight intake events, then releases connections.
func (c *Container) Close() {
	c.Intake.Close()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
