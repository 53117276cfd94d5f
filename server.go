package registry

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/uptrace/bun"
)

// DefaultCORSOrigin is the frontend allowed to send the session cookie
// when no origin is configured
const DefaultCORSOrigin = "http://localhost:3000"

// Server wires the repositories, the core services and the fiber app
type Server struct {
	App        *fiber.App
	Repos      RepositoryManager
	Lifecycle  *Lifecycle
	Gate       *Gate
	Browser    *Browser
	Auther     *RouteAuthenticator
	Controller *Controller
}

type serverOptions struct {
	logger         Logger
	activitySink   ActivitySink
	metricsHandler http.Handler
	debug          bool
}

type ServerOption func(*serverOptions)

func WithServerLogger(logger Logger) ServerOption {
	return func(o *serverOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithServerActivitySink adds a sink next to the logging sink
func WithServerActivitySink(sink ActivitySink) ServerOption {
	return func(o *serverOptions) {
		o.activitySink = sink
	}
}

// WithServerMetricsHandler serves h on /metrics when metrics are enabled
func WithServerMetricsHandler(h http.Handler) ServerOption {
	return func(o *serverOptions) {
		o.metricsHandler = h
	}
}

func WithServerDebug(debug bool) ServerOption {
	return func(o *serverOptions) {
		o.debug = debug
	}
}

func NewServer(cfg Config, db *bun.DB, opts ...ServerOption) (*Server, error) {
	options := &serverOptions{logger: defLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	logger := options.logger
	sink := MultiActivitySink(LoggerActivitySink(logger), options.activitySink)

	repos := NewRepositoryManager(db)
	if err := repos.Validate(); err != nil {
		return nil, err
	}

	lifecycle := NewLifecycle(repos,
		WithLifecycleLogger(logger),
		WithLifecycleActivitySink(sink),
		WithSessionTTL(cfg.GetSessionTTL()),
		WithBcryptCost(cfg.GetBcryptCost()),
	)
	gate := NewGate(repos, WithGateLogger(logger))
	browser := NewBrowser(repos, WithBrowserLogger(logger))

	auther, err := NewHTTPAuthenticator(gate, lifecycle, cfg)
	if err != nil {
		return nil, err
	}
	auther.Logger = logger

	controller := NewController(
		WithControllerDebug(options.debug),
		WithControllerLogger(logger),
		WithControllerRepository(repos),
		WithControllerLifecycle(lifecycle),
		WithControllerGate(gate),
		WithControllerBrowser(browser),
		WithControllerAuthenticator(auther),
	)

	app := fiber.New(fiber.Config{
		AppName:               "voter-registry",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return WriteError(c, logger, err)
		},
	})

	origins := cfg.GetCORSOrigins()
	if origins == "" {
		origins = DefaultCORSOrigin
	}

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: !strings.Contains(origins, "*"),
	}))
	app.Use(requestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	if cfg.GetMetricsEnabled() && options.metricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(options.metricsHandler))
	}

	var router fiber.Router = app
	if prefix := strings.TrimSuffix(cfg.GetRoutePrefix(), "/"); prefix != "" {
		router = app.Group(prefix)
	}
	controller.RegisterRoutes(router)

	return &Server{
		App:        app,
		Repos:      repos,
		Lifecycle:  lifecycle,
		Gate:       gate,
		Browser:    browser,
		Auther:     auther,
		Controller: controller,
	}, nil
}

func requestLogger(logger Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}
