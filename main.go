// Command chopsticks starts the Chopsticks game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, metrics and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Every flag can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	backend "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/chopsticks/api"
	"github.com/wricardo/chopsticks/game/config"
	"github.com/wricardo/chopsticks/game/idgen"
	"github.com/wricardo/chopsticks/game/service"
	"github.com/wricardo/chopsticks/game/session"
	"github.com/wricardo/chopsticks/transport/events"
	"github.com/wricardo/chopsticks/transport/mcp"
	"github.com/wricardo/chopsticks/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Chopsticks Game Server"
)

// Run modes
const (
	modeServer   = "server"
	modeStdioMCP = "stdio-mcp"
)

// runFunc receives the parsed configuration and the selected mode
type runFunc func(ctx context.Context, cfg config.Config, mode string) error

func main() {
	// Load .env file if it exists (ignore error if not found)
	envErr := godotenv.Load()

	cmd := newCommand(run)
	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", envErr)
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. Flags are declared on the root command and are
// visible to every subcommand.
func newCommand(fn runFunc) *cli.Command {
	defaults := config.Default()

	action := func(mode string) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFromCommand(cmd)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return fn(ctx, cfg, mode)
		}
	}

	return &cli.Command{
		Name:    "chopsticks",
		Usage:   "Two-player chopsticks over REST, WebSocket and MCP",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: defaults.Host, Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: defaults.Port, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.StringFlag{Name: "store", Value: defaults.Store, Usage: "Session store: memory, file or redis", Sources: cli.EnvVars("STORE")},
			&cli.StringFlag{Name: "sessions-dir", Value: defaults.SessionsDir, Usage: "Directory for the file store", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.IntFlag{Name: "max-record-size", Value: defaults.MaxRecordSize, Usage: "Largest encoded session record in bytes", Sources: cli.EnvVars("MAX_RECORD_SIZE")},
			&cli.StringFlag{Name: "redis-addr", Value: defaults.RedisAddr, Usage: "Redis address", Sources: cli.EnvVars("REDIS_ADDR")},
			&cli.StringFlag{Name: "redis-password", Usage: "Redis password", Sources: cli.EnvVars("REDIS_PASSWORD")},
			&cli.IntFlag{Name: "redis-db", Usage: "Redis database number", Sources: cli.EnvVars("REDIS_DB")},
			&cli.BoolFlag{Name: "redis-lock", Usage: "Serialize session updates across processes with a Redis lock", Sources: cli.EnvVars("REDIS_LOCK")},
			&cli.StringFlag{Name: "id-issuer", Value: defaults.IDIssuer, Usage: "Session id source: uuid or http", Sources: cli.EnvVars("ID_ISSUER")},
			&cli.StringFlag{Name: "id-issuer-url", Value: idgen.DefaultServiceURL, Usage: "UUID service for the http issuer", Sources: cli.EnvVars("ID_ISSUER_URL")},
			&cli.DurationFlag{Name: "id-timeout", Value: defaults.IDTimeout, Usage: "Deadline for fetching a session id", Sources: cli.EnvVars("ID_TIMEOUT")},
			&cli.StringFlag{Name: "nats-url", Usage: "Publish game events to this NATS server", Sources: cli.EnvVars("NATS_URL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: action(modeServer),
		Commands: []*cli.Command{
			{
				Name:    modeServer,
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, metrics and MCP endpoint (default)",
				Action:  action(modeServer),
			},
			{
				Name:    modeStdioMCP,
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  action(modeStdioMCP),
			},
		},
	}
}

// configFromCommand collects the parsed flag values
func configFromCommand(cmd *cli.Command) config.Config {
	return config.Config{
		Host:          cmd.String("host"),
		Port:          cmd.Int("port"),
		Debug:         cmd.Bool("debug"),
		Store:         cmd.String("store"),
		SessionsDir:   cmd.String("sessions-dir"),
		MaxRecordSize: cmd.Int("max-record-size"),
		RedisAddr:     cmd.String("redis-addr"),
		RedisPassword: cmd.String("redis-password"),
		RedisDB:       cmd.Int("redis-db"),
		RedisLock:     cmd.Bool("redis-lock"),
		IDIssuer:      cmd.String("id-issuer"),
		IDIssuerURL:   cmd.String("id-issuer-url"),
		IDTimeout:     cmd.Duration("id-timeout"),
		NATSURL:       cmd.String("nats-url"),
		Ngrok:         cmd.Bool("ngrok"),
		NgrokAuth:     cmd.String("ngrok-auth"),
		NgrokDomain:   cmd.String("ngrok-domain"),
	}
}

// newLogger writes to stderr so stdio-mcp keeps stdout for the protocol
func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.Debug {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Caller().Logger()
	}
	return zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

// run starts the selected mode and blocks until it exits
func run(ctx context.Context, cfg config.Config, mode string) error {
	logger := newLogger(cfg)
	logger.Info().Str("version", Version).Str("mode", mode).Msgf("Starting %s", AppName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := initializeServices(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer app.Close()

	switch mode {
	case modeStdioMCP:
		return runStdioMCPWithInternalServer(ctx, cfg, app, logger)
	default:
		return runHTTPServer(ctx, cfg, app, logger)
	}
}

// services bundles everything the transports share
type services struct {
	game     service.GameService
	registry *session.Registry
	metrics  *service.Metrics
	closers  []func() error
}

// Close releases external connections in reverse order of creation
func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initializeServices wires the store, id issuer, registry, event publisher
// and game service, then loads previously persisted sessions.
func initializeServices(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*services, error) {
	app := &services{}

	registryOpts := []session.Option{
		session.WithIDTimeout(cfg.IDTimeout),
		session.WithLogger(logger.With().Str("component", "registry").Logger()),
	}

	switch cfg.Store {
	case config.StoreMemory:
		registryOpts = append(registryOpts, session.WithStore(session.NewMemoryStore(cfg.MaxRecordSize)))

	case config.StoreFile:
		persistence, err := session.NewFilePersistence(cfg.SessionsDir, cfg.MaxRecordSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		registryOpts = append(registryOpts, session.WithStore(persistence))

	case config.StoreRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		store := session.NewRedisStore(client, session.WithRedisMaxRecordSize(cfg.MaxRecordSize))
		app.closers = append(app.closers, store.Close)
		registryOpts = append(registryOpts, session.WithStore(store))

		if cfg.RedisLock {
			registryOpts = append(registryOpts, session.WithLocker(session.NewRedisLocker(client, session.DefaultRedisPrefix), 0))
		}
	}

	switch cfg.IDIssuer {
	case config.IssuerHTTP:
		registryOpts = append(registryOpts, session.WithIssuer(idgen.NewHTTPIssuer(cfg.IDIssuerURL)))
	default:
		registryOpts = append(registryOpts, session.WithIssuer(idgen.UUIDIssuer{}))
	}

	app.registry = session.NewRegistry(registryOpts...)

	// Load persisted sessions on startup
	if err := app.registry.LoadPersisted(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to load persisted sessions")
	} else {
		logger.Info().Int("sessions", app.registry.Count()).Msg("Loaded persisted sessions")
	}

	app.metrics = service.NewMetrics()
	serviceOpts := []service.Option{
		service.WithMetrics(app.metrics),
		service.WithLogger(logger.With().Str("component", "service").Logger()),
	}

	if cfg.NATSURL != "" {
		conn, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		app.closers = append(app.closers, func() error {
			return conn.Drain()
		})
		serviceOpts = append(serviceOpts, service.WithPublisher(events.NewNATSPublisher(conn, logger)))
	}

	app.game = service.NewGameService(app.registry, serviceOpts...)
	return app, nil
}

// mcpHandler serves single JSON-RPC messages for the MCP client over HTTP
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the API server at root and the MCP proxy at /mcp
func newRouter(app *services, hub *websocket.Hub, baseURL string, logger zerolog.Logger) http.Handler {
	apiServer := api.NewServer(app.game, hub,
		api.WithMetricsHandler(app.metrics.Handler()),
		api.WithLogger(logger.With().Str("component", "api").Logger()),
	)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cfg config.Config, app *services, logger zerolog.Logger) error {
	hub := websocket.NewHub(logger.With().Str("component", "websocket").Logger())
	go hub.Run(ctx)

	addr := cfg.Addr()
	mainRouter := newRouter(app, hub, "http://"+addr, logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info().
			Str("rest", fmt.Sprintf("http://%s/api", addr)).
			Str("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Str("metrics", fmt.Sprintf("http://%s/metrics", addr)).
			Msgf("HTTP server listening on %s", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg, mainRouter, logger)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down...")
	case err = <-serveErr:
		logger.Error().Err(err).Msg("HTTP server failed")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	logger.Info().Msg("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cfg config.Config, handler http.Handler, logger zerolog.Logger) {
	if cfg.NgrokAuth == "" {
		logger.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logger.Info().Msg("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		logger.Info().Str("domain", cfg.NgrokDomain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	logger.Info().
		Str("rest", ngrokURL+"/api").
		Str("websocket", ngrokURL+"/ws?session=<session_id>").
		Str("mcp", ngrokURL+"/mcp").
		Msgf("Ngrok tunnel established: %s", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error().Err(err).Msg("Ngrok server error")
	}
	logger.Info().Msg("Ngrok tunnel closed")
}

// externalServerAvailable reports whether a server already answers at baseURL
func externalServerAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalServer serves the API on a random loopback port and returns
// its base URL.
func startInternalServer(ctx context.Context, app *services, logger zerolog.Logger) (string, *http.Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL := "http://" + listener.Addr().String()

	hub := websocket.NewHub(logger.With().Str("component", "websocket").Logger())
	go hub.Run(ctx)

	httpServer := &http.Server{
		Handler: newRouter(app, hub, baseURL, logger),
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Internal HTTP server error")
		}
	}()

	return baseURL, httpServer, nil
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It reuses an API already listening on the configured address; if there is
// none, it starts an internal one bound to a random loopback port.
func runStdioMCPWithInternalServer(ctx context.Context, cfg config.Config, app *services, logger zerolog.Logger) error {
	baseURL := "http://" + cfg.Addr()
	logger.Info().Str("url", baseURL).Msg("Checking for external API server")

	if externalServerAvailable(ctx, baseURL) {
		logger.Info().Str("url", baseURL).Msg("MCP stdio server ready (using external HTTP server)")
	} else {
		internalURL, httpServer, err := startInternalServer(ctx, app, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()
		baseURL = internalURL
		logger.Info().Str("url", baseURL).Msg("MCP stdio server ready (using internal HTTP server)")
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
