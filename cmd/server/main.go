package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/FreePeak/json-db-mcp-server/internal/config"
	deliverymcp "github.com/FreePeak/json-db-mcp-server/internal/delivery/mcp"
	"github.com/FreePeak/json-db-mcp-server/internal/infrastructure/database"
	"github.com/FreePeak/json-db-mcp-server/internal/logger"
	"github.com/FreePeak/json-db-mcp-server/internal/mcp"
	"github.com/FreePeak/json-db-mcp-server/internal/metrics"
	"github.com/FreePeak/json-db-mcp-server/internal/repository"
	"github.com/FreePeak/json-db-mcp-server/internal/session"
	"github.com/FreePeak/json-db-mcp-server/internal/transport"
	"github.com/FreePeak/json-db-mcp-server/internal/usecase"
	"github.com/FreePeak/json-db-mcp-server/pkg/core"
	"github.com/FreePeak/json-db-mcp-server/pkg/tools"
)

// Command line overrides
var (
	transportMode string
	port          int
	storeBackend  string
	dataDir       string
	logLevel      string
	autoRegister  bool
)

var rootCmd = &cobra.Command{
	Use:   "json-db-mcp-server",
	Short: "MCP server for named JSON document databases",
	Long: `json-db-mcp-server exposes named JSON document databases to MCP clients.

Configuration is read from the environment and an optional .env file; flags
override both.

Examples:
  # Serve a single client over stdin/stdout
  json-db-mcp-server -t stdio

  # Serve many clients over server-sent events
  json-db-mcp-server -t sse --port 9090`,
	Version:       core.Version(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&transportMode, "transport", "t", "", "Transport mode (sse or stdio)")
	rootCmd.Flags().IntVar(&port, "port", 0, "Server port for the sse transport")
	rootCmd.Flags().StringVar(&storeBackend, "store", "", "Document store backend (badger, memory or sql)")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory of the badger backend")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&autoRegister, "auto-register", false, "Record databases in the catalog on first use")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Initialize(cfg.LogLevel)
	logger.Info("Starting %s %s with %s transport", core.Name(), core.Version(), cfg.TransportMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg)
}

// applyFlags overrides configuration values with flags the user set
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.TransportMode = strings.ToLower(transportMode)
	}
	if flags.Changed("port") {
		cfg.ServerPort = port
	}
	if flags.Changed("store") {
		cfg.Store.Backend = strings.ToLower(storeBackend)
	}
	if flags.Changed("data-dir") {
		cfg.Store.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(logLevel)
	}
	if flags.Changed("auto-register") {
		cfg.Store.AutoRegister = autoRegister
	}
}

// run wires the server together and blocks until ctx is done or the
// transport stops.
func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New(nil)

	opener, err := database.NewFactory().CreateOpener(ctx, cfg.Store, cfg.DBConfig)
	if err != nil {
		return fmt.Errorf("failed to create document store: %w", err)
	}

	dbRegistry := repository.NewRegistry(opener, m)
	defer func() {
		logger.Info("Closing databases: %s", strings.Join(dbRegistry.Names(), ", "))
		if err := dbRegistry.Close(); err != nil {
			logger.Error("Failed to close databases: %v", err)
		}
		logger.Info("Server stopped")
	}()

	catalog, err := repository.OpenCatalog(ctx, dbRegistry, cfg.Store.CatalogName)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}

	useCase := usecase.NewDatabaseUseCase(catalog, dbRegistry, usecase.WithAutoRegister(cfg.Store.AutoRegister))

	toolRegistry := tools.NewRegistry()
	if err := deliverymcp.NewToolRegistry(toolRegistry).RegisterAllTools(useCase); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	mcpHandler := mcp.NewHandler(toolRegistry, mcp.WithToolTimeout(cfg.ToolTimeout), mcp.WithMetrics(m))
	logger.Info("Successfully registered tools: %s", mcpHandler.ListAvailableTools())

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	sessionManager := session.NewManager()
	defer sessionManager.CloseAll()

	var tr transport.Transport
	switch cfg.TransportMode {
	case "sse":
		tr = transport.NewSSETransport(sessionManager, mcpHandler, fmt.Sprintf(":%d", cfg.ServerPort), "")
	case "stdio":
		tr = transport.NewStdioTransport(sessionManager, mcpHandler)
	default:
		return fmt.Errorf("unknown transport mode: %s", cfg.TransportMode)
	}

	if err := tr.Serve(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		logger.Info("Shutdown signal received")
	}
	return nil
}

// serveMetrics exposes prometheus metrics on a separate listener
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server error: %v", err)
	}
}
