package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/grievance-management/internal"
	"github.com/frahmantamala/grievance-management/internal/auth"
	authPostgres "github.com/frahmantamala/grievance-management/internal/auth/postgres"
	"github.com/frahmantamala/grievance-management/internal/comment"
	commentPostgres "github.com/frahmantamala/grievance-management/internal/comment/postgres"
	"github.com/frahmantamala/grievance-management/internal/core/events"
	"github.com/frahmantamala/grievance-management/internal/department"
	departmentPostgres "github.com/frahmantamala/grievance-management/internal/department/postgres"
	"github.com/frahmantamala/grievance-management/internal/grievance"
	grievancePostgres "github.com/frahmantamala/grievance-management/internal/grievance/postgres"
	"github.com/frahmantamala/grievance-management/internal/metrics"
	"github.com/frahmantamala/grievance-management/internal/storage"
	"github.com/frahmantamala/grievance-management/internal/transport"
	"github.com/frahmantamala/grievance-management/internal/transport/rest"
	"github.com/frahmantamala/grievance-management/internal/transport/swagger"
	"github.com/frahmantamala/grievance-management/internal/user"
	userPostgres "github.com/frahmantamala/grievance-management/internal/user/postgres"
	"github.com/frahmantamala/grievance-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
	Bus    *events.EventBus
	Blobs  storage.BlobStore

	Policy      *auth.Policy
	Auth        *auth.Service
	Departments *department.Service
	Users       *user.Service
	Grievances  *grievance.Service
	Comments    *comment.Service
}

// Close releases the database and waits for in-flight event handlers.
func (d *Dependencies) Close() {
	d.Bus.Wait()
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func startHTTPServer() {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(ctx, deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.Close()
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(ctx context.Context, deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	var spec *swagger.Spec
	if cfg.Server.OpenAPIPath != "" {
		s, err := swagger.Load(ctx, cfg.Server.OpenAPIPath)
		if err != nil {
			return err
		}
		lg.Info("Loaded API document", "title", s.Title(), "version", s.Version())
		spec = s
	}

	checks := map[string]rest.Check{
		"postgres": deps.DB.PingContext,
	}
	if p, ok := deps.Blobs.(storage.Pinger); ok {
		checks["storage"] = p.Ping
	}

	base := transport.NewBaseHandler(lg)
	rest.RegisterAllRoutes(deps.Router, rest.Options{
		Health:         rest.NewHealthHandler(checks),
		Auth:           auth.NewHandler(base, deps.Auth),
		RBAC:           auth.NewRBACAuthorization(lg),
		Users:          user.NewHandler(base, deps.Users),
		Departments:    department.NewHandler(base, deps.Departments),
		Grievances:     grievance.NewHandler(base, deps.Grievances),
		Comments:       comment.NewHandler(base, deps.Comments),
		Spec:           spec,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
		Logger:         lg,
	})
	return nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Setup(os.Stdout, config.Observability.Logging.Level, config.Observability.Logging.Format)
	slog.SetDefault(lg)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := openGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	blobs, err := storage.New(ctx, config.Storage)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	bus := events.NewEventBus(lg)
	if config.Observability.Metrics.Enabled {
		metrics.NewLifecycle(nil, lg).Attach(bus)
	}

	policy := auth.NewPolicy(lg)
	tokens := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)

	departments := department.NewService(
		departmentPostgres.NewDepartmentRepository(gdb),
		policy,
		department.NewCache(config.Cache.DepartmentSize, config.Cache.DepartmentTTL),
		lg,
	)
	grievances := grievance.NewService(grievancePostgres.NewGrievanceRepository(gdb), departments, blobs, policy, bus, lg)

	return &Dependencies{
		Config:      config,
		DB:          db,
		Gorm:        gdb,
		Router:      chi.NewRouter(),
		Logger:      lg,
		Bus:         bus,
		Blobs:       blobs,
		Policy:      policy,
		Auth:        auth.NewService(authPostgres.NewRepository(gdb), tokens, lg),
		Departments: departments,
		Users:       user.NewService(userPostgres.NewUserRepository(gdb), departments, policy, config.Security.BCryptCost, lg),
		Grievances:  grievances,
		Comments:    comment.NewService(commentPostgres.NewCommentRepository(gdb), grievances, policy, lg),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// openGorm shares the sqlx pool with gorm.
func openGorm(db *sqlx.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return gdb, nil
}
