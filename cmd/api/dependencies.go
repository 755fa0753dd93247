package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vendo-app/vendo-api/internal/domain/auth"
	"github.com/vendo-app/vendo-api/internal/domain/cart"
	"github.com/vendo-app/vendo-api/internal/domain/product"
	"github.com/vendo-app/vendo-api/internal/domain/subscription"
	"github.com/vendo-app/vendo-api/internal/domain/user"
	"github.com/vendo-app/vendo-api/pkg/config"
	"github.com/vendo-app/vendo-api/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	UserRepo         user.Repository
	SubscriptionRepo subscription.Repository
	ProductRepo      product.Repository
	CartRepo         cart.Repository

	// Services
	TokenManager        *auth.TokenManager
	AuthService         *auth.Service
	UserService         *user.Service
	SubscriptionService *subscription.Service
	PlanCatalog         *subscription.PlanCatalog
	ProductService      *product.Service
	CartService         *cart.Service

	// Handlers
	AuthHandler         *auth.Handler
	UserHandler         *user.Handler
	SubscriptionHandler *subscription.Handler
	ProductHandler      *product.Handler
	CartHandler         *cart.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}
	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}
	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.UserRepo = user.NewPostgresRepo(d.DB.Pool, d.Logger)
	d.SubscriptionRepo = subscription.NewRepositoryImpl(d.DB.Pool, d.Logger)
	d.ProductRepo = product.NewRepositoryImpl(d.DB.Pool, d.Logger)
	d.CartRepo = cart.NewRepositoryImpl(d.DB.Pool, d.Logger)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	if d.Config.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}

	d.TokenManager = auth.NewTokenManager(d.Config.Auth.JWTSecret, d.Config.Auth.AccessTokenTTL)
	d.UserService = user.NewService(d.UserRepo, d.Logger)
	d.AuthService = auth.NewService(d.UserRepo, d.TokenManager, d.Logger)

	var sellerPolicy subscription.SellerPolicy = subscription.LiveSubscriptionPolicy{}
	if d.Config.Subscriptions.SellerKillSwitch {
		d.Logger.Warn("seller kill switch is enabled; all selling is disabled")
		sellerPolicy = subscription.DenyAllPolicy{}
	}

	d.PlanCatalog = subscription.NewPlanCatalog(d.SubscriptionRepo, 5*time.Minute, d.Logger)
	d.SubscriptionService = subscription.NewService(
		d.SubscriptionRepo,
		d.PlanCatalog,
		d.UserService,
		sellerPolicy,
		d.Config.Subscriptions.ExpiryWarningDays,
		d.Logger,
	)

	d.ProductService = product.NewService(d.ProductRepo, d.SubscriptionService, d.Logger)
	d.CartService = cart.NewService(d.CartRepo, d.ProductRepo, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.AuthHandler = auth.NewHandler(d.AuthService, d.Logger)
	d.UserHandler = user.NewHandler(d.UserService, d.Logger)
	d.SubscriptionHandler = subscription.NewHandler(d.SubscriptionService, d.Logger)
	d.ProductHandler = product.NewHandler(d.ProductService, d.Logger)
	d.CartHandler = cart.NewHandler(d.CartService, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
