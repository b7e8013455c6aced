// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, email) and wires the
// identity and OAuth services. This is the only place that knows about ALL modules.
package main

import (
	"context"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/tenantgate/pkg/config"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application/applicationhttp"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application/applicationinfra"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application/applicationsrv"
	"github.com/Abraxas-365/tenantgate/pkg/iam/auth"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser/enduserhttp"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser/enduserinfra"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser/endusersrv"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant/tenanthttp"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant/tenantinfra"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant/tenantsrv"
	"github.com/Abraxas-365/tenantgate/pkg/logx"
	"github.com/Abraxas-365/tenantgate/pkg/notifx"
	"github.com/Abraxas-365/tenantgate/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/tenantgate/pkg/notifx/notifxses"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/clientinfra"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/oauthhttp"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/tokeninfra"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/tokensrv"
)

// Container holds shared infrastructure and the composed services.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB       *sqlx.DB
	Redis    *redis.Client
	Notifier notifx.Notifier

	// Services
	TenantService      *tenantsrv.TenantService
	ApplicationService *applicationsrv.ApplicationService
	EndUserService     *endusersrv.EndUserService
	TokenService       *tokensrv.TokenService

	// Handlers — needed by cmd/ to register routes
	TenantHandlers      *tenanthttp.TenantHandlers
	ApplicationHandlers *applicationhttp.ApplicationHandlers
	EndUserHandlers     *enduserhttp.EndUserHandlers
	OAuthHandlers       *oauthhttp.OAuthHandlers

	// Middleware — needed by cmd/ to protect route groups
	AuthMiddleware *oauthhttp.BearerMiddleware
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure — DB, Redis, email
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	// 2. Redis (token store)
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. Email
	c.initNotifier()

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initNotifier() {
	var provider notifx.EmailSender

	switch c.Config.Notifx.Provider {
	case "ses":
		awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(c.Config.Notifx.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		provider = notifxses.NewSESProvider(ses.NewFromConfig(awsCfg), c.Config.Notifx.FromAddress)
		logx.Infof("  ✅ SES email provider configured (region: %s)", c.Config.Notifx.AWSRegion)

	case "console":
		provider = notifxconsole.NewConsoleProvider()
		logx.Info("  ✅ Console email provider configured")

	default:
		logx.Fatalf("Unknown NOTIFX_PROVIDER: %s (use 'console' or 'ses')", c.Config.Notifx.Provider)
	}

	client := notifx.NewClient(provider)
	if err := client.RegisterTemplate(tenantsrv.WelcomeTemplateName, tenantsrv.WelcomeTemplate); err != nil {
		logx.Fatalf("Failed to register welcome email template: %v", err)
	}
	c.Notifier = client
}

// ---------------------------------------------------------------------------
// Module composition — infra → repos → services → handlers → middleware
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	// Repositories
	tenantRepo := tenantinfra.NewPostgresTenantRepository(c.DB)
	appRepo := applicationinfra.NewPostgresApplicationRepository(c.DB)
	endUserRepo := enduserinfra.NewPostgresEndUserRepository(c.DB)
	clientRegistry := clientinfra.NewPostgresClientRegistry(c.DB)
	tokenStore := tokeninfra.NewRedisTokenStore(c.Redis)

	// Auth primitives
	hasher := auth.NewBcryptHasher()
	resolver := auth.NewPrincipalResolver(endUserRepo)
	enhancer := auth.NewTokenEnhancer(tenantRepo, endUserRepo)

	// Services
	c.TenantService = tenantsrv.NewTenantService(tenantRepo, clientRegistry, hasher, c.Notifier)
	c.ApplicationService = applicationsrv.NewApplicationService(appRepo, tenantRepo, clientRegistry)
	c.EndUserService = endusersrv.NewEndUserService(endUserRepo, appRepo, hasher)
	c.TokenService = tokensrv.NewTokenService(
		clientRegistry,
		tokenStore,
		resolver,
		enhancer,
		hasher,
		[]byte(c.Config.OAuth.SigningKey),
	)

	// Handlers + middleware
	c.AuthMiddleware = oauthhttp.NewBearerMiddleware(c.TokenService)
	c.OAuthHandlers = oauthhttp.NewOAuthHandlers(c.TokenService)
	c.TenantHandlers = tenanthttp.NewTenantHandlers(c.TenantService)
	c.ApplicationHandlers = applicationhttp.NewApplicationHandlers(c.ApplicationService)
	c.EndUserHandlers = enduserhttp.NewEndUserHandlers(c.EndUserService)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
