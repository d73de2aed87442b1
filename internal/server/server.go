package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mewayz/workspacebilling/internal/authorization"
	"github.com/mewayz/workspacebilling/internal/billinghistory"
	historydomain "github.com/mewayz/workspacebilling/internal/billinghistory/domain"
	"github.com/mewayz/workspacebilling/internal/bundle"
	"github.com/mewayz/workspacebilling/internal/bundle/catalog"
	"github.com/mewayz/workspacebilling/internal/bundle/pricing"
	"github.com/mewayz/workspacebilling/internal/cache"
	"github.com/mewayz/workspacebilling/internal/config"
	"github.com/mewayz/workspacebilling/internal/featureaccess"
	featureaccessdomain "github.com/mewayz/workspacebilling/internal/featureaccess/domain"
	"github.com/mewayz/workspacebilling/internal/lock"
	"github.com/mewayz/workspacebilling/internal/observability"
	obsmiddleware "github.com/mewayz/workspacebilling/internal/observability/logger"
	obsmetrics "github.com/mewayz/workspacebilling/internal/observability/metrics"
	obstracing "github.com/mewayz/workspacebilling/internal/observability/tracing"
	"github.com/mewayz/workspacebilling/internal/subscription"
	subscriptiondomain "github.com/mewayz/workspacebilling/internal/subscription/domain"
	"github.com/mewayz/workspacebilling/internal/usage"
	usagedomain "github.com/mewayz/workspacebilling/internal/usage/domain"
	"github.com/mewayz/workspacebilling/internal/usagewarning"
	warningdomain "github.com/mewayz/workspacebilling/internal/usagewarning/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	bundle.Module,
	cache.Module,
	lock.Module,
	billinghistory.Module,
	subscription.Module,
	featureaccess.Module,
	usagewarning.Module,
	usage.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	log             *zap.Logger
	catalog         *catalog.Catalog
	calculator      *pricing.Calculator
	authzSvc        authorization.Service
	subscriptionSvc subscriptiondomain.Service
	usageSvc        usagedomain.Service
	warningSvc      warningdomain.Service
	historySvc      historydomain.Service
	featureSvc      featureaccessdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Log             *zap.Logger
	Catalog         *catalog.Catalog
	Calculator      *pricing.Calculator
	AuthzSvc        authorization.Service
	SubscriptionSvc subscriptiondomain.Service
	UsageSvc        usagedomain.Service
	WarningSvc      warningdomain.Service
	HistorySvc      historydomain.Service
	FeatureSvc      featureaccessdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		log:             p.Log.Named("http.server"),
		catalog:         p.Catalog,
		calculator:      p.Calculator,
		authzSvc:        p.AuthzSvc,
		subscriptionSvc: p.SubscriptionSvc,
		usageSvc:        p.UsageSvc,
		warningSvc:      p.WarningSvc,
		historySvc:      p.HistorySvc,
		featureSvc:      p.FeatureSvc,
	}

	svc.registerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/", ActorRequired())

	api.GET("/bundles/available", s.ListAvailableBundles)
	api.GET("/pricing/calculate", s.CalculatePricing)

	ws := api.Group("/workspaces/:id", WorkspaceScope())

	// -------- Subscription --------
	ws.POST("/subscription", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionCreate), s.CreateSubscription)
	ws.GET("/subscription", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionView), s.GetSubscription)
	ws.PUT("/subscription/bundle", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionUpdate), s.ModifyBundles)
	ws.POST("/subscription/upgrade", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionUpdate), s.UpgradeSubscription)
	ws.POST("/subscription/downgrade", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionUpdate), s.DowngradeSubscription)
	ws.POST("/subscription/cancel", s.authorize(authorization.ObjectSubscription, authorization.ActionSubscriptionCancel), s.CancelSubscription)

	// -------- Usage --------
	ws.GET("/usage-limits", s.authorize(authorization.ObjectUsage, authorization.ActionUsageView), s.GetUsageLimits)
	ws.POST("/usage", s.authorize(authorization.ObjectUsage, authorization.ActionUsageTrack), s.TrackUsage)
	ws.GET("/usage/check", s.authorize(authorization.ObjectUsage, authorization.ActionUsageView), s.CheckUsageLimit)

	// -------- Usage Warnings --------
	ws.GET("/usage-warnings", s.authorize(authorization.ObjectUsageWarning, authorization.ActionUsageWarningView), s.ListUsageWarnings)
	ws.POST("/usage-warnings/:warning_id/resolve", s.authorize(authorization.ObjectUsageWarning, authorization.ActionUsageWarningResolve), s.ResolveUsageWarning)

	// -------- Billing History --------
	ws.GET("/billing-history", s.authorize(authorization.ObjectBillingHistory, authorization.ActionBillingHistoryView), s.ListBillingHistory)
	ws.GET("/billing-history/export", s.authorize(authorization.ObjectBillingHistory, authorization.ActionBillingHistoryExport), s.ExportBillingHistory)

	// -------- Feature Access --------
	ws.GET("/feature-access", s.authorize(authorization.ObjectFeatureAccess, authorization.ActionFeatureAccessView), s.GetFeatureAccess)
}
