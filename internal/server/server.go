package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/clinicore/panelbilling/internal/audit/domain"
	companydomain "github.com/clinicore/panelbilling/internal/company/domain"
	"github.com/clinicore/panelbilling/internal/config"
	ledgerdomain "github.com/clinicore/panelbilling/internal/ledger/domain"
	"github.com/clinicore/panelbilling/internal/observability"
	obsmiddleware "github.com/clinicore/panelbilling/internal/observability/logger"
	obsmetrics "github.com/clinicore/panelbilling/internal/observability/metrics"
	obstracing "github.com/clinicore/panelbilling/internal/observability/tracing"
	paymentdomain "github.com/clinicore/panelbilling/internal/payment/domain"
	ratedomain "github.com/clinicore/panelbilling/internal/raterule/domain"
	reportingdomain "github.com/clinicore/panelbilling/internal/reporting/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	companySvc   companydomain.Service
	rateRuleSvc  ratedomain.Service
	ledgerSvc    ledgerdomain.Service
	paymentSvc   paymentdomain.Service
	reportingSvc reportingdomain.Service
	auditSvc     auditdomain.Service
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	CompanySvc   companydomain.Service
	RateRuleSvc  ratedomain.Service
	LedgerSvc    ledgerdomain.Service
	PaymentSvc   paymentdomain.Service
	ReportingSvc reportingdomain.Service
	AuditSvc     auditdomain.Service `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		companySvc:   p.CompanySvc,
		rateRuleSvc:  p.RateRuleSvc,
		ledgerSvc:    p.LedgerSvc,
		paymentSvc:   p.PaymentSvc,
		reportingSvc: p.ReportingSvc,
		auditSvc:     p.AuditSvc,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/companies", s.CreateCompany)
	v1.GET("/companies", s.ListCompanies)
	v1.GET("/companies/:id", s.GetCompany)

	v1.POST("/rate-rules", s.CreateRateRule)
	v1.PATCH("/rate-rules/:id", s.UpdateRateRule)
	v1.DELETE("/rate-rules/:id", s.DeactivateRateRule)
	v1.POST("/rate-rules/resolve", s.ResolvePrice)
	v1.GET("/companies/:id/rate-rules", s.ListRateRules)

	v1.POST("/transactions", s.AccrueTransaction)
	v1.GET("/transactions/:id", s.GetTransaction)
	v1.POST("/transactions/:id/status", s.SetTransactionStatus)
	v1.GET("/transactions/:id/outstanding", s.GetTransactionOutstanding)
	v1.GET("/companies/:id/transactions/outstanding", s.ListOutstandingTransactions)

	v1.POST("/payments", s.CreatePayment)
	v1.GET("/payments/:id", s.GetPayment)
	v1.POST("/payments/:id/allocations", s.AllocatePayment)
	v1.GET("/companies/:id/payments", s.ListPayments)

	v1.GET("/companies/:id/reports/outstanding", s.OutstandingReport)
	v1.GET("/companies/:id/reports/aging", s.AgingReport)
	v1.GET("/reports/outstanding", s.OutstandingReportAll)
	v1.GET("/reports/aging", s.AgingReportAll)
}
