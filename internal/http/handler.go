package http

import (
	"context"
	"fmt"
	gohttp "net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/hxuan190/chain-gateway/internal/config"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/gateway"
	"github.com/hxuan190/chain-gateway/internal/http/httputil"
	"github.com/hxuan190/chain-gateway/internal/http/middlewares"
	"github.com/hxuan190/chain-gateway/internal/pools"
)

const (
	API_VERSION  = "v1"
	HTTP_SERVICE = "http-service"
)

// SwapService is the gateway as used by the handlers. *gateway.Router
// implements it.
type SwapService interface {
	Quote(ctx context.Context, chainNetwork string, req gateway.SwapRequest) (*domain.SwapQuote, error)
	Execute(ctx context.Context, chainNetwork string, req gateway.SwapRequest) (domain.TransactionOutcome, error)
	QuoteForConnector(ctx context.Context, provider string, req gateway.SwapRequest) (*domain.SwapQuote, error)
	ExecuteQuote(ctx context.Context, provider, network, walletAddress, quoteID string) (domain.TransactionOutcome, error)
	Poll(ctx context.Context, chain, network, signature string) (domain.PollResponse, error)
	Catalog() []gateway.ChainInfo
}

// PoolStore is implemented by *pools.Registry.
type PoolStore interface {
	List(f pools.Filter) []*domain.Pool
	Add(pool *domain.Pool) error
	Remove(key domain.PoolKey) error
}

type HTTPService struct {
	conf        *config.GeneralConfig
	rateLimiter *middlewares.RateLimiter
	server      *gohttp.Server
	done        chan struct{}
	stopOnce    sync.Once

	handlers []httputil.IHttpHandler
}

func NewHTTPService(conf *config.GeneralConfig, swaps SwapService, poolStore PoolStore) *HTTPService {
	return &HTTPService{
		conf:        conf,
		rateLimiter: middlewares.NewRateLimiter(conf.RateLimitRPS, conf.RateLimitBurst),
		done:        make(chan struct{}),
		handlers: []httputil.IHttpHandler{
			NewSwapHandler(swaps),
			NewConnectorHandler(swaps),
			NewChainHandler(swaps),
			NewPoolHandler(poolStore),
		},
	}
}

func (svc *HTTPService) ID() string {
	return HTTP_SERVICE
}

// Engine builds the gin engine with every route registered.
func (svc *HTTPService) Engine() *gin.Engine {
	var r *gin.Engine
	if svc.conf.Env == config.DevEnv {
		r = gin.Default()
	} else {
		gin.SetMode(gin.ReleaseMode)
		r = gin.New()
		r.Use(gin.Recovery())
	}

	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	corsConf.AddAllowHeaders("Authorization", middlewares.AdminKeyHeader)
	r.Use(cors.New(corsConf))

	r.Use(middlewares.MetricsMiddleware())
	r.Use(svc.rateLimiter.RateLimitMiddleware())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(gohttp.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("api")
	pub := api.Group(API_VERSION)
	priv := api.Group(API_VERSION)
	if svc.conf.AdminAPIKey == "" {
		log.Warn().Str("env", svc.conf.Env).Msg("ADMIN_API_KEY not set, admin routes are unauthenticated")
	}
	admin := api.Group(fmt.Sprintf("%s/admin", API_VERSION), middlewares.AdminAuth(svc.conf.AdminAPIKey))

	svc.setupHandlers(pub, priv, admin)
	return r
}

// Start serves until Stop is called.
func (svc *HTTPService) Start() error {
	svc.server = &gohttp.Server{
		Addr:              svc.conf.HTTPHost + ":" + svc.conf.HTTPPort,
		Handler:           svc.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go svc.sweepLimiter()

	log.Info().Str("host", svc.conf.HTTPHost).Str("port", svc.conf.HTTPPort).Msg("http server started")
	if err := svc.server.ListenAndServe(); err != nil && err != gohttp.ErrServerClosed {
		return err
	}
	return nil
}

func (svc *HTTPService) Stop() error {
	svc.stopOnce.Do(func() { close(svc.done) })
	if svc.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
		return err
	}
	log.Info().Msg("http server stopped gracefully")
	return nil
}

func (svc *HTTPService) sweepLimiter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := svc.rateLimiter.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("[rateLimiter] dropped idle clients")
			}
		case <-svc.done:
			return
		}
	}
}

func (svc *HTTPService) setupHandlers(
	rootPub *gin.RouterGroup,
	rootPriv *gin.RouterGroup,
	rootAdmin *gin.RouterGroup,
) {
	for _, h := range svc.handlers {
		pub := rootPub.Group(h.Root())
		priv := rootPriv.Group(h.Root())
		admin := rootAdmin.Group(h.Root())
		h.SetRoutes(pub, priv, admin)
	}
}
