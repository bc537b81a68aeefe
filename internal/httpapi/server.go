package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"banking-platform/internal/account"
	"banking-platform/internal/auth"
	"banking-platform/internal/customer"
	"banking-platform/internal/ledger"
	"banking-platform/internal/models"
	"banking-platform/internal/statement"
	"banking-platform/internal/store"

	"github.com/gin-gonic/gin"
)

// AccountAPI bundles the Account service dependencies for router assembly.
type AccountAPI struct {
	Accounts   *account.Service
	Engine     *ledger.Engine
	Movements  store.MovementStore
	Statements *statement.Service
}

// CustomerAPI bundles the Customer service dependencies for router assembly.
type CustomerAPI struct {
	Customers *customer.Service
}

// NewAccountRouter assembles the Account service REST surface.
func NewAccountRouter(cfg *models.Config, tokens *auth.Manager, api AccountAPI) *gin.Engine {
	router := newRouter(cfg)
	router.Use(Auth(tokens, cfg.Security.Enabled,
		"GET /health",
	))

	accounts := &accountHandlers{accounts: api.Accounts}
	movements := &movementHandlers{engine: api.Engine, movements: api.Movements}
	reports := &reportHandlers{statements: api.Statements}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/accounts", accounts.create)
		v1.GET("/accounts", accounts.list)
		v1.GET("/accounts/:accountNumber", accounts.get)
		v1.PUT("/accounts/:accountNumber", accounts.update)
		v1.PATCH("/accounts/:accountNumber/state", accounts.patchState)
		v1.DELETE("/accounts/:accountNumber", accounts.delete)
		v1.GET("/accounts/:accountNumber/balance", accounts.balance)

		v1.POST("/movements", movements.post)
		v1.GET("/movements", movements.list)
		v1.GET("/movements/:movementId", movements.get)
		v1.POST("/movements/:movementId/reverse", movements.reverse)

		v1.GET("/reports/account-statement/:customerId", reports.accountStatement)
		v1.GET("/reports/movements-summary", reports.movementsSummary)
	}

	return router
}

// NewCustomerRouter assembles the Customer service REST surface. Customer
// registration stays public so the platform can bootstrap first users.
func NewCustomerRouter(cfg *models.Config, tokens *auth.Manager, api CustomerAPI) *gin.Engine {
	router := newRouter(cfg)
	router.Use(Auth(tokens, cfg.Security.Enabled,
		"GET /health",
		"POST /api/v1/customers",
	))

	customers := &customerHandlers{customers: api.Customers}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/customers", customers.create)
		v1.GET("/customers", customers.list)
		v1.GET("/customers/:customerId", customers.get)
		v1.GET("/customers/:customerId/validate", customers.validate)
		v1.PUT("/customers/:customerId", customers.update)
		v1.PATCH("/customers/:customerId/state", customers.patchState)
		v1.PATCH("/customers/:customerId/password", customers.updatePassword)
		v1.DELETE("/customers/:customerId", customers.delete)
	}

	return router
}

func newRouter(cfg *models.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORS(cfg.Server.AllowedOrigins))
	router.Use(Tracing())
	router.Use(RequestTimeout(cfg.Server.RequestTimeout))

	router.GET("/health", func(c *gin.Context) {
		respondHealth(c, cfg.ServiceName)
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody(c, http.StatusNotFound,
			"NOT_FOUND", "no route for "+c.Request.URL.Path))
	})

	return router
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests before returning.
func Serve(ctx context.Context, cfg *models.Config, router *gin.Engine) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
