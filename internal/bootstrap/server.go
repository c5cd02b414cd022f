package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skytide/travelbooking/api"
	"github.com/skytide/travelbooking/config"
	"github.com/skytide/travelbooking/internal/service/booking"
	"github.com/skytide/travelbooking/internal/service/cancellation"
	"github.com/skytide/travelbooking/internal/service/quotes"
)

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, bookingSvc booking.BookingUseCase, cancelSvc cancellation.CancellationUseCase, quoteSvc quotes.QuoteUseCase) error {
	router := NewRouter(bookingSvc, cancelSvc, quoteSvc)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(bookingSvc booking.BookingUseCase, cancelSvc cancellation.CancellationUseCase, quoteSvc quotes.QuoteUseCase) *gin.Engine {
	router := gin.Default()
	router.Use(requestID())

	bookingHandler := api.NewBookingHandler(bookingSvc, cancelSvc)
	bookingHandler.Register(router.Group("/bookings"))

	quoteHandler := api.NewQuoteHandler(quoteSvc)
	quoteHandler.Register(router.Group("/quotes"))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// requestID tags every response so log lines and support tickets can be
// correlated with a single request.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}
