package sessioncart

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	plog "github.com/sasusavage/perfumeshop/pkg/logger"
)

type RouterConfig struct {
	CookieName     string
	SessionTTL     time.Duration
	RequestTimeout time.Duration
}

// NewRouter mounts the cart API under /api/cart.
func NewRouter(h *CartHandler, cfg RouterConfig, logger *zap.Logger) http.Handler {
	logger = plog.OrNop(logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.CookieName, cfg.SessionTTL))
		r.Get("/", h.GetCart)
		r.Post("/add", h.AddItem)
		r.Post("/update", h.UpdateItem)
		r.Post("/remove", h.RemoveItem)
		r.Post("/clear", h.ClearCart)
	})

	return otelhttp.NewHandler(r, "cart-api")
}

// RequestLogger logs one line per request through zap.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
