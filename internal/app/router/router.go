package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	alerthandler "stock_alerts/internal/feature/alert/transport/handler"
	symbollisthandler "stock_alerts/internal/feature/symbollist/transport/handler"
	healthhandler "stock_alerts/internal/platform/http/handler"
	jwtmw "stock_alerts/internal/platform/jwt"
)

// Handlers はルーターに登録するハンドラー一式です。
type Handlers struct {
	Health  *healthhandler.HealthHandler
	Alerts  *alerthandler.AlertHandler
	Symbols *symbollisthandler.SymbolHandler
	Metrics http.Handler
}

func NewRouter(h Handlers, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 認証不要
	// 導通確認用
	r.GET("/healthz", h.Health.Live)
	r.HEAD("/healthz", h.Health.Live)
	r.GET("/readyz", h.Health.Ready)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	// 認証必須のルート
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(jwtSecret))
	{
		auth.GET("/symbols", h.Symbols.List)
		auth.GET("/watchlist", h.Symbols.Watchlist)

		auth.GET("/alerts", h.Alerts.List)
		auth.GET("/alerts/:id/logs", h.Alerts.Logs)
		auth.PUT("/alerts/:id/active", h.Alerts.SetActive)
		auth.GET("/snapshots/:code", h.Alerts.Snapshot)
	}

	return r
}
