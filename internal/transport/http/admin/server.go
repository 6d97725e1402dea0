// Package admin exposes the operator HTTP surface: health, pipeline status,
// circuit breaker inspection and reset, and cycle history queries.
package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradewind/internal/breaker"
	"tradewind/internal/logger"
	"tradewind/internal/store"

	"github.com/gin-gonic/gin"
)

// StatusProvider 汇报运行状态，由 app 层实现。
type StatusProvider interface {
	Status() map[string]any
}

// ServerConfig 描述 admin HTTP 服务依赖。
type ServerConfig struct {
	Addr    string
	Breaker *breaker.CircuitBreaker
	Cycles  store.CycleStore
	Trades  store.TradeStore
	Status  StatusProvider
}

// Server 提供最小化的管理 HTTP 服务。
type Server struct {
	addr   string
	router *gin.Engine
	srv    *http.Server
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Breaker == nil {
		return nil, errors.New("admin http server requires a circuit breaker")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9985"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/status", func(c *gin.Context) {
		out := gin.H{}
		if cfg.Status != nil {
			for k, v := range cfg.Status.Status() {
				out[k] = v
			}
		}
		tripped, reason, at := cfg.Breaker.Status()
		out["breaker_tripped"] = tripped
		if tripped {
			out["breaker_reason"] = reason
			out["breaker_tripped_at"] = at.Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, out)
	})
	api.GET("/breaker", func(c *gin.Context) {
		tripped, reason, at := cfg.Breaker.Status()
		resp := gin.H{"tripped": tripped}
		if tripped {
			resp["reason"] = reason
			resp["tripped_at"] = at.Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, resp)
	})
	// 熔断只能人工复位，没有自动半开逻辑。
	api.POST("/breaker/reset", func(c *gin.Context) {
		tripped, reason, _ := cfg.Breaker.Status()
		cfg.Breaker.Reset()
		logger.Infof("admin: breaker reset via http was_tripped=%v reason=%q", tripped, reason)
		c.JSON(http.StatusOK, gin.H{"reset": true, "was_tripped": tripped})
	})

	if cfg.Cycles != nil {
		api.GET("/cycles", func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
			recs, err := cfg.Cycles.ListCycles(c.Request.Context(), c.Query("ticker"), limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"cycles": recs})
		})
	}
	if cfg.Trades != nil {
		api.GET("/trades", func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
			recs, err := cfg.Trades.ListTrades(c.Request.Context(), c.Query("symbol"), limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"trades": recs})
		})
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Start 在后台启动 HTTP 服务。
func (s *Server) Start() {
	s.srv = &http.Server{Addr: s.addr, Handler: s.router}
	go func() {
		logger.Infof("admin http listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("admin http server: %v", err)
		}
	}()
}

// Shutdown 优雅停止。
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Router 暴露底层 router，便于测试。
func (s *Server) Router() *gin.Engine { return s.router }

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if strings.HasPrefix(c.Request.URL.Path, "/healthz") {
			return
		}
		logger.Debugf("http %s %s status=%d cost=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Truncate(time.Millisecond))
	}
}
