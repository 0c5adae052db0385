package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"textbook-proxy/proxy"
)

type server struct {
	chat   proxy.Handler
	health proxy.Handler
	logger *slog.Logger

	// restrictedCORS is set when gin-contrib/cors owns the CORS headers.
	restrictedCORS bool
}

// router registers both endpoints at the root and under /api, the paths a
// serverless deployment exposes them at. With allowOrigins empty every
// response carries the permissive CORS set; otherwise only the listed
// origins are allowed.
func (s *server) router(allowOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if len(allowOrigins) > 0 {
		s.restrictedCORS = true
		router.Use(preflightOK())
		router.Use(cors.New(cors.Config{
			AllowOrigins:     allowOrigins,
			AllowMethods:     strings.Split(proxy.AllowedMethods, ","),
			AllowHeaders:     strings.Split(proxy.AllowedHeaders, ", "),
			AllowCredentials: true,
		}))
	}

	for _, prefix := range []string{"", "/api"} {
		router.Any(prefix+"/chat", s.handle(s.chat))
		router.Any(prefix+"/health", s.handle(s.health))
	}

	return router
}

func (s *server) handle(h proxy.Handler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var resp proxy.Response
		body, err := proxy.ReadBody(ctx.Writer, ctx.Request)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to read request body", slog.Any("error", err))
			resp = proxy.ReadErrorResponse(err)
		} else {
			resp = h.Handle(ctx.Request.Context(), proxy.FromHTTP(ctx.Request, body))
		}
		if s.restrictedCORS {
			for k := range resp.Headers {
				if strings.HasPrefix(k, "Access-Control-") {
					delete(resp.Headers, k)
				}
			}
		}
		proxy.WriteHTTP(ctx.Writer, resp)
	}
}

// preflightWriter reports the 204 gin-contrib/cors answers preflights with
// as 200, matching the preflight reply of the permissive mode.
type preflightWriter struct {
	gin.ResponseWriter
}

func (w *preflightWriter) WriteHeader(code int) {
	if code == http.StatusNoContent {
		code = http.StatusOK
	}
	w.ResponseWriter.WriteHeader(code)
}

// preflightOK must run before the cors middleware, which aborts the chain.
func preflightOK() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodOptions {
			ctx.Writer = &preflightWriter{ResponseWriter: ctx.Writer}
		}
		ctx.Next()
	}
}
