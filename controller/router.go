package controller

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func NewRouter(rosterController *RosterController, memberController *MemberController, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	api := r.Group("/api")
	{
		api.GET("/rosters", rosterController.FindMany)
		api.POST("/rosters", rosterController.Publish)
		api.GET("/rosters/feed", rosterController.Feed)
		api.GET("/rosters/:id", rosterController.FindOne)
		api.PUT("/rosters/:id", rosterController.Publish)
		api.DELETE("/rosters/:id", rosterController.Retire)
		api.POST("/rosters/:id/confirm", rosterController.Confirm)
		api.POST("/rosters/:id/decline", rosterController.Decline)

		api.GET("/members", memberController.Search)
	}

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}

func RequestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		status := ctx.Writer.Status()
		event := log.Debug()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}

		event.Str("verb", ctx.Request.Method).
			Str("path", ctx.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}
