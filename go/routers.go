package opinionsserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions toggles the auxiliary endpoints.
type RouterOptions struct {
	Metrics bool
}

// NewRouter registers the opinions routes under /api/opiniones plus /healthz and, optionally, /metrics.
func NewRouter(api *OpinionAPI, opts RouterOptions, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware())
	if opts.Metrics {
		router.Use(MetricsMiddleware())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	router.Use(middleware...)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := router.Group("/api/opiniones")
	group.POST("/solicitaropiniones", api.RequestOpinions)
	group.GET("/obteneropiniones", api.ListByFolio)
	group.GET("/obtenerdetalleopinion", api.GetReceptorDetail)
	group.PATCH("/agregarArchivos", api.AddAttachments)
	group.PATCH("/finalizaropinion", api.FinalizeInternal)
	group.PATCH("/finalizaropinionexterna", api.FinalizeExternal)
	group.GET("/consultaropinionexterna", api.GetExternalOpinion)
	group.PUT("/actualizaropinion", api.UpdateOpinion)
	group.GET("/pendientesfirma", api.PendingSignatureFolios)
	return router
}
