package handler

import (
	"github.com/closebooks/backend/internal/interfaces/http/router"
)

// ReviewRoutes creates the route group for review endpoints
func ReviewRoutes(handler *ReviewHandler) *router.DomainGroup {
	group := router.NewDomainGroup("review", "/reviews")

	group.POST("/run", handler.Run)
	group.GET("/catalog", handler.Catalog)

	return group
}

// SystemRoutes creates the route group for system endpoints
func SystemRoutes(handler *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "/system")

	group.GET("/info", handler.GetSystemInfo)
	group.GET("/ping", handler.Ping)

	return group
}
