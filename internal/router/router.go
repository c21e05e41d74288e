package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/config"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/handler"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/middleware"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/service"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/store"
)

// Deps carries what the routes need.  Redis may be nil, which disables
// rate limiting and the catalog cache.
type Deps struct {
	Svc       *service.Service
	Store     store.Store
	JWTSecret string
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

// RegisterRoutes registers unauthenticated probes.
func RegisterRoutes(e *echo.Echo, s store.Store) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(s))
}

// RegisterAPI registers the /v1 API.  Every route requires a session
// token; mutating participant routes are rate limited per session.
func RegisterAPI(e *echo.Echo, d Deps) {
	rooms := &handler.RoomHandler{Svc: d.Svc}
	reqs := &handler.RequestHandler{Svc: d.Svc}
	me := &handler.SessionHandler{Svc: d.Svc}

	v1 := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis)

	v1.GET("/rooms", rooms.ListRooms, middleware.NewRedisCache(d.Cache, d.Redis))
	v1.GET("/rooms/:id", rooms.GetRoom)
	v1.GET("/rooms/:id/stream", rooms.StreamRoom)
	v1.POST("/rooms/:id/hold", rooms.Hold, limit)
	v1.DELETE("/rooms/:id/hold", rooms.Release)
	v1.POST("/rooms/:id/select", rooms.Select, limit)
	v1.POST("/rooms/:id/join-requests", rooms.RequestJoin, limit)

	v1.POST("/invitations", reqs.Invite, limit)
	v1.GET("/requests", reqs.List)
	v1.POST("/requests/:id/accept", reqs.Accept, limit)
	v1.POST("/requests/:id/reject", reqs.Reject, limit)
	v1.POST("/requests/:id/cancel", reqs.Cancel)

	v1.GET("/me", me.Me)
	v1.GET("/me/stream", me.StreamMe)
	v1.POST("/me/ack-cancellation", me.AckCancellation)

	RegisterAdmin(v1, d)
}

// RegisterAdmin registers the administrator overrides under /v1/admin.
func RegisterAdmin(v1 *echo.Group, d Deps) {
	a := &handler.AdminHandler{Svc: d.Svc}
	g := v1.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))

	g.POST("/invitations", a.Invite)
	g.DELETE("/rooms/:id/occupants/:identity", a.CancelAssignment)
	g.POST("/guests", a.AssignGuest)
	g.POST("/guests/:id/migrate", a.MigrateGuest)
}
