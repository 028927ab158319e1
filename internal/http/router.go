package http

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type RouterConfig struct {
	Rooms      *RoomHandler
	Bookings   *BookingHandler
	Users      *UserHandler
	Slots      *SlotHandler
	System     *SystemHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(notFound)
	router.MethodNotAllowed = http.HandlerFunc(methodNotAllowed)

	if cfg.System != nil {
		router.GET("/healthz", cfg.System.Health)
		router.GET("/stats", cfg.System.Stats)
	}

	if cfg.Rooms != nil {
		router.GET("/rooms", cfg.Rooms.List)
		router.POST("/rooms", cfg.Rooms.Create)
		router.GET("/rooms/:code", cfg.Rooms.Get)
		router.PATCH("/rooms/:code", cfg.Rooms.Update)
		router.DELETE("/rooms/:code", cfg.Rooms.Delete)
		router.GET("/rooms/:code/bookings", cfg.Rooms.Bookings)
		router.GET("/rooms/:code/availability", cfg.Rooms.Availability)
	}

	if cfg.Bookings != nil {
		router.GET("/bookings", cfg.Bookings.List)
		router.POST("/bookings", cfg.Bookings.Create)
		router.GET("/bookings/:id", cfg.Bookings.Get)
		router.POST("/bookings/:id/approve", cfg.Bookings.Approve)
		router.POST("/bookings/:id/reject", cfg.Bookings.Reject)
		router.POST("/bookings/:id/cancel", cfg.Bookings.Cancel)
	}

	if cfg.Users != nil {
		router.GET("/users", cfg.Users.List)
		router.POST("/users", cfg.Users.Create)
		router.GET("/users/:code/bookings", cfg.Users.Bookings)
		router.GET("/me", cfg.Users.Me)
		router.PUT("/me/password", cfg.Users.UpdatePassword)
	}

	if cfg.Slots != nil {
		router.GET("/slots", cfg.Slots.List)
		router.GET("/slots/:period", cfg.Slots.Get)
	}

	var handler http.Handler = router
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func notFound(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
}

// methodNotAllowed relies on httprouter having set the Allow header.
func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).writeJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{Message: "Phương thức không được hỗ trợ."})
}
