package wire

import (
	"event-seating/internal/adaptor"
	"event-seating/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

const sockJSPrefix = "/sockjs/seats"

func wireSeat(r chi.Router, seatHandler *adaptor.SeatHandler) {
	r.Route("/api/seats", func(r chi.Router) {
		r.Use(middleware.Session())

		// GET /api/seats?page&limit - paged seat map
		r.Get("/", seatHandler.ListSeats)

		// PATCH /api/seats/status - administrative bulk override
		r.Patch("/status", seatHandler.UpdateSeatStatus)

		// POST /api/seats/session - new seat-selection session
		r.Post("/session", seatHandler.CreateSession)

		// ==================== SESSION COMMANDS ====================
		// session from x-session-id header, or sessionId in the body
		r.Post("/hold", seatHandler.HoldSeat)
		r.Post("/release", seatHandler.ReleaseSeat)
		r.Post("/complete", seatHandler.CompleteReservation)

		// POST /api/seats/cleanup - release expired holds now
		r.Post("/cleanup", seatHandler.CleanupExpired)
	})
}

func wireChannel(r chi.Router, channelHandler *adaptor.ChannelHandler) {
	// GET /ws/seats - raw WebSocket channel
	r.Get("/ws/seats", channelHandler.ServeWebSocket)

	// /sockjs/seats/* - SockJS fallback transports
	r.Handle(sockJSPrefix+"/*", channelHandler.SockJSHandler(sockJSPrefix))
}
