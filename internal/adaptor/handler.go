package adaptor

import (
	"event-seating/internal/realtime"
	"event-seating/internal/usecase"
	"event-seating/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Seat    *SeatHandler
	Channel *ChannelHandler
}

func NewHandler(service *usecase.Service, hub *realtime.Hub, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Seat:    NewSeatHandler(service.Seat, log),
		Channel: NewChannelHandler(service.Seat, hub, config, log),
	}
}
