package handlers

import (
	"github.com/rs/zerolog"

	"vodflow/stream-api/internal/config"
	stream "vodflow/stream-api/internal/domain/stream"
)

// Provider wires HTTP handlers.
type Provider struct {
	Stream *StreamHandler
}

func NewProvider(cfg *config.Config, service *stream.Service, log zerolog.Logger) *Provider {
	return &Provider{
		Stream: NewStreamHandler(cfg, service, log),
	}
}
