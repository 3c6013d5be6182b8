package gateway

import (
	"chat-gateway/internal/models"
	"chat-gateway/pkg/logger"
)

// Hooks receive lifecycle and dispatch notifications. Every field is
// optional; tests install recorders, production wiring uses LoggingHooks.
type Hooks struct {
	OnConnect        func(connID string)
	OnAuthenticated  func(connID string, identity *models.Identity)
	OnAuthFailed     func(connID string, err error)
	OnDisconnect     func(connID string)
	OnEvent          func(connID, event string)
	OnDeliveryFailed func(connID string, err error)
}

// LoggingHooks routes every notification to the application logger.
func LoggingHooks() Hooks {
	return Hooks{
		OnConnect: func(id string) {
			logger.Info("Client connected: %s", id)
		},
		OnAuthenticated: func(id string, identity *models.Identity) {
			logger.Info("Client %s authenticated (user: %s)", id, identity.Email)
		},
		OnAuthFailed: func(id string, err error) {
			logger.Error("Client %s connection failed: %v", id, err)
		},
		OnDisconnect: func(id string) {
			logger.Info("Client disconnected: %s", id)
		},
		OnEvent: func(id, event string) {
			logger.Debug("Event %q from %s", event, id)
		},
		OnDeliveryFailed: func(id string, err error) {
			logger.Error("Delivery to client %s failed: %v", id, err)
		},
	}
}

func (h Hooks) connected(id string) {
	if h.OnConnect != nil {
		h.OnConnect(id)
	}
}

func (h Hooks) authenticated(id string, identity *models.Identity) {
	if h.OnAuthenticated != nil {
		h.OnAuthenticated(id, identity)
	}
}

func (h Hooks) authFailed(id string, err error) {
	if h.OnAuthFailed != nil {
		h.OnAuthFailed(id, err)
	}
}

func (h Hooks) disconnected(id string) {
	if h.OnDisconnect != nil {
		h.OnDisconnect(id)
	}
}

func (h Hooks) event(id, event string) {
	if h.OnEvent != nil {
		h.OnEvent(id, event)
	}
}

func (h Hooks) deliveryFailed(id string, err error) {
	if h.OnDeliveryFailed != nil {
		h.OnDeliveryFailed(id, err)
	}
}
