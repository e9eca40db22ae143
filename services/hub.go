package services

import (
	"chat-server/repository"
)

// Authenticator verifies a handshake credential and yields the identity
// behind it.
type Authenticator interface {
	Authenticate(token string) (userID uint, username string, err error)
}

// Hub bundles the shared engine components a session needs. One Hub is
// constructed in main and handed to every connection; nothing here is a
// package-level singleton.
type Hub struct {
	Registry *Registry
	Router   *Router
	Presence *PresenceService
	Delivery *DeliveryService
	Groups   repository.GroupRepository
	Auth     Authenticator
}

// NewHub wires the engine over the given stores and authenticator.
func NewHub(
	users repository.UserRepository,
	messages repository.MessageRepository,
	groups repository.GroupRepository,
	groupMessages repository.GroupMessageRepository,
	auth Authenticator,
) *Hub {
	registry := NewRegistry()
	router := NewRouter(registry)
	return &Hub{
		Registry: registry,
		Router:   router,
		Presence: NewPresenceService(users, registry, router),
		Delivery: NewDeliveryService(users, messages, groups, groupMessages, registry, router),
		Groups:   groups,
		Auth:     auth,
	}
}
