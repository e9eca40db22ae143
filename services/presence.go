package services

import (
	"log"
	"time"

	"chat-server/models"
	"chat-server/repository"
)

// PresenceService owns every mutation of a user's presence record. The
// account store is authoritative; the registry only says who is connected
// right now. All writes for one user are serialized by a per-user lock.
type PresenceService struct {
	users    repository.UserRepository
	registry *Registry
	router   *Router
	locks    *keyedMutex
}

// NewPresenceService returns a PresenceService over the given collaborators.
func NewPresenceService(users repository.UserRepository, registry *Registry, router *Router) *PresenceService {
	return &PresenceService{
		users:    users,
		registry: registry,
		router:   router,
		locks:    newKeyedMutex(),
	}
}

// HandleConnect flips the user online. Runs once per registered
// connection, but only an actual status change is broadcast: a further
// device of an already-online user just refreshes lastSeen.
func (s *PresenceService) HandleConnect(userID uint) error {
	unlock := s.locks.LockUser(userID)
	defer unlock()

	user, err := s.users.FindByID(userID)
	if err != nil {
		return err
	}
	wasOnline := user.IsOnline && user.Status == models.StatusOnline

	now := time.Now()
	err = s.users.UpdatePresence(userID, map[string]interface{}{
		"is_online": true,
		"status":    models.StatusOnline,
		"last_seen": now,
	})
	if err != nil {
		return err
	}
	if wasOnline {
		return nil
	}
	s.router.Global(EventUserStatusChanged, UserStatusPayload{
		UserID:   userID,
		IsOnline: true,
		Status:   models.StatusOnline,
		LastSeen: &now,
	})
	return nil
}

// HandleDisconnect flips the user offline once the last connection is
// gone. A user with another device still open stays online.
func (s *PresenceService) HandleDisconnect(userID uint) error {
	unlock := s.locks.LockUser(userID)
	defer unlock()

	if s.registry.HasConnections(userID) {
		return nil
	}
	now := time.Now()
	err := s.users.UpdatePresence(userID, map[string]interface{}{
		"is_online": false,
		"status":    models.StatusOffline,
		"last_seen": now,
	})
	if err != nil {
		return err
	}
	s.router.Global(EventUserStatusChanged, UserStatusPayload{
		UserID:   userID,
		IsOnline: false,
		Status:   models.StatusOffline,
		LastSeen: &now,
	})
	return nil
}

// MarkAway transitions online → away after the inactivity timeout. Any
// other current status (busy, explicit away, already offline) is left
// alone.
func (s *PresenceService) MarkAway(userID uint) error {
	unlock := s.locks.LockUser(userID)
	defer unlock()

	user, err := s.users.FindByID(userID)
	if err != nil {
		return err
	}
	if user.Status != models.StatusOnline {
		return nil
	}
	if err := s.users.UpdatePresence(userID, map[string]interface{}{
		"status": models.StatusAway,
	}); err != nil {
		return err
	}
	log.Printf("💤 User %d marked away", userID)
	s.router.Global(EventUserStatusChanged, UserStatusPayload{
		UserID:   userID,
		IsOnline: true,
		Status:   models.StatusAway,
	})
	return nil
}

// MarkActive transitions away → online on an activity signal. The caller
// restarts its inactivity timer regardless of the prior status.
func (s *PresenceService) MarkActive(userID uint) error {
	unlock := s.locks.LockUser(userID)
	defer unlock()

	user, err := s.users.FindByID(userID)
	if err != nil {
		return err
	}
	if user.Status != models.StatusAway {
		return nil
	}
	if err := s.users.UpdatePresence(userID, map[string]interface{}{
		"status": models.StatusOnline,
	}); err != nil {
		return err
	}
	s.router.Global(EventUserStatusChanged, UserStatusPayload{
		UserID:   userID,
		IsOnline: true,
		Status:   models.StatusOnline,
	})
	return nil
}

// SetStatus applies an explicit status change from the user. The user is
// connected, so offline is not a valid choice and isOnline stays true.
func (s *PresenceService) SetStatus(userID uint, status string, customStatus *string) error {
	if !models.ValidStatus(status) || status == models.StatusOffline {
		return validationError("invalid presence status %q", status)
	}
	unlock := s.locks.LockUser(userID)
	defer unlock()

	now := time.Now()
	err := s.users.UpdatePresence(userID, map[string]interface{}{
		"status":            status,
		"custom_status":     customStatus,
		"status_updated_at": now,
	})
	if err != nil {
		return err
	}
	s.router.Global(EventPresenceChanged, UserStatusPayload{
		UserID:       userID,
		IsOnline:     true,
		Status:       status,
		CustomStatus: customStatus,
	})
	return nil
}
