package services

import (
	"errors"
	"log"
	"time"

	"chat-server/models"
	"chat-server/repository"

	"github.com/google/uuid"
)

// DeliveryService computes and persists delivery state. Direct messages
// walk the monotonic sent → delivered → read machine; group messages keep
// per-recipient deliveredTo/readBy sets. Every store write completes
// before any notification fans out, so a failed event leaves no partial
// visible state. Mutations of one message are serialized by a per-message
// lock.
type DeliveryService struct {
	users         repository.UserRepository
	messages      repository.MessageRepository
	groups        repository.GroupRepository
	groupMessages repository.GroupMessageRepository
	registry      *Registry
	router        *Router
	locks         *keyedMutex
}

// NewDeliveryService returns a DeliveryService over the given collaborators.
func NewDeliveryService(
	users repository.UserRepository,
	messages repository.MessageRepository,
	groups repository.GroupRepository,
	groupMessages repository.GroupMessageRepository,
	registry *Registry,
	router *Router,
) *DeliveryService {
	return &DeliveryService{
		users:         users,
		messages:      messages,
		groups:        groups,
		groupMessages: groupMessages,
		registry:      registry,
		router:        router,
		locks:         newKeyedMutex(),
	}
}

// SendDirect stores a new direct message and fans it out. If the receiver
// has an open connection the message is born delivered; the sender learns
// the final state in the send acknowledgement, no extra round trip.
func (s *DeliveryService) SendDirect(origin *Client, p SendPayload) (*models.Message, error) {
	if p.ReceiverID == 0 {
		return nil, validationError("receiverId is required")
	}
	if p.Text == "" && p.MediaURL == nil {
		return nil, validationError("message needs text or media")
	}
	if _, err := s.users.FindByID(p.ReceiverID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("receiver %d not found", p.ReceiverID)
		}
		return nil, err
	}

	now := time.Now()
	msg := &models.Message{
		MessageID:  uuid.New().String(),
		SenderID:   origin.UserID,
		ReceiverID: p.ReceiverID,
		Text:       p.Text,
		MediaURL:   p.MediaURL,
		MediaType:  p.MediaType,
		Timestamp:  now,
		Status:     models.MessageStatusSent,
	}
	if p.ReplyTo != nil {
		ref, err := s.replyRefDirect(*p.ReplyTo)
		if err != nil {
			return nil, err
		}
		msg.ReplyTo = ref
	}
	if s.registry.HasConnections(p.ReceiverID) {
		msg.Status = models.MessageStatusDelivered
		msg.DeliveredAt = &now
	}

	if err := s.messages.Create(msg); err != nil {
		return nil, err
	}

	s.router.ToParties(msg.SenderID, msg.ReceiverID, EventReceive, msg)
	origin.enqueue(encodeEvent(EventMessageSent, msg))
	log.Printf("📩 Direct message %s: %d → %d (%s)", msg.MessageID, msg.SenderID, msg.ReceiverID, msg.Status)
	return msg, nil
}

func (s *DeliveryService) replyRefDirect(messageID string) (*models.ReplyRef, error) {
	parent, err := s.messages.FindByID(messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("replyTo message %s not found", messageID)
		}
		return nil, err
	}
	return &models.ReplyRef{MessageID: parent.MessageID, SenderID: parent.SenderID, Text: parent.Text}, nil
}

// MarkDelivered applies an explicit delivered acknowledgement. Only the
// receiver may ack, and only a message still in sent state advances; a
// stale ack is ignored without error.
func (s *DeliveryService) MarkDelivered(userID uint, messageID string) error {
	unlock := s.locks.Lock("m:" + messageID)
	defer unlock()

	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return err
	}
	if msg.ReceiverID != userID {
		return authorizationError("not the receiver of message %s", messageID)
	}
	if msg.Status != models.MessageStatusSent {
		return nil
	}
	now := time.Now()
	msg.Status = models.MessageStatusDelivered
	msg.DeliveredAt = &now
	if err := s.messages.Update(msg); err != nil {
		return err
	}
	s.router.ToParties(msg.SenderID, msg.ReceiverID, EventStatusUpdate, StatusUpdatePayload{
		MessageID: msg.MessageID,
		Status:    msg.Status,
		Timestamp: now,
	})
	return nil
}

// MarkRead applies a read acknowledgement from sent or delivered state.
// Reading implies delivery, so a missing deliveredAt is backfilled with
// the read timestamp. Repeated acks are ignored without error.
func (s *DeliveryService) MarkRead(userID uint, messageID string) error {
	unlock := s.locks.Lock("m:" + messageID)
	defer unlock()

	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return err
	}
	if msg.ReceiverID != userID {
		return authorizationError("not the receiver of message %s", messageID)
	}
	if msg.Status == models.MessageStatusRead {
		return nil
	}
	now := time.Now()
	msg.Status = models.MessageStatusRead
	msg.ReadAt = &now
	if msg.DeliveredAt == nil {
		msg.DeliveredAt = &now
	}
	if err := s.messages.Update(msg); err != nil {
		return err
	}
	s.router.ToParties(msg.SenderID, msg.ReceiverID, EventStatusUpdate, StatusUpdatePayload{
		MessageID: msg.MessageID,
		Status:    msg.Status,
		Timestamp: now,
	})
	return nil
}

// EditDirect rewrites the text of the caller's own message.
func (s *DeliveryService) EditDirect(userID uint, p EditPayload) error {
	if p.NewText == "" {
		return validationError("newText is required")
	}
	unlock := s.locks.Lock("m:" + p.MessageID)
	defer unlock()

	msg, err := s.messages.FindByID(p.MessageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return authorizationError("only the sender can edit message %s", p.MessageID)
	}
	if msg.DeletedForEveryone {
		return notFoundError("message %s was deleted", p.MessageID)
	}
	now := time.Now()
	msg.Text = p.NewText
	msg.IsEdited = true
	msg.EditedAt = &now
	if err := s.messages.Update(msg); err != nil {
		return err
	}
	s.router.ToParties(msg.SenderID, msg.ReceiverID, EventEdited, msg)
	return nil
}

// DeleteDirect flags a message deleted. For-everyone requires the sender
// and is permanent; otherwise the message is only hidden for the caller
// and nobody else is told.
func (s *DeliveryService) DeleteDirect(userID uint, p DeletePayload) error {
	unlock := s.locks.Lock("m:" + p.MessageID)
	defer unlock()

	msg, err := s.messages.FindByID(p.MessageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID && msg.ReceiverID != userID {
		return authorizationError("not a party to message %s", p.MessageID)
	}
	if p.ForEveryone {
		if msg.SenderID != userID {
			return authorizationError("only the sender can delete message %s for everyone", p.MessageID)
		}
		msg.DeletedForEveryone = true
	} else {
		msg.HideFor(userID)
	}
	if err := s.messages.Update(msg); err != nil {
		return err
	}
	payload := DeletedPayload{MessageID: msg.MessageID, ForEveryone: p.ForEveryone, DeletedBy: userID}
	if p.ForEveryone {
		s.router.ToParties(msg.SenderID, msg.ReceiverID, EventDeleted, payload)
	} else {
		s.router.ToUser(userID, EventDeleted, payload)
	}
	return nil
}

// ReactDirect sets or replaces the caller's reaction. An empty emoji
// clears it.
func (s *DeliveryService) ReactDirect(userID uint, p ReactPayload) error {
	unlock := s.locks.Lock("m:" + p.MessageID)
	defer unlock()

	msg, err := s.messages.FindByID(p.MessageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID && msg.ReceiverID != userID {
		return authorizationError("not a party to message %s", p.MessageID)
	}
	msg.SetReaction(userID, p.Emoji, time.Now())
	if err := s.messages.Update(msg); err != nil {
		return err
	}
	s.router.ToParties(msg.SenderID, msg.ReceiverID, EventReactionChanged, msg)
	return nil
}

// SendGroup stores a group message, fans it out to the room, and records
// delivery receipts for every member currently online (sender excluded) in
// one write, announced to the room as a single aggregated event.
func (s *DeliveryService) SendGroup(origin *Client, p GroupSendPayload) (*models.GroupMessage, error) {
	if p.Text == "" && p.MediaURL == nil {
		return nil, validationError("message needs text or media")
	}
	group, err := s.memberGroup(p.GroupID, origin.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &models.GroupMessage{
		MessageID: uuid.New().String(),
		GroupID:   group.ID,
		SenderID:  origin.UserID,
		Text:      p.Text,
		MediaURL:  p.MediaURL,
		MediaType: p.MediaType,
		FileName:  p.FileName,
		FileSize:  p.FileSize,
		Timestamp: now,
	}
	if p.ReplyTo != nil {
		parent, err := s.groupMessages.FindByID(*p.ReplyTo)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFoundError("replyTo message %s not found", *p.ReplyTo)
			}
			return nil, err
		}
		msg.ReplyTo = &models.ReplyRef{MessageID: parent.MessageID, SenderID: parent.SenderID, Text: parent.Text}
	}

	var deliveredIDs []uint
	for _, memberID := range group.Members {
		if memberID == origin.UserID || !s.registry.HasConnections(memberID) {
			continue
		}
		if msg.AddDelivery(memberID, now) {
			deliveredIDs = append(deliveredIDs, memberID)
		}
	}

	if err := s.groupMessages.Create(msg); err != nil {
		return nil, err
	}
	group.LastMessage = &models.LastMessage{Text: msg.Text, SenderID: msg.SenderID, Timestamp: now}
	if err := s.groups.Update(group); err != nil {
		log.Printf("⚠️ Failed to update lastMessage for group %d: %v", group.ID, err)
	}

	s.router.ToRoom(group.ID, EventGroupReceive, msg)
	if len(deliveredIDs) > 0 {
		s.router.ToRoom(group.ID, EventGroupMessageDelivered, GroupDeliveredPayload{
			GroupID:     group.ID,
			UserIDs:     deliveredIDs,
			MessageIDs:  []string{msg.MessageID},
			DeliveredAt: now,
		})
	}
	log.Printf("📩 Group message %s in group %d from %d (delivered to %d members)",
		msg.MessageID, group.ID, origin.UserID, len(deliveredIDs))
	return msg, nil
}

// MarkGroupRead records a batch of read receipts reported by one client
// and notifies the room once with the whole id list. Receipts that already
// exist, or would name the sender, are skipped.
func (s *DeliveryService) MarkGroupRead(userID uint, p GroupAckReadPayload) error {
	if len(p.MessageIDs) == 0 {
		return validationError("messageIds is required")
	}
	group, err := s.memberGroup(p.GroupID, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	changed := false
	for _, id := range p.MessageIDs {
		unlock := s.locks.Lock("g:" + id)
		msg, err := s.groupMessages.FindByID(id)
		if err != nil {
			unlock()
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return err
		}
		if msg.GroupID != group.ID || !msg.AddRead(userID, now) {
			unlock()
			continue
		}
		// Reading implies the message arrived.
		msg.AddDelivery(userID, now)
		if err := s.groupMessages.Update(msg); err != nil {
			unlock()
			return err
		}
		changed = true
		unlock()
	}

	if changed {
		s.router.ToRoom(group.ID, EventGroupRead, GroupReadPayload{
			GroupID:    group.ID,
			UserID:     userID,
			MessageIDs: p.MessageIDs,
			ReadAt:     now,
		})
	}
	return nil
}

// EditGroup rewrites the text of the caller's own group message.
func (s *DeliveryService) EditGroup(userID uint, p EditPayload) error {
	if p.NewText == "" {
		return validationError("newText is required")
	}
	unlock := s.locks.Lock("g:" + p.MessageID)
	defer unlock()

	msg, err := s.groupMessages.FindByID(p.MessageID)
	if err != nil {
		return err
	}
	if _, err := s.memberGroup(msg.GroupID, userID); err != nil {
		return err
	}
	if msg.SenderID != userID {
		return authorizationError("only the sender can edit message %s", p.MessageID)
	}
	if msg.DeletedForEveryone {
		return notFoundError("message %s was deleted", p.MessageID)
	}
	now := time.Now()
	msg.Text = p.NewText
	msg.IsEdited = true
	msg.EditedAt = &now
	if err := s.groupMessages.Update(msg); err != nil {
		return err
	}
	s.router.ToRoom(msg.GroupID, EventGroupEdited, msg)
	return nil
}

// DeleteGroup flags a group message deleted. For-everyone requires the
// sender or a group admin; delete-for-me only hides it for the caller.
func (s *DeliveryService) DeleteGroup(userID uint, p DeletePayload) error {
	unlock := s.locks.Lock("g:" + p.MessageID)
	defer unlock()

	msg, err := s.groupMessages.FindByID(p.MessageID)
	if err != nil {
		return err
	}
	group, err := s.memberGroup(msg.GroupID, userID)
	if err != nil {
		return err
	}
	if p.ForEveryone {
		if msg.SenderID != userID && !group.IsAdmin(userID) {
			return authorizationError("only the sender or an admin can delete message %s for everyone", p.MessageID)
		}
		msg.DeletedForEveryone = true
	} else {
		msg.HideFor(userID)
	}
	if err := s.groupMessages.Update(msg); err != nil {
		return err
	}
	groupID := msg.GroupID
	payload := DeletedPayload{MessageID: msg.MessageID, GroupID: &groupID, ForEveryone: p.ForEveryone, DeletedBy: userID}
	if p.ForEveryone {
		s.router.ToRoom(groupID, EventGroupDeleted, payload)
	} else {
		s.router.ToUser(userID, EventGroupDeleted, payload)
	}
	return nil
}

// ReactGroup sets or replaces the caller's reaction on a group message.
func (s *DeliveryService) ReactGroup(userID uint, p ReactPayload) error {
	unlock := s.locks.Lock("g:" + p.MessageID)
	defer unlock()

	msg, err := s.groupMessages.FindByID(p.MessageID)
	if err != nil {
		return err
	}
	if _, err := s.memberGroup(msg.GroupID, userID); err != nil {
		return err
	}
	msg.SetReaction(userID, p.Emoji, time.Now())
	if err := s.groupMessages.Update(msg); err != nil {
		return err
	}
	s.router.ToRoom(msg.GroupID, EventGroupReactionChanged, msg)
	return nil
}

// ReconnectSweep is the one-time catch-up pass for a freshly registered
// session: every direct message still in sent state flips to delivered
// with one shared timestamp and each sender is told per message, then
// every group message missing this user's delivery receipt gets one, with
// one aggregated room notification per group.
func (s *DeliveryService) ReconnectSweep(userID uint) error {
	now := time.Now()

	pending, err := s.messages.FindUndeliveredForUser(userID)
	if err != nil {
		return err
	}
	swept := 0
	for i := range pending {
		func(id string) {
			unlock := s.locks.Lock("m:" + id)
			defer unlock()
			// Re-fetch under the lock: the backlog snapshot is stale, and a
			// concurrent ack may have advanced the message past sent already.
			msg, err := s.messages.FindByID(id)
			if err != nil {
				return
			}
			if msg.Status != models.MessageStatusSent {
				return
			}
			msg.Status = models.MessageStatusDelivered
			msg.DeliveredAt = &now
			if err := s.messages.Update(msg); err != nil {
				log.Printf("⚠️ Sweep failed to mark %s delivered: %v", msg.MessageID, err)
				return
			}
			swept++
			s.router.ToParties(msg.SenderID, msg.ReceiverID, EventStatusUpdate, StatusUpdatePayload{
				MessageID: msg.MessageID,
				Status:    msg.Status,
				Timestamp: now,
			})
		}(pending[i].MessageID)
	}
	if swept > 0 {
		log.Printf("🔄 Reconnect sweep: %d direct messages delivered to user %d", swept, userID)
	}

	groups, err := s.groups.FindGroupsContaining(userID)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}
	groupIDs := make([]uint, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}
	missed, err := s.groupMessages.FindUndeliveredForUser(userID, groupIDs)
	if err != nil {
		return err
	}
	deliveredByGroup := make(map[uint][]string)
	for i := range missed {
		func(id string) {
			unlock := s.locks.Lock("g:" + id)
			defer unlock()
			// Re-fetch under the lock so a receipt recorded since the backlog
			// query is never overwritten.
			msg, err := s.groupMessages.FindByID(id)
			if err != nil {
				return
			}
			if !msg.AddDelivery(userID, now) {
				return
			}
			if err := s.groupMessages.Update(msg); err != nil {
				log.Printf("⚠️ Sweep failed to record delivery of %s: %v", msg.MessageID, err)
				return
			}
			deliveredByGroup[msg.GroupID] = append(deliveredByGroup[msg.GroupID], msg.MessageID)
		}(missed[i].MessageID)
	}
	for groupID, messageIDs := range deliveredByGroup {
		s.router.ToRoom(groupID, EventGroupMessageDelivered, GroupDeliveredPayload{
			GroupID:     groupID,
			UserIDs:     []uint{userID},
			MessageIDs:  messageIDs,
			DeliveredAt: now,
		})
	}
	return nil
}

// memberGroup loads a group and checks membership; every group event is
// authorized before any routing happens.
func (s *DeliveryService) memberGroup(groupID uint, userID uint) (*models.Group, error) {
	group, err := s.groups.FindByID(groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("group %d not found", groupID)
		}
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, authorizationError("user %d is not a member of group %d", userID, groupID)
	}
	return group, nil
}
