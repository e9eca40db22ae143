package services

import (
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"chat-server/models"
	"chat-server/repository"
)

// In-memory stand-ins for the persistent stores. They copy records on the
// way in and out so mutations only become visible through Update, the way
// a real store behaves.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uint]*models.User)}
	for _, u := range users {
		copied := *u
		r.users[u.ID] = &copied
	}
	return r
}

func (r *fakeUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) FindByUsername(username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindByIDs(ids []uint) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) UpdatePresence(id uint, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "is_online":
			u.IsOnline = value.(bool)
		case "status":
			u.Status = value.(string)
		case "last_seen":
			t := value.(time.Time)
			u.LastSeen = &t
		case "custom_status":
			u.CustomStatus, _ = value.(*string)
		case "status_updated_at":
			t := value.(time.Time)
			u.StatusUpdatedAt = &t
		}
	}
	return nil
}

func (r *fakeUserRepo) Update(user *models.User) error {
	return r.Create(user)
}

type fakeMessageRepo struct {
	mu   sync.Mutex
	msgs map[string]*models.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{msgs: make(map[string]*models.Message)}
}

func (r *fakeMessageRepo) Create(msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	r.msgs[msg.MessageID] = &copied
	return nil
}

func (r *fakeMessageRepo) FindByID(id string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMessageRepo) FindUndeliveredForUser(userID uint) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []models.Message
	for _, m := range r.msgs {
		if m.ReceiverID == userID && m.Status == models.MessageStatusSent {
			msgs = append(msgs, *m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	return msgs, nil
}

func (r *fakeMessageRepo) Update(msg *models.Message) error {
	return r.Create(msg)
}

type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[uint]*models.Group
}

func newFakeGroupRepo(groups ...*models.Group) *fakeGroupRepo {
	r := &fakeGroupRepo{groups: make(map[uint]*models.Group)}
	for _, g := range groups {
		copied := *g
		r.groups[g.ID] = &copied
	}
	return r
}

func (r *fakeGroupRepo) Create(group *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *group
	r.groups[group.ID] = &copied
	return nil
}

func (r *fakeGroupRepo) FindByID(id uint) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *fakeGroupRepo) FindGroupsContaining(userID uint) ([]models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var groups []models.Group
	for _, g := range r.groups {
		if g.IsMember(userID) {
			groups = append(groups, *g)
		}
	}
	return groups, nil
}

func (r *fakeGroupRepo) Update(group *models.Group) error {
	return r.Create(group)
}

func (r *fakeGroupRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, id)
	return nil
}

type fakeGroupMessageRepo struct {
	mu   sync.Mutex
	msgs map[string]*models.GroupMessage
}

func newFakeGroupMessageRepo() *fakeGroupMessageRepo {
	return &fakeGroupMessageRepo{msgs: make(map[string]*models.GroupMessage)}
}

func (r *fakeGroupMessageRepo) Create(msg *models.GroupMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	r.msgs[msg.MessageID] = &copied
	return nil
}

func (r *fakeGroupMessageRepo) FindByID(id string) (*models.GroupMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeGroupMessageRepo) FindUndeliveredForUser(userID uint, groupIDs []uint) ([]models.GroupMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[uint]bool, len(groupIDs))
	for _, id := range groupIDs {
		ids[id] = true
	}
	var msgs []models.GroupMessage
	for _, m := range r.msgs {
		if ids[m.GroupID] && m.SenderID != userID && !m.DeliveredToUser(userID) {
			msgs = append(msgs, *m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	return msgs, nil
}

func (r *fakeGroupMessageRepo) Update(msg *models.GroupMessage) error {
	return r.Create(msg)
}

type testEnv struct {
	hub           *Hub
	users         *fakeUserRepo
	messages      *fakeMessageRepo
	groups        *fakeGroupRepo
	groupMessages *fakeGroupMessageRepo
}

func newTestEnv(users []*models.User, groups ...*models.Group) *testEnv {
	userRepo := newFakeUserRepo(users...)
	messageRepo := newFakeMessageRepo()
	groupRepo := newFakeGroupRepo(groups...)
	groupMessageRepo := newFakeGroupMessageRepo()
	return &testEnv{
		hub:           NewHub(userRepo, messageRepo, groupRepo, groupMessageRepo, nil),
		users:         userRepo,
		messages:      messageRepo,
		groups:        groupRepo,
		groupMessages: groupMessageRepo,
	}
}

// connect registers a conn-less client; outbound frames pile up in Send.
func (e *testEnv) connect(userID uint, username string) *Client {
	client := NewClient(nil, userID, username, username+"-conn")
	e.hub.Registry.Register(client)
	return client
}

// drainEvents empties a client's send buffer into decoded envelopes.
func drainEvents(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var events []Envelope
	for {
		select {
		case frame := <-c.Send:
			var env Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				t.Fatalf("invalid frame %s: %v", frame, err)
			}
			events = append(events, env)
		default:
			return events
		}
	}
}

func countEvents(events []Envelope, name string) int {
	n := 0
	for _, e := range events {
		if e.Event == name {
			n++
		}
	}
	return n
}

func testUser(id uint, username string) *models.User {
	return &models.User{ID: id, Username: username, Status: models.StatusOffline}
}
