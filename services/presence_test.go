package services

import (
	"testing"

	"chat-server/models"

	"github.com/stretchr/testify/require"
)

func TestHandleConnectFlipsOnlineAndBroadcasts(t *testing.T) {
	env := newTestEnv([]*models.User{testUser(1, "alice"), testUser(2, "bob")})
	observer := env.connect(2, "bob")
	client := env.connect(1, "alice")

	require.NoError(t, env.hub.Presence.HandleConnect(1))

	user, err := env.users.FindByID(1)
	require.NoError(t, err)
	require.True(t, user.IsOnline)
	require.Equal(t, models.StatusOnline, user.Status)
	require.NotNil(t, user.LastSeen)

	// Broadcast is global: both the connecting user and the observer see it once.
	require.Equal(t, 1, countEvents(drainEvents(t, observer), EventUserStatusChanged))
	require.Equal(t, 1, countEvents(drainEvents(t, client), EventUserStatusChanged))
}

func TestHandleConnectSecondDeviceIsSilent(t *testing.T) {
	env := newTestEnv([]*models.User{testUser(1, "alice"), testUser(2, "bob")})
	observer := env.connect(2, "bob")

	env.connect(1, "alice")
	require.NoError(t, env.hub.Presence.HandleConnect(1))
	require.Equal(t, 1, countEvents(drainEvents(t, observer), EventUserStatusChanged))

	// A second device of an online user changes nothing worth announcing.
	env.connect(1, "alice")
	require.NoError(t, env.hub.Presence.HandleConnect(1))
	require.Equal(t, 0, countEvents(drainEvents(t, observer), EventUserStatusChanged))

	// An away user connecting another device comes back online, audibly.
	require.NoError(t, env.hub.Presence.MarkAway(1))
	drainEvents(t, observer)
	env.connect(1, "alice")
	require.NoError(t, env.hub.Presence.HandleConnect(1))
	require.Equal(t, 1, countEvents(drainEvents(t, observer), EventUserStatusChanged))
}

func TestHandleDisconnectKeepsMultiDeviceUserOnline(t *testing.T) {
	env := newTestEnv([]*models.User{testUser(1, "alice")})
	phone := env.connect(1, "alice")
	env.connect(1, "alice")
	require.NoError(t, env.hub.Presence.HandleConnect(1))

	// First device drops; a second is still open.
	env.hub.Registry.Deregister(phone)
	require.NoError(t, env.hub.Presence.HandleDisconnect(1))

	user, err := env.users.FindByID(1)
	require.NoError(t, err)
	require.True(t, user.IsOnline, "user with a remaining connection must stay online")
}

func TestHandleDisconnectLastConnectionGoesOffline(t *testing.T) {
	env := newTestEnv([]*models.User{testUser(1, "alice"), testUser(2, "bob")})
	client := env.connect(1, "alice")
	observer := env.connect(2, "bob")
	require.NoError(t, env.hub.Presence.HandleConnect(1))
	drainEvents(t, observer)

	env.hub.Registry.Deregister(client)
	require.NoError(t, env.hub.Presence.HandleDisconnect(1))

	user, err := env.users.FindByID(1)
	require.NoError(t, err)
	require.False(t, user.IsOnline)
	require.Equal(t, models.StatusOffline, user.Status)
	require.NotNil(t, user.LastSeen)

	events := drainEvents(t, observer)
	require.Equal(t, 1, countEvents(events, EventUserStatusChanged))
}

func TestMarkAwayOnlyWhileOnline(t *testing.T) {
	tests := []struct {
		name       string
		before     string
		wantStatus string
	}{
		{name: "online goes away", before: models.StatusOnline, wantStatus: models.StatusAway},
		{name: "busy untouched", before: models.StatusBusy, wantStatus: models.StatusBusy},
		{name: "offline untouched", before: models.StatusOffline, wantStatus: models.StatusOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := testUser(1, "alice")
			user.Status = tt.before
			user.IsOnline = tt.before != models.StatusOffline
			env := newTestEnv([]*models.User{user})

			require.NoError(t, env.hub.Presence.MarkAway(1))

			got, err := env.users.FindByID(1)
			require.NoError(t, err)
			require.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestMarkActiveRestoresOnlineFromAway(t *testing.T) {
	user := testUser(1, "alice")
	user.Status = models.StatusAway
	user.IsOnline = true
	env := newTestEnv([]*models.User{user})
	client := env.connect(1, "alice")

	require.NoError(t, env.hub.Presence.MarkActive(1))

	got, err := env.users.FindByID(1)
	require.NoError(t, err)
	require.Equal(t, models.StatusOnline, got.Status)
	require.Equal(t, 1, countEvents(drainEvents(t, client), EventUserStatusChanged))

	// A second activity signal while already online changes nothing.
	require.NoError(t, env.hub.Presence.MarkActive(1))
	require.Equal(t, 0, countEvents(drainEvents(t, client), EventUserStatusChanged))
}

func TestSetStatus(t *testing.T) {
	custom := "in a meeting"

	tests := []struct {
		name         string
		status       string
		customStatus *string
		wantErr      bool
	}{
		{name: "busy with custom text", status: models.StatusBusy, customStatus: &custom},
		{name: "away", status: models.StatusAway},
		{name: "offline rejected", status: models.StatusOffline, wantErr: true},
		{name: "unknown rejected", status: "invisible", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := testUser(1, "alice")
			user.Status = models.StatusOnline
			user.IsOnline = true
			env := newTestEnv([]*models.User{user})
			client := env.connect(1, "alice")

			err := env.hub.Presence.SetStatus(1, tt.status, tt.customStatus)
			if tt.wantErr {
				require.Error(t, err)
				var ev *EventError
				require.ErrorAs(t, err, &ev)
				require.Equal(t, CodeValidation, ev.Code)
				return
			}
			require.NoError(t, err)

			got, findErr := env.users.FindByID(1)
			require.NoError(t, findErr)
			require.Equal(t, tt.status, got.Status)
			require.Equal(t, tt.customStatus, got.CustomStatus)
			require.True(t, got.IsOnline, "explicit status change keeps the user online")
			require.NotNil(t, got.StatusUpdatedAt)
			require.Equal(t, 1, countEvents(drainEvents(t, client), EventPresenceChanged))
		})
	}
}
