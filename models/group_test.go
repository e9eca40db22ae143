package models

import (
	"testing"
	"time"
)

func testGroup() *Group {
	return &Group{
		ID:        1,
		Name:      "team",
		CreatedBy: 1,
		Admins:    []uint{1},
		Members:   []uint{1, 2, 3},
	}
}

func TestGroupMembership(t *testing.T) {
	g := testGroup()

	if !g.IsMember(2) {
		t.Error("expected user 2 to be a member")
	}
	if g.IsMember(9) {
		t.Error("expected user 9 not to be a member")
	}

	g.AddMember(4)
	g.AddMember(4)
	if len(g.Members) != 4 {
		t.Errorf("expected 4 members after idempotent add, got %d", len(g.Members))
	}

	g.RemoveMember(2)
	if g.IsMember(2) {
		t.Error("expected user 2 removed")
	}
}

func TestGroupCreatorCannotBeRemoved(t *testing.T) {
	g := testGroup()
	g.RemoveMember(1)
	if !g.IsMember(1) {
		t.Error("creator must survive RemoveMember")
	}
	if !g.IsAdmin(1) {
		t.Error("creator must stay admin after RemoveMember")
	}
}

func TestGroupAdminLifecycle(t *testing.T) {
	g := testGroup()

	g.Promote(2)
	if !g.IsAdmin(2) {
		t.Error("expected user 2 promoted")
	}
	g.Promote(2)
	if len(g.Admins) != 2 {
		t.Errorf("promote must be idempotent, got %d admins", len(g.Admins))
	}

	// Non-members cannot be promoted.
	g.Promote(9)
	if g.IsAdmin(9) {
		t.Error("expected non-member 9 not promoted")
	}

	g.Demote(2)
	if g.IsAdmin(2) {
		t.Error("expected user 2 demoted")
	}
	g.Demote(1)
	if !g.IsAdmin(1) {
		t.Error("creator must survive Demote")
	}

	// Kicking an admin strips the admin bit too.
	g.Promote(3)
	g.RemoveMember(3)
	if g.IsAdmin(3) {
		t.Error("removed member must lose admin rights")
	}
}

func TestGroupMutes(t *testing.T) {
	g := testGroup()
	now := time.Now()

	if g.IsMutedBy(2, now) {
		t.Error("fresh group should not be muted")
	}

	// Forever mute.
	g.SetMute(2, nil)
	if !g.IsMutedBy(2, now.Add(24*time.Hour)) {
		t.Error("nil mutedUntil means muted forever")
	}

	// Replacing with a timed mute.
	until := now.Add(time.Hour)
	g.SetMute(2, &until)
	if len(g.MutedBy) != 1 {
		t.Errorf("SetMute must replace, got %d entries", len(g.MutedBy))
	}
	if !g.IsMutedBy(2, now) {
		t.Error("expected muted before expiry")
	}
	if g.IsMutedBy(2, now.Add(2*time.Hour)) {
		t.Error("expected unmuted after expiry")
	}

	g.ClearMute(2)
	if g.IsMutedBy(2, now) {
		t.Error("expected unmuted after ClearMute")
	}
}
