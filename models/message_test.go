package models

import (
	"testing"
	"time"
)

func TestStatusRank(t *testing.T) {
	tests := []struct {
		status string
		rank   int
	}{
		{MessageStatusSent, 0},
		{MessageStatusDelivered, 1},
		{MessageStatusRead, 2},
		{"bogus", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := StatusRank(tt.status); got != tt.rank {
			t.Errorf("StatusRank(%q) = %d, want %d", tt.status, got, tt.rank)
		}
	}
	if StatusRank(MessageStatusRead) <= StatusRank(MessageStatusDelivered) ||
		StatusRank(MessageStatusDelivered) <= StatusRank(MessageStatusSent) {
		t.Error("lifecycle order must be sent < delivered < read")
	}
}

func TestMessageHideFor(t *testing.T) {
	m := &Message{MessageID: "m1", SenderID: 1, ReceiverID: 2}

	if m.HiddenFor(2) {
		t.Error("fresh message should not be hidden")
	}
	m.HideFor(2)
	m.HideFor(2)
	if !m.HiddenFor(2) {
		t.Error("expected hidden for user 2")
	}
	if m.HiddenFor(1) {
		t.Error("hide is per user")
	}
	if len(m.DeletedFor) != 1 {
		t.Errorf("HideFor must be idempotent, got %d entries", len(m.DeletedFor))
	}
}

func TestSetReaction(t *testing.T) {
	m := &Message{MessageID: "m1"}
	now := time.Now()

	m.SetReaction(1, "👍", now)
	m.SetReaction(2, "❤️", now)
	if len(m.Reactions) != 2 {
		t.Fatalf("expected 2 reactions, got %d", len(m.Reactions))
	}

	// A second reaction from the same user replaces the first.
	m.SetReaction(1, "😂", now)
	if len(m.Reactions) != 2 {
		t.Fatalf("replace must not grow the set, got %d", len(m.Reactions))
	}
	for _, r := range m.Reactions {
		if r.UserID == 1 && r.Emoji != "😂" {
			t.Errorf("expected user 1's reaction replaced, got %q", r.Emoji)
		}
	}

	// Empty emoji removes, and removing an absent reaction is a no-op.
	m.SetReaction(1, "", now)
	m.SetReaction(9, "", now)
	if len(m.Reactions) != 1 {
		t.Fatalf("expected 1 reaction after removal, got %d", len(m.Reactions))
	}
	if m.Reactions[0].UserID != 2 {
		t.Errorf("wrong reaction survived removal: user %d", m.Reactions[0].UserID)
	}
}

func TestGroupMessageReceipts(t *testing.T) {
	m := &GroupMessage{MessageID: "g1", GroupID: 1, SenderID: 1}
	now := time.Now()

	if !m.AddDelivery(2, now) {
		t.Error("first delivery receipt should be added")
	}
	if m.AddDelivery(2, now) {
		t.Error("duplicate delivery receipt should be skipped")
	}
	if m.AddDelivery(1, now) {
		t.Error("the sender never gets a delivery receipt")
	}
	if len(m.DeliveredTo) != 1 {
		t.Fatalf("expected 1 delivery receipt, got %d", len(m.DeliveredTo))
	}

	if !m.AddRead(2, now) {
		t.Error("first read receipt should be added")
	}
	if m.AddRead(2, now) {
		t.Error("duplicate read receipt should be skipped")
	}
	if m.AddRead(1, now) {
		t.Error("the sender never gets a read receipt")
	}
	if !m.ReadByUser(2) || m.ReadByUser(3) {
		t.Error("ReadByUser must track exactly the recorded users")
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusOnline, StatusAway, StatusBusy, StatusOffline} {
		if !ValidStatus(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"", "idle", "ONLINE"} {
		if ValidStatus(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
