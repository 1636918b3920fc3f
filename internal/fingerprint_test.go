package internal

import (
	"testing"
)

func TestFingerprint(t *testing.T) {
	base := CreateTestConversation("1", "Ravi", CreateTestMessage("m1", "hi", 1000))

	if Fingerprint(base) != Fingerprint(base.Clone()) {
		t.Error("clone should have the same fingerprint")
	}

	tests := []struct {
		name   string
		mutate func(c *Conversation)
	}{
		{"name", func(c *Conversation) { c.Name = "Other" }},
		{"status", func(c *Conversation) { c.Messages[0].Status = StatusRead }},
		{"text", func(c *Conversation) { c.Messages[0].Text = StringPtr("bye") }},
		{"nil text", func(c *Conversation) { c.Messages[0].Text = nil }},
		{"timestamp", func(c *Conversation) { c.Messages[0].Timestamp++ }},
		{"direction", func(c *Conversation) { c.Messages[0].FromMe = true }},
		{"extra message", func(c *Conversation) {
			c.Messages = append(c.Messages, CreateTestMessage("m2", "again", 2000))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := base.Clone()
			tt.mutate(changed)
			if Fingerprint(changed) == Fingerprint(base) {
				t.Errorf("changing %s should change the fingerprint", tt.name)
			}
		})
	}
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	a := NewConversation("ab", "c")
	b := NewConversation("a", "bc")
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("adjacent fields must not collide")
	}
	if Fingerprint(nil) != "" {
		t.Error("nil conversation should have an empty fingerprint")
	}
}
