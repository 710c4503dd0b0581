package mqtt

import "testing"

func TestTopics(t *testing.T) {
	topics := NewTopics("ir-001")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"base", topics.Base(), "graylogic/ir/ir-001"},
		{"command", topics.Command("learn"), "graylogic/ir/ir-001/command/learn"},
		{"wildcard", topics.CommandWildcard(), "graylogic/ir/ir-001/command/+"},
		{"status", topics.Status(), "graylogic/ir/ir-001/status"},
		{"commands", topics.Commands(), "graylogic/ir/ir-001/commands"},
		{"health", topics.Health(), "graylogic/ir/ir-001/health"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestActionFromTopic(t *testing.T) {
	topics := NewTopics("ir-001")

	tests := []struct {
		topic  string
		action string
		ok     bool
	}{
		{"graylogic/ir/ir-001/command/send", "send", true},
		{"graylogic/ir/ir-001/command/erase_all", "erase_all", true},
		{"graylogic/ir/ir-001/command/", "", false},
		{"graylogic/ir/ir-001/command/send/extra", "", false},
		{"graylogic/ir/ir-002/command/send", "", false},
		{"graylogic/ir/ir-001/status", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			action, ok := topics.ActionFromTopic(tt.topic)
			if action != tt.action || ok != tt.ok {
				t.Errorf("ActionFromTopic(%q) = %q, %v; want %q, %v", tt.topic, action, ok, tt.action, tt.ok)
			}
		})
	}
}
