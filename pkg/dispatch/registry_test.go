package dispatch

import (
	"context"
	"testing"

	"github.com/tinypirate/tinypirate/pkg/capability"
	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/eventlog"
)

func noopCapability(name string) capability.Capability {
	return capability.Func{
		CapName: name,
		Fn: func(ctx context.Context, cmd command.Command) ([]eventlog.Draft, error) {
			return nil, nil
		},
	}
}

func TestResolvePriority(t *testing.T) {
	registry := NewRegistry([]Registration{
		{Name: "chat", Match: MatchKind(command.KindChat), Priority: 10, Capability: noopCapability("chat")},
		{Name: "midjourney", Match: MatchSource("midjourney"), Priority: 100, Capability: noopCapability("midjourney")},
		{Name: "catch-media", Match: MatchKind(command.KindMediaGenerate), Priority: 20, Capability: noopCapability("catch-media")},
	})

	tests := []struct {
		name    string
		kind    command.Kind
		source  string
		handler string
	}{
		{"source beats kind", command.KindMediaGenerate, "midjourney", "midjourney"},
		{"kind match only", command.KindMediaGenerate, "other", "catch-media"},
		{"chat", command.KindChat, "user", "chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := command.New(tt.kind, tt.source, "x", command.OriginUser)
			reg, err := registry.Resolve(cmd)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if reg.Name != tt.handler {
				t.Errorf("handler = %q, want %q", reg.Name, tt.handler)
			}
		})
	}
}

func TestResolveTieBreaksByRegistrationOrder(t *testing.T) {
	registry := NewRegistry([]Registration{
		{Name: "first", Match: MatchKind(command.KindSearch), Priority: 50, Capability: noopCapability("first")},
		{Name: "second", Match: MatchKind(command.KindSearch), Priority: 50, Capability: noopCapability("second")},
	})

	cmd := command.New(command.KindSearch, "web", "x", command.OriginUser)
	reg, err := registry.Resolve(cmd)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if reg.Name != "first" {
		t.Errorf("tie resolved to %q, want first-registered", reg.Name)
	}
}

func TestResolveNoHandler(t *testing.T) {
	registry := NewRegistry([]Registration{
		{Name: "chat", Match: MatchKind(command.KindChat), Priority: 10, Capability: noopCapability("chat")},
	})

	cmd := command.New(command.KindMediaGenerate, "midjourney", "x", command.OriginUser)
	if _, err := registry.Resolve(cmd); err != ErrNoHandler {
		t.Errorf("err = %v, want ErrNoHandler", err)
	}
}
