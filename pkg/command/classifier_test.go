package command

import "testing"

func TestClassifyTriggers(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name    string
		input   string
		kind    Kind
		source  string
		payload string
	}{
		{"marked imagine", "/imagine a red balloon", KindMediaGenerate, "midjourney", "a red balloon"},
		{"bare imagine", "imagine a red balloon", KindMediaGenerate, "midjourney", "a red balloon"},
		{"mentioned imagine", "/imagine@pirate_bot a red balloon", KindMediaGenerate, "midjourney", "a red balloon"},
		{"uppercase trigger", "IMAGINE a red balloon", KindMediaGenerate, "midjourney", "a red balloon"},
		{"draw alias", "draw a ship", KindMediaGenerate, "midjourney", "a ship"},
		{"search", "/search best anchors", KindSearch, "web", "best anchors"},
		{"lookup alias", "lookup tide tables", KindSearch, "web", "tide tables"},
		{"status", "/status", KindSystem, "system", ""},
		{"system", "system", KindSystem, "system", ""},
		{"plain chat", "hello there", KindChat, "user", "hello there"},
		{"slash but unknown", "/teleport home", KindChat, "user", "/teleport home"},
		{"surrounding whitespace", "  imagine a kraken  ", KindMediaGenerate, "midjourney", "a kraken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := c.Classify(tt.input, OriginUser)
			if !ok {
				t.Fatalf("Classify(%q) not ok", tt.input)
			}
			if cmd.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", cmd.Kind, tt.kind)
			}
			if cmd.Source != tt.source {
				t.Errorf("source = %q, want %q", cmd.Source, tt.source)
			}
			if cmd.Payload != tt.payload {
				t.Errorf("payload = %q, want %q", cmd.Payload, tt.payload)
			}
			if cmd.Origin != OriginUser {
				t.Errorf("origin = %q, want %q", cmd.Origin, OriginUser)
			}
		})
	}
}

func TestClassifyMarkedAndBareAgree(t *testing.T) {
	c := NewClassifier()

	marked, _ := c.Classify("/imagine stormy seas", OriginUser)
	bare, _ := c.Classify("imagine stormy seas", OriginUser)

	if marked.Kind != bare.Kind || marked.Source != bare.Source || marked.Payload != bare.Payload {
		t.Errorf("marked and bare forms diverge: %+v vs %+v", marked, bare)
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	c := NewClassifier()

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, ok := c.Classify(input, OriginUser); ok {
			t.Errorf("Classify(%q) ok, want rejection", input)
		}
	}
}

func TestClassifyAutonomousOrigin(t *testing.T) {
	c := NewClassifier()

	cmd, ok := c.Classify("imagine the horizon", OriginAutonomous)
	if !ok {
		t.Fatal("Classify not ok")
	}
	if cmd.Origin != OriginAutonomous {
		t.Errorf("origin = %q, want %q", cmd.Origin, OriginAutonomous)
	}

	chat, _ := c.Classify("just talking", OriginAutonomous)
	if chat.Source != string(OriginAutonomous) {
		t.Errorf("chat source = %q, want %q", chat.Source, OriginAutonomous)
	}
}

func TestCommandIdentity(t *testing.T) {
	a := New(KindChat, "user", "hello", OriginUser)
	b := New(KindChat, "user", "hello", OriginUser)

	if a.ID == "" || b.ID == "" {
		t.Fatal("command ID empty")
	}
	if a.ID == b.ID {
		t.Error("two commands share an identity")
	}
	if b.SequenceHint <= a.SequenceHint {
		t.Errorf("sequence hints not increasing: %d then %d", a.SequenceHint, b.SequenceHint)
	}
}
