package customcmd

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"guardian-automod/internal/embeds"
	"guardian-automod/internal/pipeline"
	"guardian-automod/internal/policy"
)

type staticCommands map[string]policy.CustomCommand

func (s staticCommands) CustomCommands(string) map[string]policy.CustomCommand { return s }

type fakeSender struct{ sent []string }

func (s *fakeSender) SendMessage(_, content string) error {
	s.sent = append(s.sent, content)
	return nil
}

func newDispatcher() (*Dispatcher, *fakeSender) {
	sender := &fakeSender{}
	cmds := staticCommands{
		"rules":  {Response: "Be nice, {user}", Enabled: true},
		"faq":    {Response: "See #faq", Prefix: "?", Enabled: true},
		"hidden": {Response: "nope", Enabled: false},
		"slashy": {Response: "slash only", Enabled: true, CommandType: policy.CommandSlash},
	}
	return New(cmds, sender, zap.NewNop()), sender
}

func dispatch(t *testing.T, d *Dispatcher, content string) bool {
	t.Helper()
	handled, err := d.Dispatch(context.Background(), pipeline.Message{GuildID: "g1", ChannelID: "c1", Content: content, Author: embeds.UserRef{ID: "u1"}})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	return handled
}

func TestDispatch(t *testing.T) {
	d, sender := newDispatcher()
	if !dispatch(t, d, "!RULES please") {
		t.Fatalf("expected !rules to match case-insensitively")
	}
	if sender.sent[0] != "Be nice, <@u1>" {
		t.Fatalf("unexpected response %q", sender.sent[0])
	}
	if !dispatch(t, d, "?faq") {
		t.Fatalf("expected custom prefix to match")
	}
	if !dispatch(t, d, "!faq") {
		t.Fatalf("legacy ! prefix should still reach commands")
	}
	for _, content := range []string{"!hidden", "!slashy", "hello", "!unknown"} {
		if dispatch(t, d, content) {
			t.Fatalf("%q should not be handled", content)
		}
	}
}
