package host

import (
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tickscript/internal/event"
	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

// CommandPrefix marks chat lines the host handles itself.
const CommandPrefix = "/"

// Message is one chat line.
type Message struct {
	Type     event.ChatType
	SenderID uint32
	Sender   string
	Text     string
}

// Handled reports whether the host consumes the message. Handled messages
// are dispatched as onChatMessageHandled, the rest as
// onChatMessageUnhandled.
func (m Message) Handled() bool {
	return strings.HasPrefix(m.Text, CommandPrefix)
}

// Args returns the event arguments for m.
func (m Message) Args() event.Args {
	return event.ChatArgs(m.Type, m.SenderID, m.Sender, m.Text)
}

// Chat is the host's chat channel: an inbox drained once per tick and an
// outbox scripts write to. It is safe for concurrent use.
type Chat struct {
	mu     sync.Mutex
	inbox  []Message
	outbox []string
}

// NewChat creates an empty chat.
func NewChat() *Chat {
	return &Chat{}
}

// Receive queues an incoming message.
func (c *Chat) Receive(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, m)
}

// Say queues a line typed by sender. Lines starting with the command
// prefix are typed as commands.
func (c *Chat) Say(senderID uint32, sender, text string) {
	typ := event.ChatSay
	if strings.HasPrefix(text, CommandPrefix) {
		typ = event.ChatCommand
	}
	c.Receive(Message{Type: typ, SenderID: senderID, Sender: sender, Text: text})
}

// Drain returns and clears the inbox.
func (c *Chat) Drain() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.inbox
	c.inbox = nil
	return out
}

// Send appends a line to the outbox.
func (c *Chat) Send(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outbox = append(c.outbox, text)
}

// Outbox returns and clears the lines scripts sent.
func (c *Chat) Outbox() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.outbox
	c.outbox = nil
	return out
}

func (c *Chat) table(state *scriptlua.State) *lua.LTable {
	L := state.LuaState()
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"send": state.Bridge().WrapGoFunc(func(args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("chat.send expects 1 argument, got %d", len(args))
			}
			text, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("chat.send expects a string, got %T", args[0])
			}
			c.Send(text)
			return nil, nil
		}),
	})
}
