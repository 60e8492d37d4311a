package event

// Host events delivered to every loaded script.
var (
	// OnLoad runs once after the script body executed successfully.
	OnLoad = NewSchema("onLoad")

	// OnUnload runs best-effort before the script's state is discarded.
	OnUnload = NewSchema("onUnload")

	// OnDraw runs once per frame while the UI frame is open.
	OnDraw = NewSchema("onDraw")

	// OnUpdate runs once per tick.
	OnUpdate = NewSchema("onUpdate")

	// OnKeyUp reports a key that was released since the last tick.
	OnKeyUp = NewSchema("onKeyUp", ArgOf[KeyCode]("key"))

	// OnChatMessageHandled reports a chat message the host consumed.
	OnChatMessageHandled = NewSchema("onChatMessageHandled", chatArgs()...)

	// OnChatMessageUnhandled reports a chat message the host did not consume.
	OnChatMessageUnhandled = NewSchema("onChatMessageUnhandled", chatArgs()...)
)

func chatArgs() []Arg {
	return []Arg{
		ArgOf[ChatType]("type"),
		ArgOf[uint32]("senderId"),
		ArgOf[string]("sender"),
		ArgOf[string]("message"),
	}
}

// All lists the host events in declaration order.
var All = []*Schema{
	OnLoad,
	OnUnload,
	OnDraw,
	OnUpdate,
	OnKeyUp,
	OnChatMessageHandled,
	OnChatMessageUnhandled,
}

// Lookup returns the host event with the given name.
func Lookup(name string) (*Schema, error) {
	for _, s := range All {
		if s.name == name {
			return s, nil
		}
	}
	return nil, ErrUnknownEvent
}

// ChatArgs builds the argument set for the chat events.
func ChatArgs(typ ChatType, senderID uint32, sender, message string) Args {
	return Args{
		"type":     typ,
		"senderId": senderID,
		"sender":   sender,
		"message":  message,
	}
}

// KeyArgs builds the argument set for OnKeyUp.
func KeyArgs(key KeyCode) Args {
	return Args{"key": key}
}
