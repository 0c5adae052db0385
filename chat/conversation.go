package chat

// Conversation accumulates turns in chronological order so each new request
// can carry everything said so far.
type Conversation struct {
	Turns []Turn `json:"turns"`
}

// NewRequest builds the request for message with a copy of the current
// history. The conversation itself is not modified until Record is called.
func (c *Conversation) NewRequest(message string) Request {
	history := make([]Turn, len(c.Turns))
	copy(history, c.Turns)
	return Request{
		Message:             message,
		ConversationHistory: history,
	}
}

// Record appends the user's message and the assistant's answer.
func (c *Conversation) Record(message string, reply Response) {
	c.Turns = append(c.Turns,
		Turn{Role: RoleUser, Content: message},
		Turn{Role: RoleAssistant, Content: reply.Response},
	)
}
