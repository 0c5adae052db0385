package chat

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior message in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Message             string `json:"message"`
	ConversationHistory []Turn `json:"conversation_history"`
}

// Source is a citation returned by the backend alongside an answer. Sources
// arrive ordered by relevance.
type Source struct {
	Module   string `json:"module"`
	Title    string `json:"title"`
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

type Response struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}
