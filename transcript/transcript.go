package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"textbook-proxy/chat"
)

// Load reads a saved conversation from path. A missing file yields an empty
// conversation, so a new transcript is created in place on the first Save.
func Load(path string) (*chat.Conversation, error) {
	var conversation chat.Conversation
	transcriptBytes, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("unexpected error reading transcript: %w", err)
	}

	if err == nil {
		err = json.Unmarshal(transcriptBytes, &conversation)
		if err != nil {
			return nil, fmt.Errorf("unexpected error parsing transcript: %w", err)
		}
	}

	return &conversation, nil
}

func Save(path string, conversation *chat.Conversation) error {
	transcriptBytes, err := json.MarshalIndent(conversation, "", " ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create transcript directory: %w", err)
		}
	}
	err = os.WriteFile(path, transcriptBytes, 0644)
	if err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	return nil
}
