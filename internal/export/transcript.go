package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentictax/taxpilot/internal/model"
)

// transcriptTimeLayout matches the audit views' timestamp rendering.
const transcriptTimeLayout = "2006-01-02 15:04:05"

// WriteTranscript renders the conversation as plain text, one line per
// message: [timestamp] ROLE: content.
func WriteTranscript(w io.Writer, messages []model.ChatMessage) error {
	for _, m := range messages {
		line := fmt.Sprintf("[%s] %s: %s\n",
			m.Timestamp.Format(transcriptTimeLayout),
			strings.ToUpper(string(m.Role)),
			m.Content)
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("failed to write transcript line: %w", err)
		}
	}
	return nil
}
