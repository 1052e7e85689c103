package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// UnmarshalJSONReply decodes the JSON object of a model reply into out.
// Markdown code fences around the object are ignored. Malformed JSON is
// repaired before a second attempt.
func UnmarshalJSONReply(reply string, out any) error {
	reply = stripCodeFence(reply)
	if reply == "" {
		return fmt.Errorf("reply is empty")
	}

	if err := json.Unmarshal([]byte(reply), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(reply)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal repaired reply: %w", err)
	}
	return nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
