package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSONReply unmarshals a model reply into v. Models often wrap the
// object in prose or code fences, so when the whole reply does not parse the
// outermost {...} span is tried.
func DecodeJSONReply(reply string, v interface{}) error {
	err := json.Unmarshal([]byte(reply), v)
	if err == nil {
		return nil
	}

	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("failed to extract JSON from LLM response: %w", err)
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return nil
}
