package agentloop

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// commandSignature identifies a command by action name and a hash of its
// arguments.
func commandSignature(cmd Command) string {
	payload, _ := json.Marshal(struct {
		Args   []any          `json:"a"`
		Kwargs map[string]any `json:"k"`
	}{cmd.Args, cmd.Kwargs})
	h := sha256.Sum256(payload)
	return fmt.Sprintf("%s:%x", cmd.Action, h[:8])
}

// DetectLoop reports whether the last windowSize commands repeat a pattern
// of length 1, 2 or 3.
func DetectLoop(records []CommandRecord, windowSize int) bool {
	if windowSize <= 1 || len(records) < windowSize {
		return false
	}
	sigs := make([]string, windowSize)
	for i, rec := range records[len(records)-windowSize:] {
		sigs[i] = commandSignature(rec.Command)
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if windowSize%patternLen != 0 || patternLen == windowSize {
			continue
		}
		allMatch := true
		for i := patternLen; i < windowSize && allMatch; i++ {
			allMatch = sigs[i] == sigs[i%patternLen]
		}
		if allMatch {
			return true
		}
	}
	return false
}
