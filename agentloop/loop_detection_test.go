package agentloop

import "testing"

func records(actions ...string) []CommandRecord {
	recs := make([]CommandRecord, len(actions))
	for i, a := range actions {
		recs[i] = CommandRecord{Command: Command{Action: a, Args: []any{}, Kwargs: map[string]any{}}}
	}
	return recs
}

func TestDetectLoop(t *testing.T) {
	tests := []struct {
		name    string
		records []CommandRecord
		window  int
		want    bool
	}{
		{"too short", records("a", "a"), 4, false},
		{"repeat one", records("x", "a", "a", "a", "a"), 4, true},
		{"repeat two", records("a", "b", "a", "b"), 4, true},
		{"repeat three", records("a", "b", "c", "a", "b", "c"), 6, true},
		{"no pattern", records("a", "b", "c", "d"), 4, false},
		{"window one", records("a", "a"), 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLoop(tt.records, tt.window); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDetectLoopDistinguishesArgs(t *testing.T) {
	recs := []CommandRecord{
		{Command: Command{Action: "a", Args: []any{1.0}}},
		{Command: Command{Action: "a", Args: []any{2.0}}},
		{Command: Command{Action: "a", Args: []any{3.0}}},
	}
	if DetectLoop(recs, 3) {
		t.Error("same action with different args is not a loop")
	}
}
