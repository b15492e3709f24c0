package agentloop

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"format", &ResponseFormatError{Err: errors.New("bad")}, true},
		{"not found", &ActionNotFoundError{Name: "x"}, true},
		{"execution", &ActionExecutionError{Action: "x", Err: errors.New("boom")}, true},
		{"serialization", &ActionSerializationError{Action: "x", Err: errors.New("chan")}, true},
		{"unknown variable", &UnknownVariableError{Name: "x"}, true},
		{"memory write", &MemoryWriteError{Name: "x", Err: errors.New("disk")}, true},
		{"wrapped", fmt.Errorf("step: %w", &ActionNotFoundError{Name: "x"}), true},
		{"collision", &NameCollisionError{Name: "x"}, false},
		{"plain", errors.New("provider down"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecoverable(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	if got := (&UnknownVariableError{Name: "doc"}).Error(); got != "{{doc}} is not a valid file in memory. Please try again." {
		t.Errorf("unexpected message %q", got)
	}
	err := &ActionExecutionError{Action: "x", Err: errors.New("boom")}
	if got := err.Error(); got != "Error executing action. Error message: boom" {
		t.Errorf("unexpected message %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Error("ActionExecutionError should unwrap its cause")
	}
}
