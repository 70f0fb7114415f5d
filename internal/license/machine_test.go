package license

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMachineTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr bool
	}{
		{"trial to active", StatusTrial, StatusActive, false},
		{"trial to inactive", StatusTrial, StatusInactive, false},
		{"active to inactive", StatusActive, StatusInactive, false},
		{"active to trial", StatusActive, StatusTrial, false},
		{"inactive to active", StatusInactive, StatusActive, false},
		{"inactive to trial", StatusInactive, StatusTrial, false},
		{"same state is a no-op", StatusActive, StatusActive, false},
		{"unknown target", StatusTrial, "banana", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(tt.from)
			err := m.TransitionTo(context.Background(), tt.to)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.from, m.Current())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, m.Current())
			}
		})
	}
}

func TestMachineDefaultsToTrial(t *testing.T) {
	m := NewMachine("")
	assert.Equal(t, StatusTrial, m.Current())
}
