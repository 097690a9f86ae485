package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestEmptyListAdmitsEveryone(t *testing.T) {
	l := NewList(nil, zap.NewNop())
	assert.True(t, l.Open())
	assert.True(t, l.Allowed("anyone"))
}

func TestAllowed(t *testing.T) {
	l := NewList([]string{" Alice ", "@Example.com", ""}, zap.NewNop())

	tests := []struct {
		initiator string
		want      bool
	}{
		{"alice", true},
		{"ALICE", true},
		{"bob", false},
		{"bob@example.com", true},
		{"bob@example.org", false},
		{"example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.initiator, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Allowed(tt.initiator))
		})
	}
}
