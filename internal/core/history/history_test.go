package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_Partial(t *testing.T) {
	tests := []struct {
		name string
		run  Run
		want bool
	}{
		{"optimal and complete", Run{Status: "optimal"}, false},
		{"optimal with leftovers", Run{Status: "optimal", Unscheduled: 1}, true},
		{"budget expired", Run{Status: "feasible"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.run.Partial())
		})
	}
}
