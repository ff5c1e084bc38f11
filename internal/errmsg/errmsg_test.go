package errmsg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := New(Infeasible, "cannot pass through %s", "Sigmoid").
		AtStage(3).AtChannel(5).WithBounds(-1, 2).WithValue(0)
	assert.Equal(t,
		"stage 3: channel 5: infeasible escape scale: cannot pass through Sigmoid (bounds [-1, 2]) (value 0)",
		err.Error())
	wrapped := fmt.Errorf("line 9: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInfeasible))
	assert.False(t, errors.Is(wrapped, ErrCoverage))
}

func TestStage(t *testing.T) {
	err := Stage(New(Coverage, "gap"), 4)
	assert.Equal(t, "stage 4: partition coverage: gap", err.Error())
	err = Stage(New(Coverage, "gap").AtStage(1), 4)
	assert.Equal(t, "stage 1: partition coverage: gap", err.Error())
	plain := errors.New("plain")
	assert.Same(t, plain, Stage(plain, 4))
}

func TestSentinel(t *testing.T) {
	assert.Equal(t, "infeasible escape scale", ErrInfeasible.Error())
	assert.Equal(t, -1, ErrCoverage.Stage)
	assert.Equal(t, -1, ErrCoverage.Channel)
}
