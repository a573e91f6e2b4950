package download

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	errs := []error{
		ErrTransport, ErrTransferTimeout, ErrHTTPStatus, ErrSizeMismatch,
		ErrRetryExhausted, ErrCancelled, ErrInvalidTransition, ErrJobNotFound,
	}
	for i, a := range errs {
		assert.NotEmpty(t, a.Error())
		for j, b := range errs {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("%w: reset", ErrTransport), true},
		{fmt.Errorf("%w: slow", ErrTransferTimeout), true},
		{fmt.Errorf("%w: 10 != 20", ErrSizeMismatch), true},
		{fmt.Errorf("%w: 404", ErrHTTPStatus), false},
		{ErrCancelled, false},
		{errors.New("disk full"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Retryable(tt.err), "%v", tt.err)
	}
}
