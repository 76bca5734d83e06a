package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"storefront/internal/apperror"

	"github.com/stretchr/testify/assert"
)

var errMissing = apperror.New(apperror.NotFound, "record not found")

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperror.Kind
	}{
		{name: "sentinel", err: errMissing, want: apperror.NotFound},
		{name: "wrapped sentinel", err: fmt.Errorf("product 42: %w", errMissing), want: apperror.NotFound},
		{name: "version conflict", err: fmt.Errorf("save cart: %w", apperror.ErrVersionConflict), want: apperror.Conflict},
		{name: "plain error", err: errors.New("boom"), want: apperror.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperror.KindOf(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("send otp: %w", apperror.New(apperror.Upstream, "email could not be sent"))
	assert.True(t, apperror.Is(err, apperror.Upstream))
	assert.False(t, apperror.Is(err, apperror.Internal))
	assert.False(t, apperror.Is(nil, apperror.Upstream))
}

func TestSentinelIdentitySurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("save cart: %w", apperror.ErrVersionConflict)
	assert.ErrorIs(t, err, apperror.ErrVersionConflict)
	assert.NotErrorIs(t, err, errMissing)
	assert.Equal(t, "save cart: resource was modified concurrently, retry the request", err.Error())
}
