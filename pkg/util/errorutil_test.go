package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsKindMatchesWrappedErrors(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewConfigurationError("no calendar", nil))
	assert.True(t, IsKind(err, KindConfiguration))
	assert.False(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(errors.New("plain"), KindConfiguration))
}

func TestIsNotInitialized(t *testing.T) {
	assert.True(t, IsNotInitialized(&pgconn.PgError{Code: "42P01"}))
	assert.True(t, IsNotInitialized(NewInfrastructureError("store not initialized", nil)))
	assert.False(t, IsNotInitialized(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsNotInitialized(nil))
	assert.False(t, IsNotInitialized(errors.New("other")))
}

func TestToEngineErrorClassifiesPgErrors(t *testing.T) {
	engineErr := ToEngineError(&pgconn.PgError{Code: "42P01"})
	assert.Equal(t, KindInfrastructure, engineErr.Kind)

	engineErr = ToEngineError(errors.New("disk on fire"))
	assert.Equal(t, KindConsistency, engineErr.Kind)
}
