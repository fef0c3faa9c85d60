package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationHelpers(t *testing.T) {
	err := fmt.Errorf("create issue: %w", Missing("location.lat"))
	assert.True(t, IsValidation(err))

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "location.lat", ve.Field)
	assert.False(t, IsValidation(errors.New("plain")))
}

func TestUnavailable(t *testing.T) {
	assert.Nil(t, Unavailable("insert_donation", nil))

	err := Unavailable("insert_donation", errors.New("dial tcp: refused"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "insert_donation")
	assert.False(t, IsValidation(err))
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, PaymentUPI.Valid())
	assert.False(t, PaymentMethod("cash").Valid())
	assert.True(t, CategoryWaterQuality.Valid())
	assert.False(t, IssueCategory("noise").Valid())
	assert.True(t, PriorityCritical.Valid())
	assert.False(t, IssuePriority("urgent").Valid())
	assert.True(t, RoleDepartment.Valid())
	assert.False(t, Role("root").Valid())
}
