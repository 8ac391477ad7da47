package dto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/rserve-session/pkg/util"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(LoginRequest{RestaurantID: "r1", Password: "pw"}))

	err := Validate(LoginRequest{RestaurantID: "r1"})
	require.Error(t, err)

	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
	assert.Equal(t, "required", de.Details["Password"])

	err = Validate(ChangePasswordRequest{CurrentPassword: "a", NewPassword: "short"})
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "min", de.Details["NewPassword"])
}
