package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentialsPayload struct {
	Username    string `json:"username" validate:"required,max=64"`
	Email       string `json:"email" validate:"omitempty,email"`
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,nefield=OldPassword"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := credentialsPayload{
			Username:    "alice",
			Email:       "alice@example.com",
			OldPassword: "Temp@123",
			NewPassword: "N3w-Passw0rd",
		}

		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("missing required field reports json name", func(t *testing.T) {
		s := credentialsPayload{OldPassword: "Temp@123", NewPassword: "N3w-Passw0rd"}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "username is required", fields["username"])
	})

	t.Run("invalid email", func(t *testing.T) {
		s := credentialsPayload{
			Username:    "alice",
			Email:       "not-an-email",
			OldPassword: "Temp@123",
			NewPassword: "N3w-Passw0rd",
		}

		fields := GetValidationFields(ValidateStruct(&s))
		assert.Contains(t, fields, "email")
	})

	t.Run("short and unchanged password", func(t *testing.T) {
		s := credentialsPayload{Username: "alice", OldPassword: "short", NewPassword: "short"}

		fields := GetValidationFields(ValidateStruct(&s))
		assert.Equal(t, "newPassword must be at least 8 characters", fields["newPassword"])
	})

	t.Run("password equal to old password", func(t *testing.T) {
		s := credentialsPayload{Username: "alice", OldPassword: "Temp@1234", NewPassword: "Temp@1234"}

		fields := GetValidationFields(ValidateStruct(&s))
		assert.Equal(t, "newPassword must differ from OldPassword", fields["newPassword"])
	})
}

func TestGetValidationFields_NonValidationError(t *testing.T) {
	assert.Nil(t, GetValidationFields(assert.AnError))
	assert.False(t, IsValidationError(assert.AnError))
}
