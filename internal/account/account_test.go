package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationValidate(t *testing.T) {
	valid := Registration{
		Name:                 "Alice",
		Email:                "alice@example.com",
		Password:             "correct horse",
		PasswordConfirmation: "correct horse",
	}

	tests := []struct {
		name    string
		mutate  func(r *Registration)
		wantErr error
	}{
		{name: "valid", mutate: func(r *Registration) {}},
		{
			name:    "email without at sign",
			mutate:  func(r *Registration) { r.Email = "alice.example.com" },
			wantErr: ErrInvalidEmail,
		},
		{
			name: "password too short",
			mutate: func(r *Registration) {
				r.Password = "short"
				r.PasswordConfirmation = "short"
			},
			wantErr: ErrPasswordTooShort,
		},
		{
			name:    "exactly eight characters passes",
			mutate:  func(r *Registration) { r.Password, r.PasswordConfirmation = "12345678", "12345678" },
			wantErr: nil,
		},
		{
			name:    "confirmation mismatch",
			mutate:  func(r *Registration) { r.PasswordConfirmation = "something else" },
			wantErr: ErrPasswordMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := valid
			tt.mutate(&reg)
			err := reg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("correct horse"), hash)

	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "wrong horse"))
	assert.False(t, VerifyPassword([]byte("not a bcrypt hash"), "correct horse"))
}
