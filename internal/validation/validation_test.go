package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{name: "valid", password: "Abc12345"},
		{name: "too short", password: "short1", wantErr: "at least 8 characters"},
		{name: "no uppercase", password: "alllowercase1", wantErr: "uppercase"},
		{name: "no lowercase", password: "ALLUPPERCASE1", wantErr: "lowercase"},
		{name: "no digit", password: "NoDigitsHere", wantErr: "number"},
		{name: "too long", password: "A1" + string(make([]byte, 130)), wantErr: "at most 128"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Password(tt.password)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		email   string
		want    string
		wantErr bool
	}{
		{name: "valid", email: "alice@x.com", want: "alice@x.com"},
		{name: "normalized to lowercase", email: "Alice@X.COM", want: "alice@x.com"},
		{name: "missing at", email: "alice.x.com", wantErr: true},
		{name: "missing tld", email: "alice@x", wantErr: true},
		{name: "empty", email: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Email(tt.email)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUsername(t *testing.T) {
	t.Parallel()

	require.NoError(t, Username("alice"))
	require.Error(t, Username("al"))
	require.Error(t, Username(string(make([]byte, 51))))
}
