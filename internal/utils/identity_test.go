package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityToken_RoundTrip(t *testing.T) {
	token, deviceID, err := NewIdentityToken("test-secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = uuid.Parse(deviceID)
	assert.NoError(t, err, "device id should be a valid UUID")

	got, err := DeviceID(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, deviceID, got)
}

func TestDeviceID_WrongSecret(t *testing.T) {
	token, _, err := NewIdentityToken("test-secret")
	require.NoError(t, err)

	_, err = DeviceID(token, "other-secret")
	assert.Error(t, err)
}

func TestDeviceID_ClientInventedToken(t *testing.T) {
	// Client-invented strings are valid identity tokens for submissions
	// but carry no extractable device id.
	_, err := DeviceID("my-phone-2019", "test-secret")
	assert.Error(t, err)
}

func TestNewIdentityToken_Unique(t *testing.T) {
	a, aID, err := NewIdentityToken("test-secret")
	require.NoError(t, err)
	b, bID, err := NewIdentityToken("test-secret")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, aID, bID)
}
