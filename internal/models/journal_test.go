package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedigerSnapshotMasksSensitiveFields(t *testing.T) {
	raw := RedigerSnapshot(map[string]interface{}{
		"email":         "admin@ecole.test",
		"password":      "secret",
		"password_hash": "$2a$10$abc",
		"refresh_token": "tok",
	})
	require.NotNil(t, raw)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "admin@ecole.test", decoded["email"])
	assert.Equal(t, MasqueChampSensible, decoded["password"])
	assert.Equal(t, MasqueChampSensible, decoded["password_hash"])
	assert.Equal(t, MasqueChampSensible, decoded["refresh_token"])
}

func TestRedigerSnapshotNil(t *testing.T) {
	assert.Nil(t, RedigerSnapshot(nil))
}
