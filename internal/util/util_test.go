package util

import (
	"fmt"
	"net/http"
	"solveit_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_GenerateAndParse(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 7}, Email: "a@b.c", Role: model.RoleCompany}

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, model.RoleCompany, claims.Role)
	assert.Equal(t, "a@b.c", claims.Email)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestJWT_Expired(t *testing.T) {
	user := &model.User{BaseModel: model.BaseModel{ID: 1}, Role: model.RoleUser}
	token, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret")
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: empty text", ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: role", ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: company", ErrNotFound), http.StatusNotFound},
		{ErrAlreadyCompleted, http.StatusConflict},
		{ErrEmailRegistered, http.StatusConflict},
		{ErrInvalidCredential, http.StatusUnauthorized},
		{fmt.Errorf("%w: whisper down", ErrProvider), http.StatusBadGateway},
		{fmt.Errorf("%w: insert", ErrStore), http.StatusInternalServerError},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestParseProbeOutput(t *testing.T) {
	info, err := parseProbeOutput(`{"format":{"duration":"12.480000","format_name":"matroska,webm"}}`)
	require.NoError(t, err)
	assert.InDelta(t, 12.48, info.Duration, 1e-6)
	assert.Equal(t, "matroska,webm", info.Format)

	_, err = parseProbeOutput("not json")
	assert.Error(t, err)
}

func TestAudioExtension(t *testing.T) {
	assert.Equal(t, ".wav", AudioExtension("Recording.WAV"))
	assert.Equal(t, ".webm", AudioExtension("blob"))
	assert.Equal(t, ".webm", AudioExtension("evil.exe"))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n%âãÏÓ\n")))
	assert.False(t, IsPDF([]byte("hello world")))
}
