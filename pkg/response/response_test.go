package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openverse/toolkit/pkg/types"
)

func TestOkEnvelope(t *testing.T) {
	env, err := Ok(map[string]any{"id": 42, "name": "Ann"})
	require.NoError(t, err)

	assert.True(t, env.IsOK())
	assert.Equal(t, StatusOK, env.Status)
	assert.Empty(t, env.Error)

	var payload struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, env.DecodeData(&payload))
	assert.Equal(t, 42, payload.ID)
	assert.Equal(t, "Ann", payload.Name)
}

func TestErrEnvelope(t *testing.T) {
	env := Err("not_found")

	assert.False(t, env.IsOK())
	assert.Equal(t, "not_found", env.Error)
	assert.Empty(t, env.Data)

	var ignored map[string]any
	err := env.DecodeData(&ignored)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_found")
}

func TestEnvelopeSerializesOneOf(t *testing.T) {
	ok, err := Ok("payload")
	require.NoError(t, err)
	raw, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"error"`)

	raw, err = json.Marshal(Err("boom"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"data"`)
}

func TestDecode(t *testing.T) {
	serve := func(status int, body string) *http.Response {
		rec := httptest.NewRecorder()
		rec.WriteHeader(status)
		rec.Body.WriteString(body)
		return rec.Result()
	}

	t.Run("success body", func(t *testing.T) {
		env := Decode(serve(http.StatusOK, `{"status":"ok","data":{"id":42,"name":"Ann"}}`))
		assert.True(t, env.IsOK())
		assert.Equal(t, http.StatusOK, env.StatusCode)
	})

	t.Run("error body", func(t *testing.T) {
		env := Decode(serve(http.StatusNotFound, `{"status":"error","error":"not_found"}`))
		assert.False(t, env.IsOK())
		assert.Equal(t, "not_found", env.Error)
		assert.Equal(t, http.StatusNotFound, env.StatusCode)
	})

	t.Run("unparsable body", func(t *testing.T) {
		env := Decode(serve(http.StatusOK, `<html>oops</html>`))
		assert.False(t, env.IsOK())
		assert.Contains(t, env.Error, "unparsable")
	})

	t.Run("ok envelope on failing status", func(t *testing.T) {
		env := Decode(serve(http.StatusBadGateway, `{"status":"ok","data":{}}`))
		assert.False(t, env.IsOK())
		assert.Equal(t, http.StatusBadGateway, env.StatusCode)
	})
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	env, err := Ok(map[string]string{"hello": "world"})
	require.NoError(t, err)

	require.NoError(t, WriteJSON(rec, http.StatusCreated, env))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	decoded := Decode(rec.Result())
	assert.True(t, decoded.IsOK())
}

func TestGeneralError(t *testing.T) {
	env := GeneralError(errors.New("database exploded"))
	assert.False(t, env.IsOK())
	assert.Equal(t, "database exploded", env.Error)
}

func TestValidationErrorRendering(t *testing.T) {
	err := types.Validate(types.LoginRequest{})
	require.Error(t, err)

	env := ValidationError(err)
	assert.False(t, env.IsOK())
	assert.True(t, strings.Contains(env.Error, "Login") && strings.Contains(env.Error, "Password"))
}
