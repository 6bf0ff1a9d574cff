package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	synchub "petrocore/internal/sync"
	"petrocore/pkg/models"
)

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	_, err := readToken(path)
	assert.ErrorContains(t, err, "not logged in")

	require.NoError(t, saveToken(path, "abc"))
	tok, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, clearToken(path))
	require.NoError(t, clearToken(path))
	assert.Error(t, saveToken(path, ""))
}

func TestDoJSON_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"items":[],"error":"Could not reach the specimen database. Please try again."}`))
	}))
	defer srv.Close()

	err := doJSON(context.Background(), http.MethodGet, srv.URL, "tok", nil, nil)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Could not reach the specimen database. Please try again.", apiErr.Message)
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	line := formatEvent(synchub.SpecimenEvent{Type: synchub.EventCreated, ID: "x1", Kind: models.KindRock, Code: "I-0001", At: at})
	assert.Contains(t, line, "specimen.created")
	assert.Contains(t, line, "rock I-0001")

	line = formatEvent(synchub.SpecimenEvent{Type: synchub.EventImported, Count: 12, At: at})
	assert.Contains(t, line, "12 records")
}
