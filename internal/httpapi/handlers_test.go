package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dicetrain/server/internal/bot"
	"github.com/dicetrain/server/internal/hub"
	"github.com/dicetrain/server/internal/protocol"
)

func newTestRouter(t *testing.T) (*hub.Hub, http.Handler) {
	t.Helper()
	h := hub.New(bot.SpeedInstant, zap.NewNop())
	t.Cleanup(func() { h.Shutdown("test over") })
	return h, SetupRoutes(h, zap.NewNop())
}

// do sends one request through the router. hostID, when non-empty, is
// set as the host credential header. body is JSON-encoded when non-nil.
func do(t *testing.T, router http.Handler, method, path, hostID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if hostID != "" {
		req.Header.Set(hostIDHeader, hostID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createTestLobby(t *testing.T, router http.Handler) createLobbyResponse {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/lobbies", "", map[string]any{
		"name":      "Night Train",
		"host_name": "Ada",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createLobbyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Code)
	require.NotEmpty(t, resp.HostID)
	return resp
}

func TestCreateAndGetLobby(t *testing.T) {
	_, router := newTestRouter(t)
	created := createTestLobby(t, router)

	rec := do(t, router, http.MethodGet, "/lobbies/"+created.Code, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view protocol.Lobby
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	require.Equal(t, created.Code, view.Code)
	require.Len(t, view.Players, 1)
	require.Equal(t, created.HostID, view.Players[0].ID)
}

func TestHostEndpointsRequireHostID(t *testing.T) {
	_, router := newTestRouter(t)
	created := createTestLobby(t, router)

	rec := do(t, router, http.MethodPost, "/lobbies/"+created.Code+"/start", "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPost, "/lobbies/"+created.Code+"/ai", "not-the-host", map[string]any{})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodDelete, "/lobbies/"+created.Code, "not-the-host", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHostEndpointsUnknownCode(t *testing.T) {
	_, router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/lobbies/DT-NOPE22/start", "whoever", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartRejectsLonelyHost(t *testing.T) {
	_, router := newTestRouter(t)
	created := createTestLobby(t, router)

	rec := do(t, router, http.MethodPost, "/lobbies/"+created.Code+"/start", created.HostID, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddAIThenStart(t *testing.T) {
	h, router := newTestRouter(t)
	created := createTestLobby(t, router)

	rec := do(t, router, http.MethodPost, "/lobbies/"+created.Code+"/ai", created.HostID, map[string]any{"name": "Casey Jones"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var added addAIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&added))
	require.Regexp(t, `^ai-`, added.ID)
	require.Len(t, added.Lobby.Players, 2)

	rec = do(t, router, http.MethodPost, "/lobbies/"+created.Code+"/start", created.HostID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view protocol.Lobby
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	require.Equal(t, protocol.LobbyPlaying, view.Status)

	s, ok := h.Get(created.Code)
	require.True(t, ok)
	require.NotNil(t, s.Sync())

	// A second start conflicts.
	rec = do(t, router, http.MethodPost, "/lobbies/"+created.Code+"/start", created.HostID, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRemovePlayer(t *testing.T) {
	_, router := newTestRouter(t)
	created := createTestLobby(t, router)

	rec := do(t, router, http.MethodPost, "/lobbies/"+created.Code+"/ai", created.HostID, map[string]any{})
	require.Equal(t, http.StatusCreated, rec.Code)
	var added addAIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&added))

	rec = do(t, router, http.MethodDelete, "/lobbies/"+created.Code+"/players/"+added.ID, created.HostID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view protocol.Lobby
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	require.Len(t, view.Players, 1)

	rec = do(t, router, http.MethodDelete, "/lobbies/"+created.Code+"/players/"+added.ID, created.HostID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, "/lobbies/"+created.Code+"/players/"+created.HostID, created.HostID, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateLobbySettings(t *testing.T) {
	_, router := newTestRouter(t)
	created := createTestLobby(t, router)

	rec := do(t, router, http.MethodPatch, "/lobbies/"+created.Code, created.HostID, map[string]any{
		"round_count": 7,
		"password":    "allaboard",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var view protocol.Lobby
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	require.Equal(t, 7, view.RoundCount)
	require.True(t, view.HasPassword)
}

func TestCloseLobbyRemovesSession(t *testing.T) {
	h, router := newTestRouter(t)
	created := createTestLobby(t, router)

	rec := do(t, router, http.MethodDelete, "/lobbies/"+created.Code, created.HostID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, ok := h.Get(created.Code)
	require.False(t, ok)
	rec = do(t, router, http.MethodGet, "/lobbies/"+created.Code, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
