package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/minigames/internal/config"
	"github.com/playmatatu/minigames/internal/game"
	"github.com/playmatatu/minigames/internal/levels"
	"github.com/playmatatu/minigames/internal/pairs"
	"github.com/playmatatu/minigames/internal/tangram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat, err := levels.NewCatalogue(tangram.BuiltinLevels()...)
	require.NoError(t, err)
	cfg := &config.Config{SessionTTLMinutes: 60, IdlePauseSeconds: 90, ComputerPickDelayMS: 20}
	game.Manager = game.NewGameManager(nil, nil, cfg, cat, nil)

	r := gin.New()
	r.GET("/sessions/:id/ws", func(c *gin.Context) {
		c.Set(PlayerIDKey, c.Query("player"))
		c.Next()
	}, HandleWebSocket)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID, player string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + sessionID + "/ws?player=" + player
	return websocket.DefaultDialer.Dial(url, nil)
}

func readType(t *testing.T, conn *websocket.Conn, want string) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		var typ string
		require.NoError(t, json.Unmarshal(msg["type"], &typ))
		if typ == want {
			return msg
		}
	}
}

func TestWebSocketGestures(t *testing.T) {
	srv := setupServer(t)
	v, err := game.Manager.CreateTangram(context.Background(), "p1", 1)
	require.NoError(t, err)

	conn, _, err := dial(t, srv, v.ID, "p1")
	require.NoError(t, err)
	defer conn.Close()

	msg := readType(t, conn, "session_state")
	var state game.View
	require.NoError(t, json.Unmarshal(msg["session"], &state))
	assert.Equal(t, v.ID, state.ID)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "place",
		"data": map[string]interface{}{"piece_id": 1, "x": 5, "y": 45, "rotation": 178},
	}))
	msg = readType(t, conn, "gesture_result")
	var out game.Outcome
	require.NoError(t, json.Unmarshal(msg["outcome"], &out))
	require.NotNil(t, out.Result)
	assert.True(t, out.Result.Snapped)
	assert.Equal(t, tangram.PieceState{X: 0, Y: 50, Rotation: 180, Placed: true}, out.Result.State)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "flip", "data": map[string]interface{}{"piece_id": 1}}))
	msg = readType(t, conn, "error")
	var text string
	require.NoError(t, json.Unmarshal(msg["message"], &text))
	assert.Equal(t, tangram.ErrPieceLocked.Error(), text)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "computer_pick"}))
	readType(t, conn, "error")
}

func TestWebSocketRejectsOtherPlayer(t *testing.T) {
	srv := setupServer(t)
	v, err := game.Manager.CreateTangram(context.Background(), "p1", 1)
	require.NoError(t, err)

	_, resp, err := dial(t, srv, v.ID, "p2")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = dial(t, srv, "missing", "p1")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketRunsComputerForPairs(t *testing.T) {
	srv := setupServer(t)
	v, err := game.Manager.CreatePairs(context.Background(), "p1")
	require.NoError(t, err)

	conn, _, err := dial(t, srv, v.ID, "p1")
	require.NoError(t, err)
	defer conn.Close()

	msg := readType(t, conn, "computer_pick")
	var out game.Outcome
	require.NoError(t, json.Unmarshal(msg["outcome"], &out))
	require.NotNil(t, out.Pick)
	assert.Equal(t, "right", string(out.Pick.Side))
}

func TestWebSocketRestartsComputerAfterReset(t *testing.T) {
	srv := setupServer(t)
	v, err := game.Manager.CreatePairs(context.Background(), "p1", pairs.WithMistakeRate(0), pairs.WithWinningScore(1))
	require.NoError(t, err)

	conn, _, err := dial(t, srv, v.ID, "p1")
	require.NoError(t, err)
	defer conn.Close()

	msg := readType(t, conn, "session_finished")
	var state game.View
	require.NoError(t, json.Unmarshal(msg["session"], &state))
	require.True(t, state.Finished)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "reset"}))
	msg = readType(t, conn, "gesture_result")
	var out game.Outcome
	require.NoError(t, json.Unmarshal(msg["outcome"], &out))
	assert.False(t, out.Completed)

	msg = readType(t, conn, "session_finished")
	require.NoError(t, json.Unmarshal(msg["session"], &state))
	assert.True(t, state.Finished)
	assert.Equal(t, 2, state.Attempt)
	assert.Equal(t, pairs.SideRight, state.Pairs.Winner)
}

func TestRelayIdlePause(t *testing.T) {
	srv := setupServer(t)
	v, err := game.Manager.CreateTangram(context.Background(), "p1", 1)
	require.NoError(t, err)

	conn, _, err := dial(t, srv, v.ID, "p1")
	require.NoError(t, err)
	defer conn.Close()
	readType(t, conn, "session_state")

	payload, _ := json.Marshal(game.IdleEvent{Type: game.EventSessionPaused, SessionID: v.ID, Reason: "idle", IdleSecs: 95})
	relayEvent(GameHub, payload)

	msg := readType(t, conn, "session_paused")
	var idle int64
	require.NoError(t, json.Unmarshal(msg["idle_seconds"], &idle))
	assert.Equal(t, int64(95), idle)

	// unknown rooms and payloads are ignored
	relayEvent(GameHub, []byte(`{"type":"session_paused","session_id":"nobody"}`))
	relayEvent(GameHub, []byte(`not json`))
}
