package controllers_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/dinein-app/events"
	"github.com/yeremiapane/dinein-app/hub"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readUntil reads frames until one of type want arrives, unwrapping batches.
func readUntil(t *testing.T, conn *websocket.Conn, want string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == want {
			return f
		}
		if f.Type == hub.TypeBatch {
			var inner []frame
			require.NoError(t, json.Unmarshal(f.Payload, &inner))
			for _, e := range inner {
				if e.Type == want {
					return e
				}
			}
		}
	}
}

func TestWebSocketReceivesRestaurantEvents(t *testing.T) {
	cfg := hub.DefaultConfig()
	cfg.BatchWindow = 10 * time.Millisecond
	h := hub.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		h.Shutdown()
	})

	f := newFixture(t, h, h)
	srv := httptest.NewServer(f.engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntil(t, conn, hub.TypeConnectionEstablished)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    hub.TypeRegisterRestaurant,
		"payload": map[string]uint{"restaurantId": restaurantID},
	}))
	readUntil(t, conn, hub.TypeRegistered)

	session := f.openSession(t, 0)

	got := readUntil(t, conn, events.TypeTableStatus)
	var payload events.TableStatusPayload
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, f.tables[0].ID, payload.TableID)
	assert.True(t, payload.Occupied)
	assert.NotZero(t, session.ID)
}
