package wizard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	core "skillswap/internal/wizard"
)

func dialWizard(t *testing.T, srv *httptest.Server, id, user string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/wizards/" + id
	header := http.Header{}
	header.Set("X-Test-User-ID", user)
	return websocket.DefaultDialer.Dial(url, header)
}

// readEvent reads until an event of the wanted type arrives.
func readEvent(t *testing.T, conn *websocket.Conn, want string) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type == want {
			return ev
		}
	}
}

func TestHub_StreamsWizardState(t *testing.T) {
	h := newHarness(t)
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").
		Return([]core.DayAvailability{{DayOfWeek: 3, IsActive: true}}, nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).
		Return([]core.TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}, nil)
	id := h.open(t, "s1")

	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	conn, _, err := dialWizard(t, srv, id, "s1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ev := readEvent(t, conn, EventState)
	assert.Equal(t, id, ev.WizardID)

	require.NoError(t, conn.WriteJSON(gin.H{"type": "ping"}))
	readEvent(t, conn, EventPong)

	require.Eventually(t, func() bool { return h.hub.Subscribers(id) == 1 }, time.Second, 10*time.Millisecond)

	res := h.do(t, http.MethodPost, "/api/v1/wizards/"+id+"/date", "s1", gin.H{"date": "2026-10-14"})
	require.Equal(t, http.StatusOK, res.code, res.raw)

	ev = readEvent(t, conn, EventState)
	payload, ok := ev.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2026-10-14", payload["selectedDate"])
}

func TestHub_UnknownMessageGetsError(t *testing.T) {
	h := newHarness(t)
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return([]core.DayAvailability{}, nil)
	id := h.open(t, "s1")

	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	conn, _, err := dialWizard(t, srv, id, "s1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	readEvent(t, conn, EventState)

	require.NoError(t, conn.WriteJSON(gin.H{"type": "dance"}))
	ev := readEvent(t, conn, EventError)
	assert.Equal(t, "unknown message type: dance", ev.Payload)
}

func TestHub_RejectsOtherUsers(t *testing.T) {
	h := newHarness(t)
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return([]core.DayAvailability{}, nil)
	id := h.open(t, "s1")

	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	_, resp, err := dialWizard(t, srv, id, "intruder")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHub_CloseRoomDisconnects(t *testing.T) {
	h := newHarness(t)
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return([]core.DayAvailability{}, nil)
	id := h.open(t, "s1")

	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	conn, _, err := dialWizard(t, srv, id, "s1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	readEvent(t, conn, EventState)
	require.Eventually(t, func() bool { return h.hub.Subscribers(id) == 1 }, time.Second, 10*time.Millisecond)

	res := h.do(t, http.MethodDelete, "/api/v1/wizards/"+id, "s1", nil)
	require.Equal(t, http.StatusNoContent, res.code)

	readEvent(t, conn, EventClosed)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Eventually(t, func() bool { return h.hub.Subscribers(id) == 0 }, time.Second, 10*time.Millisecond)
}
