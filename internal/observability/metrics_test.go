package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerReportsRooms(t *testing.T) {
	rooms := 3
	m := NewMetrics(func() int { return rooms })

	m.ConnectedClients.Inc()
	m.ConnectedClients.Inc()
	m.EventsRelayed.WithLabelValues("attack").Inc()
	m.JoinsRejected.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "relay_active_rooms 3")
	assert.Contains(t, body, "relay_connected_clients 2")
	assert.Contains(t, body, `relay_events_relayed_total{event="attack"} 1`)
	assert.Contains(t, body, "relay_joins_rejected_total 1")
}

func TestMetricsRoomGaugeTracksRegistry(t *testing.T) {
	rooms := 0
	m := NewMetrics(func() int { return rooms })

	rooms = 7
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), "relay_active_rooms 7")
}
