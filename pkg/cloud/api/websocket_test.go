package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwelling79/pumpwatch/pkg/models"
)

func TestFeedHubBroadcast(t *testing.T) {
	hub := NewFeedHub()

	srv := httptest.NewServer(http.HandlerFunc(hub.Register))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	defer func() {
		assert.NoError(t, resp.Body.Close())
		assert.NoError(t, conn.Close())
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	records := []models.AnomalyRecord{{PumpID: 101, Severity: models.SeverityHigh}}
	hub.Broadcast(records)

	var got []models.AnomalyRecord
	require.NoError(t, conn.ReadJSON(&got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(101), got[0].PumpID)
}

func TestFeedHubConcurrentBroadcasts(t *testing.T) {
	hub := NewFeedHub()

	srv := httptest.NewServer(http.HandlerFunc(hub.Register))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	defer func() {
		assert.NoError(t, resp.Body.Close())
		assert.NoError(t, conn.Close())
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	const broadcasts = 8

	var wg sync.WaitGroup

	for i := 0; i < broadcasts; i++ {
		wg.Add(1)

		go func(pumpID int64) {
			defer wg.Done()
			hub.Broadcast([]models.AnomalyRecord{{PumpID: pumpID}})
		}(int64(i))
	}

	wg.Wait()

	// Every broadcast arrives as an intact frame and the client is
	// still connected afterward.
	for i := 0; i < broadcasts; i++ {
		var got []models.AnomalyRecord
		require.NoError(t, conn.ReadJSON(&got))
		require.Len(t, got, 1)
	}

	assert.Equal(t, 1, hub.ClientCount())
}

func TestFeedHubDropsClosedClients(t *testing.T) {
	hub := NewFeedHub()

	srv := httptest.NewServer(http.HandlerFunc(hub.Register))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 10*time.Millisecond)
}
