package market

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptStreamFollowsFile(t *testing.T) {
	transcriptPath := filepath.Join(t.TempDir(), "job-1.log")
	require.NoError(t, os.WriteFile(transcriptPath, []byte("pulling image\n"), 0644))

	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrade.Upgrade(w, r, nil)
		require.NoError(t, err)
		NewWsClient(conn).HandleTranscript(transcriptPath)
		close(done)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	readLine := func() string {
		t.Helper()
		for {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
			_, data, err := conn.ReadMessage()
			require.NoError(t, err)
			if string(data) != PingMsg {
				return string(data)
			}
		}
	}

	assert.Equal(t, "pulling image", readLine())

	// lines appended while the stream is open are picked up
	f, err := os.OpenFile(transcriptPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("rendered 120 frames\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, "rendered 120 frames", readLine())

	// the streamer stops once the reader goes away
	require.NoError(t, conn.Close())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transcript streamer kept running after the reader closed")
	}
}
