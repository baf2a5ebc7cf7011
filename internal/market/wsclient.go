package market

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/gorilla/websocket"
)

const (
	PingMsg = "ping"

	tailPollInterval  = 300 * time.Millisecond
	keepAliveInterval = 3 * time.Second
)

var upgrade = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WsClient struct {
	client    *websocket.Conn
	message   chan wsMessage
	stopCh    chan struct{}
	closeOnce sync.Once
}

type wsMessage struct {
	data    []byte
	msgType int
}

func NewWsClient(client *websocket.Conn) *WsClient {
	wsClient := &WsClient{
		client:  client,
		message: make(chan wsMessage, 5),
		stopCh:  make(chan struct{}),
	}

	client.SetCloseHandler(func(code int, text string) error {
		wsClient.Close()
		return nil
	})

	return wsClient
}

func (ws *WsClient) Close() {
	ws.closeOnce.Do(func() {
		close(ws.stopCh)
		if ws.client != nil {
			ws.client.Close()
		}
	})
}

// HandleTranscript tails a job's transcript over the socket: content
// already on disk is replayed first, lines appended while the job is still
// running follow as they land. Returns once the reader side goes away.
func (ws *WsClient) HandleTranscript(transcriptPath string) {
	defer ws.Close()

	ws.readUntilGone()
	ws.writeLoop()
	ws.keepAlive()

	transcript, err := os.Open(transcriptPath)
	if err != nil {
		logs.GetLogger().Errorf("opening transcript %s: %v", transcriptPath, err)
		return
	}
	defer transcript.Close()

	var pending []byte
	buf := make([]byte, 4096)
	for {
		n, err := transcript.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				if !ws.send(pending[:i]) {
					return
				}
				pending = pending[i+1:]
			}
		}
		if err == nil {
			continue
		}
		if err != io.EOF {
			logs.GetLogger().Errorf("reading transcript %s: %v", transcriptPath, err)
			return
		}

		// caught up with what is on disk; flush any unterminated tail and
		// wait for the job to write more
		if len(pending) > 0 {
			if !ws.send(pending) {
				return
			}
			pending = pending[:0]
		}
		select {
		case <-time.After(tailPollInterval):
		case <-ws.stopCh:
			return
		}
	}
}

func (ws *WsClient) send(line []byte) bool {
	data := make([]byte, len(line))
	copy(data, line)
	select {
	case ws.message <- wsMessage{data: data, msgType: websocket.TextMessage}:
		return true
	case <-ws.stopCh:
		return false
	}
}

func (ws *WsClient) writeLoop() {
	go func() {
		for {
			select {
			case msg := <-ws.message:
				if err := ws.client.WriteMessage(msg.msgType, msg.data); err != nil {
					ws.Close()
					return
				}
			case <-ws.stopCh:
				return
			}
		}
	}()
}

// keepAlive pings so a reader that silently went away still surfaces as a
// write error.
func (ws *WsClient) keepAlive() {
	go func() {
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !ws.send([]byte(PingMsg)) {
					return
				}
			case <-ws.stopCh:
				return
			}
		}
	}()
}

// readUntilGone drains the reader side; the first read error means the
// peer closed or the connection broke, either way streaming is over.
func (ws *WsClient) readUntilGone() {
	go func() {
		for {
			if _, _, err := ws.client.ReadMessage(); err != nil {
				ws.Close()
				return
			}
		}
	}()
}
