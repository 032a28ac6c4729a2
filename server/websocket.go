package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/obsfarm/farmd/common/log"
)

const (
	configMaxSession     = 10
	configSessionBacklog = 32
)

func Upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

type wsSession struct {
	c  *websocket.Conn
	ch chan *RewardPaidEvent
}

type wsSessionManager struct {
	sync.Mutex
	log        log.Logger
	maxSession int
	sessions   []*wsSession
}

func newWSSessionManager(logger log.Logger) *wsSessionManager {
	return &wsSessionManager{
		log:        logger.WithFields(log.Fields{log.FieldKeyModule: "ws"}),
		maxSession: configMaxSession,
	}
}

func (wm *wsSessionManager) NewSession(c *websocket.Conn) *wsSession {
	wm.Lock()
	defer wm.Unlock()

	if len(wm.sessions) >= wm.maxSession {
		return nil
	}
	wss := &wsSession{
		c:  c,
		ch: make(chan *RewardPaidEvent, configSessionBacklog),
	}
	wm.sessions = append(wm.sessions, wss)
	return wss
}

func (wm *wsSessionManager) stopSessionAt(i int) {
	wss := wm.sessions[i]
	if wss.c != nil {
		wss.c.Close()
		wss.c = nil
		close(wss.ch)
	}
	last := len(wm.sessions) - 1
	wm.sessions[i] = wm.sessions[last]
	wm.sessions[last] = nil
	wm.sessions = wm.sessions[:last]
}

func (wm *wsSessionManager) StopSession(wss *wsSession) {
	wm.Lock()
	defer wm.Unlock()

	for i := 0; i < len(wm.sessions); i++ {
		if wss == wm.sessions[i] {
			wm.stopSessionAt(i)
			return
		}
	}
}

func (wm *wsSessionManager) StopAllSessions() {
	wm.Lock()
	defer wm.Unlock()

	for len(wm.sessions) > 0 {
		wm.stopSessionAt(0)
	}
}

// Broadcast queues the event to every session. Sessions too slow to drain
// their backlog miss the event instead of blocking the ledger.
func (wm *wsSessionManager) Broadcast(ev *RewardPaidEvent) {
	wm.Lock()
	defer wm.Unlock()

	for _, wss := range wm.sessions {
		select {
		case wss.ch <- ev:
		default:
			wm.log.Warnf("session backlog full, dropping event")
		}
	}
}

func (wm *wsSessionManager) RunEventSession(ctx echo.Context) error {
	upgrader := Upgrader()
	c, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return err
	}

	wss := wm.NewSession(c)
	if wss == nil {
		c.Close()
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many stream sessions")
	}
	defer wm.StopSession(wss)

	closed := make(chan struct{})
	go func() {
		// the read loop only detects the peer going away
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				close(closed)
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-wss.ch:
			if !ok {
				return nil
			}
			if err := c.WriteJSON(ev); err != nil {
				return nil
			}
		case <-closed:
			return nil
		}
	}
}
