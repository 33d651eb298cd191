package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wealthforge/network/internal/feed"
)

// Subscribe dials the server's message-feed WebSocket for the
// conversation named by the filter pair and adapts it to a feed
// subscription. The server already filters by conversation; the filter
// is applied again locally as a guard.
func (c *Client) Subscribe(ctx context.Context, filter feed.Filter) (*feed.Subscription, error) {
	c.mu.Lock()
	token := c.token
	self := c.current
	c.mu.Unlock()
	if token == "" || self == nil {
		return nil, fmt.Errorf("subscribe: not signed in")
	}

	peer := filter.PairA
	if peer == self.UserID.String() {
		peer = filter.PairB
	}

	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/messages/ws?with=" + peer
	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial message feed: %w", err)
	}

	out := make(chan feed.Event, 16)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			conn.Close()
		})
	}

	// The server pings on an interval; each ping refreshes the read
	// deadline so an idle but healthy socket stays open.
	const readWait = 90 * time.Second
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(10*time.Second))
	})

	go func() {
		defer close(out)
		defer cancel()
		for {
			var event feed.Event
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(readWait))
			if !filter.Matches(event) {
				continue
			}
			select {
			case out <- event:
			case <-done:
				return
			default:
			}
		}
	}()

	return feed.NewSubscription(out, cancel), nil
}
