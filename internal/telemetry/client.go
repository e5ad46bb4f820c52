package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	pubResolution = 100 * time.Millisecond
	pingInterval  = 200 * time.Millisecond
	pongWait      = pingInterval * 4
	writeWait     = 1 * time.Second
	closeGrace    = 1 * time.Second
)

var upgrader = websocket.Upgrader{}

// Snapshot is one cycle's worth of subscribed AdditionalOutputs, keyed by
// "cyclerName.path".
type Snapshot map[string]interface{}

// subscriptionMessage is what a connected viewer sends to narrow which
// cyclers' keys it wants to receive; an absent or empty Cyclers list means
// "everything this server has".
type subscriptionMessage struct {
	Cyclers []string `json:"cyclers"`
}

// client owns one websocket connection for its lifetime: a dedicated
// subscriber handle into the broadcaster, a goroutine that reads filter
// updates from the peer, and a single writer loop that owns every write to
// the socket — pings and snapshots alike — so the two never race for the
// connection the way splitting them across independent goroutines would.
type client struct {
	ws      *websocket.Conn
	sub     *subscriberHandle
	rootCtx context.Context
}

func newClient(b *broadcaster, w http.ResponseWriter, r *http.Request) (*client, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}
	return &client{
		ws:      ws,
		sub:     b.Subscribe(),
		rootCtx: r.Context(),
	}, nil
}

// Serve runs the client's read and write loops until the peer disconnects,
// the server context is cancelled, or an unrecoverable socket error occurs.
func (cli *client) Serve() error {
	defer cli.sub.Close()
	defer cli.close()

	group, groupCtx := errgroup.WithContext(cli.rootCtx)
	group.Go(func() error { return cli.readSubscriptions(groupCtx) })
	group.Go(func() error { return cli.writeLoop(groupCtx) })
	return group.Wait()
}

// readSubscriptions is the connection's sole reader: it both services
// incoming filter updates and, by blocking on ReadJSON, drives the pong
// handler that keeps the read deadline extended.
func (cli *client) readSubscriptions(ctx context.Context) error {
	cli.ws.SetPongHandler(func(string) error {
		return cli.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	if err := cli.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}

	for {
		var msg subscriptionMessage
		if err := cli.ws.ReadJSON(&msg); err != nil {
			return err
		}
		cli.sub.SetFilter(msg.Cyclers)
	}
}

// writeLoop is the connection's sole writer: it alternates pings against
// pingInterval with snapshot flushes against pubResolution, draining both
// the subscriber's direct channel and any coalesced backlog on every flush
// so a burst of updates a slow peer missed arrives merged rather than lost.
func (cli *client) writeLoop(ctx context.Context) error {
	pinger := time.NewTicker(pingInterval)
	defer pinger.Stop()
	publisher := time.NewTicker(pubResolution)
	defer publisher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger.C:
			if err := cli.writeControl(websocket.PingMessage); err != nil {
				return err
			}
		case <-publisher.C:
			snap, ok := cli.sub.Drain()
			if !ok {
				continue
			}
			if err := cli.writeSnapshot(snap); err != nil {
				return err
			}
		}
	}
}

func (cli *client) writeControl(messageType int) error {
	err := cli.ws.WriteControl(messageType, nil, time.Now().Add(writeWait))
	if err != nil && isUnexpectedClose(err) {
		return fmt.Errorf("telemetry: control write failed: %w", err)
	}
	return nil
}

func (cli *client) writeSnapshot(snap Snapshot) error {
	if err := cli.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("telemetry: set write deadline: %w", err)
	}
	if err := cli.ws.WriteJSON(snap); err != nil {
		if isUnexpectedClose(err) {
			return fmt.Errorf("telemetry: publish failed: %w", err)
		}
		return err
	}
	return nil
}

func (cli *client) close() {
	_ = cli.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = cli.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGrace)
	_ = cli.ws.Close()
}

func isUnexpectedClose(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}
