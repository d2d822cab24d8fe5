package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// WSTransport exchanges JSON frames over a websocket. One reader goroutine feeds Inbound, so
// frames arrive in the order the server wrote them.
type WSTransport struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	inbound chan Message

	writeMu sync.Mutex

	cancel  context.CancelFunc
	stopped chan struct{}

	errMu   sync.Mutex
	readErr error

	closeOnce sync.Once
}

// Dial connects to url (CHAT_WS_URL), authenticating with the bearer access token.
func Dial(ctx context.Context, url, accessToken string, logger *zap.Logger) (*WSTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if accessToken != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+accessToken)
	}
	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("chat: dial: %w", err)
	}
	readCtx, cancel := context.WithCancel(context.Background())
	t := &WSTransport{
		conn:    conn,
		logger:  logger,
		inbound: make(chan Message, 64),
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go t.readLoop(readCtx)
	return t, nil
}

func (t *WSTransport) readLoop(ctx context.Context) {
	defer close(t.stopped)
	defer close(t.inbound)
	for {
		var m Message
		if err := wsjson.Read(ctx, t.conn, &m); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if !errors.Is(err, context.Canceled) {
					t.logger.Warn("chat: read failed", zap.Error(err))
					t.errMu.Lock()
					t.readErr = err
					t.errMu.Unlock()
				}
			}
			return
		}
		select {
		case t.inbound <- m:
		case <-ctx.Done():
			return
		}
	}
}

// Send implements Transport. The message counts as delivered once the frame is written.
func (t *WSTransport) Send(ctx context.Context, m Message) error {
	select {
	case <-t.stopped:
		return ErrClosed
	default:
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := wsjson.Write(ctx, t.conn, m); err != nil {
		return fmt.Errorf("chat: send: %w", err)
	}
	return nil
}

// Inbound implements Transport.
func (t *WSTransport) Inbound() <-chan Message { return t.inbound }

// Err returns the error that stopped the reader, if it stopped abnormally.
func (t *WSTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.readErr
}

// Close closes the connection and waits for the reader to exit.
func (t *WSTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.conn.Close(websocket.StatusNormalClosure, "")
		t.cancel()
		<-t.stopped
	})
	return err
}

var _ Transport = (*WSTransport)(nil)
