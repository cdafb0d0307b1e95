package session

import (
	"context"
	"sync"
	"testing"

	"github.com/room4-2/speechwire/protocol"
	"github.com/room4-2/speechwire/transport"
)

// fakeTransport replays queued messages and records sent ones. Once the
// queue is drained ReceiveMessage blocks until ctx is done.
type fakeTransport struct {
	mu     sync.Mutex
	queue  [][]byte
	sent   [][]byte
	closed bool
	err    error
}

func newFakeTransport(t *testing.T, frames ...protocol.Frame) *fakeTransport {
	t.Helper()
	ft := &fakeTransport{}
	for _, f := range frames {
		data, err := protocol.Marshal(f)
		if err != nil {
			t.Fatalf("marshal %s: %v", f, err)
		}
		ft.queue = append(ft.queue, data)
	}
	return ft
}

func (ft *fakeTransport) SendMessage(_ context.Context, data []byte) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.sent = append(ft.sent, append([]byte(nil), data...))
	return nil
}

func (ft *fakeTransport) ReceiveMessage(ctx context.Context) ([]byte, error) {
	ft.mu.Lock()
	if len(ft.queue) > 0 {
		data := ft.queue[0]
		ft.queue = ft.queue[1:]
		ft.mu.Unlock()
		return data, nil
	}
	err := ft.err
	ft.mu.Unlock()
	if err != nil {
		return nil, err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (ft *fakeTransport) Close() error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.closed = true
	return nil
}

func (ft *fakeTransport) remaining() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.queue)
}

var _ transport.Transport = (*fakeTransport)(nil)

func frontEnd(payload string) protocol.Frame {
	f := protocol.NewFrame(protocol.MsgTypeFrontEndResultServer, protocol.FlagNoSeq)
	f.Payload = []byte(payload)
	return f
}

func audio(seq int32, payload []byte) protocol.Frame {
	flag := protocol.FlagPositiveSeq
	if seq < 0 {
		flag = protocol.FlagNegativeSeq
	}
	f := protocol.NewFrame(protocol.MsgTypeAudioOnlyServer, flag)
	f.Sequence = seq
	if payload != nil {
		f.Payload = payload
	}
	return f
}

func errorFrame(code uint32, msg string) protocol.Frame {
	f := protocol.NewFrame(protocol.MsgTypeError, protocol.FlagNoSeq)
	f.ErrorCode = code
	f.Payload = []byte(msg)
	return f
}
