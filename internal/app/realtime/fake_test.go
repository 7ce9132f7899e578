package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
)

var errDialRefused = errors.New("dial refused")

type published struct {
	dest string
	body string
}

// fakeConn is an in-memory core.PubSubConn that records every call in order.
type fakeConn struct {
	mu        sync.Mutex
	next      int
	subs      map[string]string
	calls     []string
	pubs      []published
	inbound   chan core.Inbound
	done      chan struct{}
	closeOnce sync.Once
	// breakOn makes a Publish to that destination drop the connection.
	breakOn string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		subs:    map[string]string{},
		inbound: make(chan core.Inbound, 32),
		done:    make(chan struct{}),
	}
}

func (f *fakeConn) Subscribe(dest string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("sub-%d", f.next)
	f.subs[id] = dest
	f.calls = append(f.calls, "subscribe "+dest)
	return id, nil
}

func (f *fakeConn) Unsubscribe(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "unsubscribe "+f.subs[id])
	delete(f.subs, id)
	return nil
}

func (f *fakeConn) Publish(dest string, body core.Frame) error {
	f.mu.Lock()
	if f.breakOn != "" && dest == f.breakOn {
		f.mu.Unlock()
		f.drop()
		return errors.New("connection reset")
	}
	defer f.mu.Unlock()
	select {
	case <-f.done:
		return errors.New("closed")
	default:
	}
	f.calls = append(f.calls, "publish "+dest)
	f.pubs = append(f.pubs, published{dest: dest, body: string(body)})
	return nil
}

func (f *fakeConn) Inbound() <-chan core.Inbound { return f.inbound }
func (f *fakeConn) Done() <-chan struct{}        { return f.done }

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.calls = append(f.calls, "close")
		f.mu.Unlock()
		close(f.done)
	})
	return nil
}

// drop simulates the transport going away underneath the channel.
func (f *fakeConn) drop() {
	f.closeOnce.Do(func() { close(f.done) })
}

// push delivers body as if broadcast on dest under its subscription id.
func (f *fakeConn) push(dest, body string) {
	f.mu.Lock()
	sub := ""
	for id, d := range f.subs {
		if d == dest {
			sub = id
		}
	}
	f.mu.Unlock()
	f.inbound <- core.Inbound{Subscription: sub, Destination: dest, Body: core.Frame(body)}
}

func (f *fakeConn) published(dest string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.pubs {
		if p.dest == dest {
			out = append(out, p.body)
		}
	}
	return out
}

func (f *fakeConn) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeConn) subscriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.subs))
	for _, d := range f.subs {
		out = append(out, d)
	}
	return out
}

// fakeDialer hands out a fresh fakeConn per Dial. While refuse is set every
// dial fails; while block is set Dial waits for ctx. The first breakConns
// connections drop on a Publish to breakOn.
type fakeDialer struct {
	mu         sync.Mutex
	refuse     bool
	block      bool
	breakOn    string
	breakConns int
	conns      []*fakeConn
	who        []domain.ParticipantIdentity
	dials      int
}

func (d *fakeDialer) Dial(ctx context.Context, who domain.ParticipantIdentity) (core.PubSubConn, error) {
	d.mu.Lock()
	d.dials++
	d.who = append(d.who, who)
	refuse, block := d.refuse, d.block
	d.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if refuse {
		return nil, errDialRefused
	}
	c := newFakeConn()
	d.mu.Lock()
	if len(d.conns) < d.breakConns {
		c.breakOn = d.breakOn
	}
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) setRefuse(v bool) {
	d.mu.Lock()
	d.refuse = v
	d.mu.Unlock()
}

func (d *fakeDialer) setBlock(v bool) {
	d.mu.Lock()
	d.block = v
	d.mu.Unlock()
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func (d *fakeDialer) identities() []domain.ParticipantIdentity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.ParticipantIdentity(nil), d.who...)
}
