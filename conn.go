package dbus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Conn methods once the connection has been
// closed, and by in-flight calls that were waiting on a reply when Close
// was called.
var ErrClosed = errors.New("dbus: connection is closed")

// ErrCallTimeout is returned by CallMethod when no reply arrives within
// the call's timeout.
var ErrCallTimeout = errors.New("dbus: method call timed out")

// methodCallSub is a registered filter for inbound method calls, per
// Conn.MethodCalls.
type methodCallSub struct {
	id        uint64
	path      *Pattern
	iface     *Pattern
	member    *Pattern
	ch        chan *Message
}

func (s *methodCallSub) matches(h *Header) bool {
	if s.path != nil && !s.path.matches(h.Path) {
		return false
	}
	if s.iface != nil && !s.iface.matches(h.Interface) {
		return false
	}
	if s.member != nil && !s.member.matches(h.Member) {
		return false
	}
	return true
}

// signalSub is a registered filter for inbound signals, keyed by the
// MatchRule it was constructed from; multiple subs may share a rule
// string, in which case AddMatch/RemoveMatch is ref-counted across them.
type signalSub struct {
	id   uint64
	rule MatchRule
	ch   chan *Message
}

// Conn is a live D-Bus session: one Unix socket, one demultiplexing
// goroutine fanning inbound messages out to reply waiters and
// subscribers, and a serial allocator for outbound method calls.
//
// Grounded on the teacher's Client/New/nextMsgSerial for connection
// lifecycle and serial allocation, and on the bluetalk dbus package's
// Conn.readLoop/pending-map shape for demultiplexing and reply
// correlation, generalized from a single hardcoded Hello+ListUnits
// exchange into an arbitrary method-call/signal session.
type Conn struct {
	conf   Config
	socket net.Conn
	reader *bufio.Reader

	guid    string
	busName string

	serial uint32

	writeMu sync.Mutex

	mu           sync.Mutex
	closing      bool
	closeErr     error
	replyWaiters map[uint32]chan *Message
	methodSubs   []*methodCallSub
	signalSubs   []*signalSub
	matchRefs    map[string]int
	nextSubID    uint64

	doneCh chan struct{}
}

// Dial connects to the session bus by default, authenticates, sends
// Hello, starts the demultiplexer, and returns a ready Conn.
func Dial(opts ...Option) (*Conn, error) {
	conf := newConfig(opts)

	addr := conf.address
	if addr == "" {
		if conf.systemBus {
			addr = systemBusAddress()
		} else {
			addr = sessionBusAddress()
		}
	}

	socket, err := dialAddress(addr)
	if err != nil {
		return nil, fmt.Errorf("dbus: dial: %w", err)
	}

	rd := bufio.NewReaderSize(socket, conf.readBufSize)
	guid, err := authenticateExternal(socket, rd, conf.authTimeout)
	if err != nil {
		socket.Close()
		return nil, err
	}

	c := newConn(conf, socket, rd, guid)

	name, err := c.Hello(context.Background())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("dbus: hello: %w", err)
	}
	c.busName = name

	return c, nil
}

// newConn builds a Conn around an already-open, already-authenticated
// socket and starts its demultiplexer. Split out of Dial so tests can
// drive a Conn over a fake net.Conn (net.Pipe) without a real bus or
// auth handshake.
func newConn(conf Config, socket net.Conn, rd *bufio.Reader, guid string) *Conn {
	c := &Conn{
		conf:         conf,
		socket:       socket,
		reader:       rd,
		guid:         guid,
		replyWaiters: make(map[uint32]chan *Message),
		matchRefs:    make(map[string]int),
		doneCh:       make(chan struct{}),
	}
	go c.demultiplex()
	return c
}

// BusName returns the unique connection name assigned by Hello.
func (c *Conn) BusName() string { return c.busName }

// nextSerial returns the next outbound message serial. 0 is never
// produced, matching the teacher's nextMsgSerial wraparound handling.
func (c *Conn) nextSerial() uint32 {
	s := atomic.AddUint32(&c.serial, 1)
	if s == 0 {
		s = atomic.AddUint32(&c.serial, 1)
	}
	return s
}

// Close idempotently tears the session down: it marks the connection as
// closing, wakes every blocked CallMethod with ErrClosed, closes every
// subscriber channel, and closes the socket. Calls made after Close
// returns fail with ErrClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	for _, ch := range c.replyWaiters {
		close(ch)
	}
	c.replyWaiters = nil
	for _, s := range c.methodSubs {
		close(s.ch)
	}
	c.methodSubs = nil
	for _, s := range c.signalSubs {
		close(s.ch)
	}
	c.signalSubs = nil
	c.mu.Unlock()

	err := c.socket.Close()
	<-c.doneCh
	return err
}

func (c *Conn) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// send marshals and writes msg, serializing writers the way the teacher
// serializes its encode+decode pair with a single mutex (here only the
// write half needs it, since reads happen exclusively on demultiplex).
func (c *Conn) send(msg *Message) error {
	if c.isClosing() {
		return ErrClosed
	}
	buf, err := writeMessage(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.socket.Write(buf)
	return err
}

// CallMethod sends a method call and blocks until the matching reply
// arrives, ctx is done, or timeout elapses (timeout <= 0 uses the
// Conn's configured default, itself defaulting to DefaultCallTimeout).
// On a method_return the body is returned; on an error reply the error
// name and first string argument (if any) are folded into the returned
// error.
func (c *Conn) CallMethod(ctx context.Context, timeout time.Duration, dest, path, iface, member string, args ...Value) ([]Value, error) {
	if timeout <= 0 {
		timeout = c.conf.callTimeout
	}

	serial := c.nextSerial()
	msg := &Message{
		Header: Header{
			Type:        TypeMethodCall,
			Serial:      serial,
			Path:        path,
			Interface:   iface,
			Member:      member,
			Destination: dest,
		},
		Body: args,
	}

	ch := make(chan *Message, 1)
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.replyWaiters[serial] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.replyWaiters, serial)
		c.mu.Unlock()
	}()

	if err := c.send(msg); err != nil {
		return nil, fmt.Errorf("dbus: call %s.%s: %w", iface, member, err)
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case reply, ok := <-ch:
		if !ok || reply == nil {
			return nil, ErrClosed
		}
		if reply.Header.Type == TypeError {
			return nil, replyToError(reply)
		}
		return reply.Body, nil
	case <-cctx.Done():
		if cctx.Err() == context.DeadlineExceeded {
			return nil, ErrCallTimeout
		}
		return nil, cctx.Err()
	}
}

// CallError is the error surfaced when a method call receives a
// well-formed reply of type error: the error name (e.g.
// "org.freedesktop.DBus.Error.UnknownMethod", or an arbitrary vendor
// name) is kept programmatically inspectable rather than folded into an
// opaque string, per the error-handling design in spec §7.
type CallError struct {
	Name    string
	Message string
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dbus: %s", e.Name)
	}
	return fmt.Sprintf("dbus: %s: %s", e.Name, e.Message)
}

func replyToError(reply *Message) error {
	ce := &CallError{Name: reply.Header.ErrorName}
	if len(reply.Body) > 0 {
		if s, ok := reply.Body[0].(stringValue); ok {
			ce.Message = string(s)
		}
	}
	return ce
}

// SendReply sends a method_return in response to call, whose header
// supplies the reply serial and destination (the caller of the original
// method call).
func (c *Conn) SendReply(call *Message, body ...Value) error {
	reply := &Message{
		Header: Header{
			Type:           TypeMethodReturn,
			Serial:         c.nextSerial(),
			HasReplySerial: true,
			ReplySerial:    call.Header.Serial,
			Destination:    call.Header.Sender,
		},
		Body: body,
	}
	return c.send(reply)
}

// SendError sends an error reply in response to call.
func (c *Conn) SendError(call *Message, errName, errMsg string) error {
	reply := &Message{
		Header: Header{
			Type:           TypeError,
			Serial:         c.nextSerial(),
			HasReplySerial: true,
			ReplySerial:    call.Header.Serial,
			Destination:    call.Header.Sender,
			ErrorName:      errName,
		},
		Body: []Value{String(errMsg)},
	}
	return c.send(reply)
}

// EmitSignal sends a signal message; it has no destination and expects
// no reply.
func (c *Conn) EmitSignal(path, iface, member string, args ...Value) error {
	msg := &Message{
		Header: Header{
			Type:      TypeSignal,
			Serial:    c.nextSerial(),
			Flags:     Flags(FlagNoReplyExpected),
			Path:      path,
			Interface: iface,
			Member:    member,
		},
		Body: args,
	}
	return c.send(msg)
}

// MethodCalls registers a subscription for inbound method calls whose
// path/interface/member match the given patterns (a nil pattern matches
// everything for that element). It returns a channel of matching calls
// and a detach function; each inbound call is delivered to every
// matching subscription, and a call matching none gets an automatic
// UnknownMethod error reply.
func (c *Conn) MethodCalls(path, iface, member *Pattern) (<-chan *Message, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	sub := &methodCallSub{id: c.nextSubID, path: path, iface: iface, member: member, ch: make(chan *Message, 16)}
	c.methodSubs = append(c.methodSubs, sub)
	detach := func() { c.detachMethodCallSub(sub.id) }
	return sub.ch, detach
}

func (c *Conn) detachMethodCallSub(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.methodSubs {
		if s.id == id {
			close(s.ch)
			c.methodSubs = append(c.methodSubs[:i], c.methodSubs[i+1:]...)
			return
		}
	}
}

// Signals registers a subscription for inbound signals matching rule.
// On the first subscriber for a given rule string, AddMatch is sent to
// the bus; a failure there is logged (or silently dropped if it failed
// because the connection is closing) but does not prevent local
// delivery of signals that happen to match anyway. The detach function
// sends RemoveMatch once the last subscriber for that rule string
// detaches.
func (c *Conn) Signals(rule MatchRule) (<-chan *Message, func()) {
	ruleStr := rule.String()

	c.mu.Lock()
	c.nextSubID++
	sub := &signalSub{id: c.nextSubID, rule: rule, ch: make(chan *Message, 16)}
	c.signalSubs = append(c.signalSubs, sub)
	firstRef := c.matchRefs[ruleStr] == 0
	c.matchRefs[ruleStr]++
	c.mu.Unlock()

	if firstRef {
		if err := c.AddMatch(context.Background(), ruleStr); err != nil {
			if !c.isClosing() {
				c.conf.logger.Printf("dbus: AddMatch(%q) failed: %v", ruleStr, err)
			}
		}
	}

	detach := func() { c.detachSignalSub(sub.id, ruleStr) }
	return sub.ch, detach
}

func (c *Conn) detachSignalSub(id uint64, ruleStr string) {
	c.mu.Lock()
	lastRef := false
	for i, s := range c.signalSubs {
		if s.id == id {
			close(s.ch)
			c.signalSubs = append(c.signalSubs[:i], c.signalSubs[i+1:]...)
			break
		}
	}
	if c.matchRefs[ruleStr] > 0 {
		c.matchRefs[ruleStr]--
		if c.matchRefs[ruleStr] == 0 {
			delete(c.matchRefs, ruleStr)
			lastRef = true
		}
	}
	c.mu.Unlock()

	if lastRef {
		if err := c.RemoveMatch(context.Background(), ruleStr); err != nil {
			if !c.isClosing() {
				c.conf.logger.Printf("dbus: RemoveMatch(%q) failed: %v", ruleStr, err)
			}
		}
	}
}

// demultiplex is the single reader goroutine: it buffers partial reads
// across socket Read calls the way the spec requires, decodes complete
// messages, and dispatches each to reply waiters, method-call
// subscribers, or signal subscribers.
func (c *Conn) demultiplex() {
	defer close(c.doneCh)
	defer c.drainWaitersOnExit()

	var buf []byte
	chunk := make([]byte, c.conf.readBufSize)

	for {
		n, err := c.reader.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			return
		}

		for {
			msgLen, ok, perr := peekMessageLen(buf)
			if perr != nil {
				c.conf.logger.Printf("dbus: invalid message framing: %v", perr)
				return
			}
			if !ok {
				break
			}
			msg, _, derr := decodeMessage(buf[:msgLen])
			if derr != nil {
				// msgLen is known from the fixed-offset prologue fields
				// alone (peekMessageLen never parses header fields), so
				// it is trustworthy even when unmarshalHeader itself
				// failed; advancing by it, not by decodeMessage's
				// consumed count (0 on a header failure), is what keeps
				// a single malformed message from wedging the reader on
				// it forever.
				c.conf.logger.Printf("dbus: dropping malformed message: %v", derr)
				buf = buf[msgLen:]
				continue
			}
			buf = buf[msgLen:]
			c.dispatch(msg)
		}
	}
}

func (c *Conn) drainWaitersOnExit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return
	}
	c.closing = true
	// A later Close sees closing already set and returns early, so the
	// socket is closed here when the reader stops on its own.
	c.socket.Close()
	for _, ch := range c.replyWaiters {
		close(ch)
	}
	c.replyWaiters = nil
	for _, s := range c.methodSubs {
		close(s.ch)
	}
	c.methodSubs = nil
	for _, s := range c.signalSubs {
		close(s.ch)
	}
	c.signalSubs = nil
}

// dispatch fans an inbound message out to whatever is waiting for it.
// Every send below happens with c.mu still held: Close and
// drainWaitersOnExit close these same channels under c.mu, so holding
// the lock across the send (rather than looking the channel up,
// unlocking, then sending) is what keeps a send from ever racing a
// close of the same channel.
func (c *Conn) dispatch(msg *Message) {
	switch msg.Header.Type {
	case TypeMethodReturn, TypeError:
		if !msg.Header.HasReplySerial {
			return
		}
		c.mu.Lock()
		ch := c.replyWaiters[msg.Header.ReplySerial]
		if ch != nil {
			ch <- msg
		}
		c.mu.Unlock()
	case TypeMethodCall:
		c.dispatchMethodCall(msg)
	case TypeSignal:
		c.mu.Lock()
		for _, s := range c.signalSubs {
			if s.rule.Matches(msg) {
				s.ch <- msg
			}
		}
		c.mu.Unlock()
	}
}

func (c *Conn) dispatchMethodCall(msg *Message) {
	c.mu.Lock()
	var matched []*methodCallSub
	for _, s := range c.methodSubs {
		if s.matches(&msg.Header) {
			matched = append(matched, s)
		}
	}
	if len(matched) == 0 {
		c.mu.Unlock()
		if msg.Header.Flags.has(FlagNoReplyExpected) {
			return
		}
		if err := c.SendError(msg, "org.freedesktop.DBus.Error.UnknownMethod",
			fmt.Sprintf("Method %q on interface %q doesn't exist", msg.Header.Member, msg.Header.Interface)); err != nil {
			c.conf.logger.Printf("dbus: sending UnknownMethod reply: %v", err)
		}
		return
	}
	for _, s := range matched {
		s.ch <- msg
	}
	c.mu.Unlock()
}
