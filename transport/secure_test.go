package transport_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/fake"
	"github.com/momentics/hioload-reactor/transport"
)

type manualExecutor struct {
	tasks []func()
}

func (e *manualExecutor) Submit(task func()) error {
	e.tasks = append(e.tasks, task)
	return nil
}

func (e *manualExecutor) NumWorkers() int { return 1 }

func (e *manualExecutor) runAll() {
	for len(e.tasks) > 0 {
		task := e.tasks[0]
		e.tasks = e.tasks[1:]
		task()
	}
}

func bindSecure(tr *transport.SecureTransport, flow api.FlowControl) *fake.TransportContext {
	ctx := fake.NewTransportContext(flow)
	ctx.OnClose = tr.DidClose
	tr.SetTransportContext(ctx)
	return ctx
}

func expectFlow(t *testing.T, step string, ctx *fake.TransportContext, want api.FlowControl) {
	t.Helper()
	if got := ctx.FlowControl(); got != want {
		t.Fatalf("%s: flow = %v, want %v", step, got, want)
	}
}

// TestSecureScriptedHandshake walks need-wrap, need-unwrap, need-task and
// finished, checking flow control after each step.
func TestSecureScriptedHandshake(t *testing.T) {
	eng := fake.NewEngine(api.HandshakeNeedWrap)
	eng.ScriptWrap(fake.EngineStep{Produce: []byte("client-hello"), Handshake: api.HandshakeNeedUnwrap})
	eng.ScriptUnwrap(
		fake.EngineStep{Consume: -1, Handshake: api.HandshakeNeedTask, AfterTask: api.HandshakeNeedUnwrap},
		fake.EngineStep{Consume: -1, Handshake: api.HandshakeFinished},
	)
	s := &fake.Socket{}
	tr := transport.NewSecureClientTransport(fake.NewChannel(5), eng, s)
	ctx := bindSecure(tr, api.FlowConnect)

	if err := tr.DoConnect(); err != nil {
		t.Fatalf("DoConnect: %v", err)
	}
	if !eng.Begun() || s.Count("did-connect") != 1 {
		t.Fatal("connect should begin the handshake")
	}
	expectFlow(t, "need-wrap", ctx, api.FlowReadWrite)

	tr.DoWrite()
	if string(tr.WriteBuffer().Bytes()) != "client-hello" {
		t.Fatalf("write buffer = %q", tr.WriteBuffer().Bytes())
	}
	expectFlow(t, "need-unwrap", ctx, api.FlowRead)

	tr.ReadBuffer().Write([]byte("server-hello"))
	tr.DoRead()
	if eng.TasksRun() != 1 {
		t.Fatalf("delegated tasks run = %d", eng.TasksRun())
	}
	expectFlow(t, "need-task", ctx, api.FlowRead)

	tr.ReadBuffer().Write([]byte("server-finished"))
	tr.DoRead()
	expectFlow(t, "finished", ctx, api.FlowReadWrite)
	if s.Count("did-secure") != 0 || tr.IsSecure() {
		t.Fatal("finished must not be acknowledged before the next engine call")
	}

	tr.WriteBuffer().Reset()
	tr.DoWrite()
	if s.Count("did-secure") != 1 || !tr.IsSecure() {
		t.Fatalf("events = %v", s.Events())
	}
	expectFlow(t, "acknowledged", ctx, api.FlowRead)

	tr.DoWrite()
	tr.DoRead()
	if s.Count("did-secure") != 1 {
		t.Fatal("did-secure fired more than once")
	}
}

func openSecure(t *testing.T) (*transport.SecureTransport, *fake.Engine, *fake.Socket, *fake.TransportContext) {
	t.Helper()
	eng := fake.NewEngine(api.HandshakeNeedWrap)
	eng.ScriptWrap(fake.EngineStep{Produce: []byte("hello"), Handshake: api.HandshakeFinished})
	s := &fake.Socket{}
	tr := transport.NewSecureServerTransport(fake.NewChannel(6), eng, s)
	ctx := bindSecure(tr, api.FlowRead)
	tr.DoWrite()
	if !tr.IsSecure() {
		t.Fatal("handshake did not complete")
	}
	tr.WriteBuffer().Reset()
	return tr, eng, s, ctx
}

func TestSecureWriteFinishedAcknowledgesImmediately(t *testing.T) {
	_, _, s, ctx := openSecure(t)
	if s.Count("did-secure") != 1 {
		t.Fatalf("events = %v", s.Events())
	}
	expectFlow(t, "acknowledged", ctx, api.FlowRead)
}

func TestSecureSteadyState(t *testing.T) {
	tr, _, s, _ := openSecure(t)

	s.Send([]byte("ping"))
	tr.DoWrite()
	if string(tr.WriteBuffer().Bytes()) != "ping" {
		t.Fatalf("ciphertext = %q", tr.WriteBuffer().Bytes())
	}
	tr.DidWrite()
	if s.Count("did-write") != 1 {
		t.Fatal("DidWrite not forwarded once open")
	}

	tr.ReadBuffer().Write([]byte("pong"))
	tr.DoRead()
	if string(s.Received()) != "pong" {
		t.Fatalf("plaintext = %q", s.Received())
	}
	if tr.ReadBuffer().Len() != 0 {
		t.Fatal("ciphertext left in the read buffer")
	}
}

func TestSecureLocalClose(t *testing.T) {
	tr, eng, s, ctx := openSecure(t)

	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if !eng.OutboundClosed() || ctx.CloseCount() != 0 {
		t.Fatal("close should start with the closing alert")
	}
	expectFlow(t, "closing", ctx, api.FlowReadWrite)

	tr.DoWrite()
	if string(tr.WriteBuffer().Bytes()) != string(fake.CloseAlert) {
		t.Fatalf("ciphertext = %q", tr.WriteBuffer().Bytes())
	}
	if ctx.CloseCount() != 0 {
		t.Fatal("closed before the alert was flushed")
	}
	tr.DidWrite()
	if ctx.CloseCount() != 1 || s.Count("did-disconnect") != 1 {
		t.Fatalf("closes=%d events=%v", ctx.CloseCount(), s.Events())
	}
}

func TestSecurePeerClose(t *testing.T) {
	tr, eng, s, ctx := openSecure(t)

	tr.ReadBuffer().Write(fake.CloseAlert)
	tr.DoRead()
	if !eng.OutboundClosed() {
		t.Fatal("peer alert should close outbound")
	}
	expectFlow(t, "closing", ctx, api.FlowReadWrite)

	tr.DoWrite()
	tr.DidWrite()
	if ctx.CloseCount() != 1 || s.Count("did-disconnect") != 1 {
		t.Fatalf("closes=%d events=%v", ctx.CloseCount(), s.Events())
	}
}

func TestSecureCloseBeforeOpen(t *testing.T) {
	eng := fake.NewEngine(api.HandshakeNeedUnwrap)
	s := &fake.Socket{}
	tr := transport.NewSecureServerTransport(fake.NewChannel(6), eng, s)
	ctx := bindSecure(tr, api.FlowRead)

	tr.Close()
	if eng.OutboundClosed() || ctx.CloseCount() != 1 {
		t.Fatal("an unopened session closes the channel directly")
	}
}

func TestSecureOverflowIsFatal(t *testing.T) {
	eng := fake.NewEngine(api.HandshakeNeedUnwrap)
	eng.ScriptUnwrap(fake.EngineStep{Status: api.EngineBufferOverflow, Handshake: api.HandshakeNeedUnwrap})
	s := &fake.Socket{}
	tr := transport.NewSecureServerTransport(fake.NewChannel(6), eng, s)
	ctx := bindSecure(tr, api.FlowRead)

	tr.ReadBuffer().Write([]byte("record"))
	tr.DoRead()
	errs := s.Errors()
	if len(errs) != 1 || !errors.Is(errs[0], api.ErrBufferOverflow) {
		t.Fatalf("errors = %v", errs)
	}
	if ctx.CloseCount() != 1 {
		t.Fatal("overflow should close the connection")
	}
}

func TestSecureWrapOverflowWaitsForDrain(t *testing.T) {
	tr, eng, s, ctx := openSecure(t)
	tr.WriteBuffer().Write([]byte("queued"))
	eng.ScriptWrap(fake.EngineStep{Status: api.EngineBufferOverflow, Handshake: api.NotHandshaking})

	s.Send([]byte("ping"))
	tr.DoWrite()
	if errs := s.Errors(); len(errs) != 0 || ctx.CloseCount() != 0 {
		t.Fatalf("overflow with a pending write buffer failed the connection: %v", errs)
	}
	if string(tr.WriteBuffer().Bytes()) != "queued" {
		t.Fatalf("ciphertext = %q", tr.WriteBuffer().Bytes())
	}

	tr.WriteBuffer().Reset()
	tr.DoWrite()
	if string(tr.WriteBuffer().Bytes()) != "ping" {
		t.Fatalf("ciphertext after drain = %q", tr.WriteBuffer().Bytes())
	}
}

func TestSecureWrapOverflowOnEmptyBufferIsFatal(t *testing.T) {
	tr, eng, s, ctx := openSecure(t)
	eng.ScriptWrap(fake.EngineStep{Status: api.EngineBufferOverflow, Handshake: api.NotHandshaking})

	s.Send([]byte("ping"))
	tr.DoWrite()
	errs := s.Errors()
	if len(errs) != 1 || !errors.Is(errs[0], api.ErrBufferOverflow) {
		t.Fatalf("errors = %v", errs)
	}
	if ctx.CloseCount() != 1 {
		t.Fatal("an empty write buffer that cannot fit a record should close")
	}
}

func TestSecureUnderflowWaits(t *testing.T) {
	eng := fake.NewEngine(api.HandshakeNeedUnwrap)
	eng.ScriptUnwrap(fake.EngineStep{Status: api.EngineBufferUnderflow, Handshake: api.HandshakeNeedUnwrap})
	tr := transport.NewSecureServerTransport(fake.NewChannel(6), eng, &fake.Socket{})
	ctx := bindSecure(tr, api.FlowRead)

	tr.ReadBuffer().Write([]byte("par"))
	tr.DoRead()
	if _, unwraps := eng.Calls(); unwraps != 1 {
		t.Fatalf("unwrap called %d times, want 1", unwraps)
	}
	expectFlow(t, "underflow", ctx, api.FlowRead)
	if ctx.CloseCount() != 0 {
		t.Fatal("underflow must not close")
	}
}

func TestSecureOffloadedTasks(t *testing.T) {
	exec := &manualExecutor{}
	eng := fake.NewEngine(api.HandshakeNeedUnwrap)
	eng.ScriptUnwrap(fake.EngineStep{Consume: -1, Handshake: api.HandshakeNeedTask, AfterTask: api.HandshakeNeedWrap})
	tr := transport.NewSecureServerTransport(fake.NewChannel(6), eng, &fake.Socket{}, transport.WithTaskExecutor(exec))
	ctx := bindSecure(tr, api.FlowRead)

	tr.ReadBuffer().Write([]byte("client-hello"))
	tr.DoRead()
	if eng.TasksRun() != 0 || len(exec.tasks) != 1 {
		t.Fatal("delegated task should be submitted, not run inline")
	}
	expectFlow(t, "paused", ctx, api.FlowWait)

	exec.runAll()
	if eng.TasksRun() != 1 {
		t.Fatalf("tasks run = %d", eng.TasksRun())
	}
	expectFlow(t, "resumed", ctx, api.FlowReadWrite)
}

func TestSecureEngineError(t *testing.T) {
	boom := errors.New("bad record mac")
	eng := fake.NewEngine(api.HandshakeNeedUnwrap)
	eng.ScriptUnwrap(fake.EngineStep{Err: boom})
	s := &fake.Socket{}
	tr := transport.NewSecureServerTransport(fake.NewChannel(6), eng, s)
	ctx := bindSecure(tr, api.FlowRead)

	tr.ReadBuffer().Write([]byte("junk"))
	tr.DoRead()
	if errs := s.Errors(); len(errs) != 1 || errs[0] != boom {
		t.Fatalf("errors = %v", errs)
	}
	if ctx.CloseCount() != 1 {
		t.Fatal("engine error should close")
	}
}
