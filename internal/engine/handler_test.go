package engine

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// testCommand 是 fakeEncoder 使用的不透明 Command 负载。它只模拟了
// RENAME/LOGIN 命令形态中足以驱动分块/队列/模式逻辑的部分：每个参数
// 都会被加引号，除非它包含 CR、LF，这种情况下会变成字面量。这个简化
// 判定只用于本文件里和分块/队列时序相关的测试；真正的带引号/字面量
// 平局规则（NUL、非 ASCII、空 astring）由 wiregrounded_test.go 里直接
// 调用 internal/imapwire.CanUseQuoted/AppendQuoted 的 wireGroundedEncoder
// 覆盖。
type testCommand struct {
	name string
	args []string
}

type fakeEncoder struct{}

func (fakeEncoder) Encode(item Item, caps Capabilities) (EncodedCommand, error) {
	switch it := item.(type) {
	case IdleDone:
		return EncodedCommand{Chunks: []Chunk{[]byte("DONE\r\n")}}, nil
	case ContinuationResponse:
		return EncodedCommand{Chunks: []Chunk{append(append([]byte(nil), it.Data...), "\r\n"...)}}, nil
	case TaggedCommand:
		cmd, ok := it.Command.(testCommand)
		if !ok {
			return EncodedCommand{}, errors.New("fakeEncoder: unsupported command")
		}
		return encodeTestCommand(it.Tag, cmd), nil
	default:
		return EncodedCommand{}, errors.New("fakeEncoder: unsupported item")
	}
}

func needsLiteral(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

// encodeTestCommand 构造 "<tag> <name> <args...>\r\n"，在每个字面量
// 边界处切分成块。
func encodeTestCommand(tag string, cmd testCommand) EncodedCommand {
	var cur bytes.Buffer
	var chunks []Chunk

	cur.WriteString(tag)
	cur.WriteString(" ")
	cur.WriteString(cmd.name)

	for _, arg := range cmd.args {
		cur.WriteString(" ")
		if needsLiteral(arg) {
			cur.WriteString("{")
			cur.WriteString(itoa(len(arg)))
			cur.WriteString("}\r\n")
			chunks = append(chunks, Chunk(append([]byte(nil), cur.Bytes()...)))
			cur.Reset()
			cur.WriteString(arg)
		} else {
			cur.WriteString(`"`)
			cur.WriteString(arg)
			cur.WriteString(`"`)
		}
	}
	cur.WriteString("\r\n")
	chunks = append(chunks, Chunk(append([]byte(nil), cur.Bytes()...)))

	return EncodedCommand{Chunks: chunks}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

// recordingTransport 按顺序记录每个写到下游的块和每个投递给上层的
// 事件。
type recordingTransport struct {
	writes   []string
	events   []InboundEvent
	writeErr error
}

func (rt *recordingTransport) write(p []byte) error {
	if rt.writeErr != nil {
		return rt.writeErr
	}
	rt.writes = append(rt.writes, string(p))
	return nil
}

func (rt *recordingTransport) deliver(ev InboundEvent) {
	rt.events = append(rt.events, ev)
}

func newTestHandler() (*Handler, *recordingTransport) {
	rt := &recordingTransport{}
	h := New(fakeEncoder{}, nil, rt.write, rt.deliver)
	return h, rt
}

func joined(rt *recordingTransport) string {
	return strings.Join(rt.writes, "")
}

// 没有字面量的命令一经写出就立即让其完成信号就绪。
func TestBasicCommand(t *testing.T) {
	h, rt := newTestHandler()

	future, err := h.Submit(TaggedCommand{Tag: "a", Command: testCommand{name: "LOGIN", args: []string{"foo", "bar"}}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	want := `a LOGIN "foo" "bar"` + "\r\n"
	if got := joined(rt); got != want {
		t.Fatalf("wire = %q, want %q", got, want)
	}

	h.HandleResponse(Response{Tag: "a", Payload: "OK ok"})

	if err := future.Wait(); err != nil {
		t.Fatalf("future: %v", err)
	}
	if len(rt.events) != 1 {
		t.Fatalf("expected exactly one upstream event, got %d", len(rt.events))
	}
	re, ok := rt.events[0].(ResponseEvent)
	if !ok || re.Response.Tag != "a" {
		t.Fatalf("unexpected event %#v", rt.events[0])
	}
}

// 带一个字面量的命令会等待一次续请求。
func TestOneLiteral(t *testing.T) {
	h, rt := newTestHandler()

	future, err := h.Submit(TaggedCommand{Tag: "x", Command: testCommand{name: "RENAME", args: []string{"\n", "to"}}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got, want := joined(rt), "x RENAME {1}\r\n"; got != want {
		t.Fatalf("wire after submit = %q, want %q", got, want)
	}

	h.HandleContinuationRequest("OK")
	if got, want := joined(rt), "x RENAME {1}\r\n"+"\n \"to\"\r\n"; got != want {
		t.Fatalf("wire after continuation = %q, want %q", got, want)
	}

	select {
	case err := <-future.done:
		if err != nil {
			t.Fatalf("future resolved with error: %v", err)
		}
	default:
		t.Fatalf("future should already be resolved once the final chunk is released")
	}

	h.HandleResponse(Response{Tag: "x"})
}

// 带两个字面量的命令会依次等待两次续请求。
func TestTwoLiteralsOneCommand(t *testing.T) {
	h, rt := newTestHandler()

	future, _ := h.Submit(TaggedCommand{Tag: "x", Command: testCommand{name: "RENAME", args: []string{"\n", "\r"}}})
	h.HandleContinuationRequest("OK")
	h.HandleContinuationRequest("OK")

	want := "x RENAME {1}\r\n" + "\n {1}\r\n" + "\r\r\n"
	if got := joined(rt); got != want {
		t.Fatalf("wire = %q, want %q", got, want)
	}

	if err := future.Wait(); err != nil {
		t.Fatalf("future: %v", err)
	}
}

// 连续排队的两个带字面量命令不能交错：第二个命令的第一个块只有在
// 第一个命令完全结束之后才会发出。
func TestTwoCommandsEnqueued(t *testing.T) {
	h, rt := newTestHandler()

	futX, _ := h.Submit(TaggedCommand{Tag: "x", Command: testCommand{name: "RENAME", args: []string{"\n", "to"}}})
	futY, _ := h.Submit(TaggedCommand{Tag: "y", Command: testCommand{name: "RENAME", args: []string{"from", "\n"}}})

	if got, want := joined(rt), "x RENAME {1}\r\n"; got != want {
		t.Fatalf("wire after two submits = %q, want %q", got, want)
	}

	h.HandleContinuationRequest("OK")

	want := "x RENAME {1}\r\n" + "\n \"to\"\r\n" + `y RENAME "from" {1}` + "\r\n"
	if got := joined(rt); got != want {
		t.Fatalf("wire after first continuation = %q, want %q", got, want)
	}
	if err := futX.Wait(); err != nil {
		t.Fatalf("futX: %v", err)
	}

	h.HandleContinuationRequest("OK")
	want += "\n\r\n"
	if got := joined(rt); got != want {
		t.Fatalf("wire after second continuation = %q, want %q", got, want)
	}

	h.HandleResponse(Response{Tag: "x"})
	h.HandleResponse(Response{Tag: "y"})
	if err := futY.Wait(); err != nil {
		t.Fatalf("futY: %v", err)
	}
}

// 没有任何待解锁内容的续请求会被上报为错误，但不会拆毁处理器。
func TestUnexpectedContinuationRequest(t *testing.T) {
	h, rt := newTestHandler()

	future, _ := h.Submit(TaggedCommand{Tag: "x", Command: testCommand{name: "RENAME", args: []string{"\n", "to"}}})

	h.HandleContinuationRequest("OK")
	h.HandleContinuationRequest("OK") // 第二次没有任何待解锁内容

	want := "x RENAME {1}\r\n" + "\n \"to\"\r\n"
	if got := joined(rt); got != want {
		t.Fatalf("wire = %q, want %q (the queued chunk must still be emitted)", got, want)
	}

	if len(rt.events) != 1 {
		t.Fatalf("expected exactly one error event, got %d: %#v", len(rt.events), rt.events)
	}
	errEv, ok := rt.events[0].(ErrorEvent)
	if !ok || errEv.Err.Kind != KindUnexpectedContinuationRequest {
		t.Fatalf("unexpected event %#v", rt.events[0])
	}

	h.HandleResponse(Response{Tag: "x"})
	if err := future.Wait(); err != nil {
		t.Fatalf("future: %v", err)
	}
	if h.Mode() != ModeResponses {
		t.Fatalf("handler should remain usable after a recoverable error")
	}
}

// IDLE 和 AUTHENTICATE 都会进入一个期待续请求的模式，原样向上转发
// 续请求，并各自通过自己独特的完成信号回到正常命令流量。
func TestIdleThenAuthenticate(t *testing.T) {
	h, rt := newTestHandler()

	idleFuture, err := h.Submit(TaggedCommand{Tag: "1", Command: testCommand{name: "IDLE"}, EntersMode: ModeIdle})
	if err != nil {
		t.Fatalf("submit idle: %v", err)
	}
	if err := idleFuture.Wait(); err != nil {
		t.Fatalf("idle future: %v", err)
	}
	if h.Mode() != ModeIdle {
		t.Fatalf("mode = %v, want ModeIdle", h.Mode())
	}

	h.HandleContinuationRequest("hello")
	h.HandleContinuationRequest("again")
	if len(rt.events) != 2 {
		t.Fatalf("expected two forwarded continuation requests, got %d", len(rt.events))
	}
	for _, ev := range rt.events {
		if _, ok := ev.(ContinuationRequestEvent); !ok {
			t.Fatalf("unexpected event %#v", ev)
		}
	}

	if _, err := h.Submit(TaggedCommand{Tag: "2", Command: testCommand{name: "NOOP"}}); err == nil {
		t.Fatalf("submitting a regular command during IDLE must fail synchronously")
	}

	if _, err := h.Submit(IdleDone{}); err != nil {
		t.Fatalf("idle-done: %v", err)
	}
	if got, want := joined(rt), "1 IDLE\r\nDONE\r\n"; got != want {
		t.Fatalf("wire = %q, want %q", got, want)
	}
	if h.Mode() != ModeResponses {
		t.Fatalf("mode after DONE = %v, want ModeResponses", h.Mode())
	}

	authFuture, err := h.Submit(TaggedCommand{
		Tag:        "A001",
		Command:    testCommand{name: "AUTHENTICATE", args: []string{"GSSAPI"}},
		EntersMode: ModeAuthenticating,
	})
	if err != nil {
		t.Fatalf("submit authenticate: %v", err)
	}
	if err := authFuture.Wait(); err != nil {
		t.Fatalf("authenticate future: %v", err)
	}
	if h.Mode() != ModeAuthenticating {
		t.Fatalf("mode = %v, want ModeAuthenticating", h.Mode())
	}

	h.HandleContinuationRequest("")
	if len(rt.events) != 3 {
		t.Fatalf("expected empty continuation forwarded, got %d events", len(rt.events))
	}

	if _, err := h.Submit(ContinuationResponse{Data: []byte("AGlwAHRlc3Q=")}); err != nil {
		t.Fatalf("continuation response: %v", err)
	}
	if !strings.HasSuffix(joined(rt), "AGlwAHRlc3Q=\r\n") {
		t.Fatalf("wire should end with the base64 continuation payload, got %q", joined(rt))
	}

	h.HandleResponse(Response{Tag: "A001", Payload: "OK GSSAPI authentication successful"})
	if h.Mode() != ModeResponses {
		t.Fatalf("mode after tagged AUTHENTICATE response = %v, want ModeResponses", h.Mode())
	}
}

// TestConnectionClosedFailsPending 覆盖第五种错误类别：下游写入
// 失败会让所有待处理的完成信号都失败。
func TestConnectionClosedFailsPending(t *testing.T) {
	rt := &recordingTransport{writeErr: errors.New("broken pipe")}
	h := New(fakeEncoder{}, nil, rt.write, rt.deliver)

	future, err := h.Submit(TaggedCommand{Tag: "a", Command: testCommand{name: "NOOP"}})
	if err == nil {
		t.Fatalf("expected a write error")
	}
	var engErr *Error
	if !errors.As(err, &engErr) || engErr.Kind != KindConnectionClosed {
		t.Fatalf("unexpected error kind: %v", err)
	}
	if werr := future.Wait(); werr == nil {
		t.Fatalf("future should also be failed")
	}
}

// TestEncodeFailureOnlyFailsSubmission 覆盖第四种错误类别：无关
// 提交上的编码失败不会影响队列。
func TestEncodeFailureOnlyFailsSubmission(t *testing.T) {
	h, rt := newTestHandler()

	good, err := h.Submit(TaggedCommand{Tag: "x", Command: testCommand{name: "RENAME", args: []string{"\n", "to"}}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	bad, err := h.Submit(TaggedCommand{Tag: "y", Command: "not-a-testCommand"})
	if err == nil {
		t.Fatalf("expected encode failure")
	}
	var engErr *Error
	if !errors.As(err, &engErr) || engErr.Kind != KindEncodeFailure {
		t.Fatalf("unexpected error kind: %v", err)
	}
	if werr := bad.Wait(); werr == nil {
		t.Fatalf("bad submission's future should also fail")
	}

	// 更早的、仍在进行中的提交不应受到影响。
	h.HandleContinuationRequest("OK")
	if err := good.Wait(); err != nil {
		t.Fatalf("good future: %v", err)
	}
	if got, want := joined(rt), "x RENAME {1}\r\n"+"\n \"to\"\r\n"; got != want {
		t.Fatalf("wire = %q, want %q", got, want)
	}
}
