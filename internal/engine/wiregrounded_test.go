package engine

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/mailwire/imap/internal/imapwire"
)

// wireGroundedCommand 和 testCommand 形状相同，但 wireGroundedEncoder
// 的编码决策不自己判断一个参数该不该加引号——它直接委托给
// internal/imapwire.CanUseQuoted/AppendQuoted，也就是 imapclient 的
// engineEncoder 实际用来编码 RENAME 的同一对函数。fakeEncoder 的
// needsLiteral 只检查 CR/LF，这里补上对生产环境判定规则本身的覆盖：
// NUL、非 ASCII 字节（未启用 UTF8=ACCEPT 时）同样必须触发字面量，而
// 空字符串仍然可以合法地写成空的带引号字符串。
type wireGroundedCommand struct {
	name string
	args []string
}

type wireGroundedEncoder struct{}

func (wireGroundedEncoder) Encode(item Item, caps Capabilities) (EncodedCommand, error) {
	tc, ok := item.(TaggedCommand)
	if !ok {
		return EncodedCommand{}, fmt.Errorf("wireGroundedEncoder: unsupported item %T", item)
	}
	cmd, ok := tc.Command.(wireGroundedCommand)
	if !ok {
		return EncodedCommand{}, fmt.Errorf("wireGroundedEncoder: unsupported command %T", tc.Command)
	}
	return encodeWireGroundedCommand(tc.Tag, cmd), nil
}

// encodeWireGroundedCommand 构造 "<tag> <name> <args...>\r\n"，对每个
// 参数先问 imapwire.CanUseQuoted 能不能走带引号形式，不能才改走同步
// 字面量，在字面量头部之后切一次块边界。
func encodeWireGroundedCommand(tag string, cmd wireGroundedCommand) EncodedCommand {
	var cur bytes.Buffer
	var chunks []Chunk

	cur.WriteString(tag)
	cur.WriteString(" ")
	cur.WriteString(cmd.name)

	for _, arg := range cmd.args {
		cur.WriteString(" ")
		if imapwire.CanUseQuoted(arg, false) {
			cur.Write(imapwire.AppendQuoted(nil, arg))
			continue
		}
		cur.WriteString(fmt.Sprintf("{%d}\r\n", len(arg)))
		chunks = append(chunks, Chunk(append([]byte(nil), cur.Bytes()...)))
		cur.Reset()
		cur.WriteString(arg)
	}
	cur.WriteString("\r\n")
	chunks = append(chunks, Chunk(append([]byte(nil), cur.Bytes()...)))

	return EncodedCommand{Chunks: chunks}
}

func newWireGroundedHandler() (*Handler, *recordingTransport) {
	rt := &recordingTransport{}
	h := New(wireGroundedEncoder{}, nil, rt.write, rt.deliver)
	return h, rt
}

// TestWireGroundedQuotedPreferredWhenLegal 覆盖决定性的平局规则：能用
// 带引号字符串表达的参数必须用带引号字符串，即使它含有空格或需要
// 转义的引号/反斜杠字符——这些都不是 CanUseQuoted 的拒绝理由。
func TestWireGroundedQuotedPreferredWhenLegal(t *testing.T) {
	h, rt := newWireGroundedHandler()

	future, err := h.Submit(TaggedCommand{
		Tag:     "a",
		Command: wireGroundedCommand{name: "RENAME", args: []string{`a "quoted" \name`, "plain"}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := `a RENAME "a \"quoted\" \\name" "plain"` + "\r\n"
	if got := joined(rt); got != want {
		t.Fatalf("wire = %q, want %q", got, want)
	}
	if err := future.Wait(); err != nil {
		t.Fatalf("future: %v", err)
	}
}

// TestWireGroundedNULForcesLiteral 覆盖 spec §4.1 的保留八位字节
// 之一：NUL。fakeEncoder.needsLiteral 只认 CR/LF，会把这个参数错误地
// 当作可加引号；真正的 imapwire.CanUseQuoted 必须把它判成不合法，
// 逼出一个同步字面量。
func TestWireGroundedNULForcesLiteral(t *testing.T) {
	h, rt := newWireGroundedHandler()

	arg := "a\x00b"
	future, err := h.Submit(TaggedCommand{
		Tag:     "a",
		Command: wireGroundedCommand{name: "RENAME", args: []string{arg}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got, want := joined(rt), fmt.Sprintf("a RENAME {%d}\r\n", len(arg)); got != want {
		t.Fatalf("wire after submit = %q, want %q", got, want)
	}

	h.HandleContinuationRequest("OK")
	if got, want := joined(rt), fmt.Sprintf("a RENAME {%d}\r\n", len(arg))+arg+"\r\n"; got != want {
		t.Fatalf("wire after continuation = %q, want %q", got, want)
	}
	if err := future.Wait(); err != nil {
		t.Fatalf("future: %v", err)
	}
}

// TestWireGroundedNonASCIIForcesLiteralWithoutUTF8 覆盖 ASTRING-CHAR
// 之外的字节：没有协商 UTF8=ACCEPT 时，非 ASCII 字节不能出现在带
// 引号字符串里，必须改走字面量。
func TestWireGroundedNonASCIIForcesLiteralWithoutUTF8(t *testing.T) {
	h, rt := newWireGroundedHandler()

	arg := "café"
	future, err := h.Submit(TaggedCommand{
		Tag:     "a",
		Command: wireGroundedCommand{name: "RENAME", args: []string{arg}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got, want := joined(rt), fmt.Sprintf("a RENAME {%d}\r\n", len(arg)); got != want {
		t.Fatalf("wire after submit = %q, want %q", got, want)
	}

	h.HandleContinuationRequest("OK")
	if err := future.Wait(); err != nil {
		t.Fatalf("future: %v", err)
	}
}

// TestWireGroundedEmptyArgIsQuotedNotLiteral 覆盖空字符串：一个空
// astring 仍然是合法的带引号字符串 ""，不需要字面量。
func TestWireGroundedEmptyArgIsQuotedNotLiteral(t *testing.T) {
	h, rt := newWireGroundedHandler()

	future, err := h.Submit(TaggedCommand{
		Tag:     "a",
		Command: wireGroundedCommand{name: "RENAME", args: []string{""}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := `a RENAME ""` + "\r\n"
	if got := joined(rt); got != want {
		t.Fatalf("wire = %q, want %q (empty astring needs no literal)", got, want)
	}
	if err := future.Wait(); err != nil {
		t.Fatalf("future: %v", err)
	}
}
