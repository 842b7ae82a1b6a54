package imapclient

import (
	"bytes"
	"fmt"

	"github.com/mailwire/imap/internal/engine"
	"github.com/mailwire/imap/internal/imapwire"
)

// renameCommand 是 RENAME 命令提交给 engine.Handler 时的负载：引擎
// 本身不理解它的字段，只会原样把它交还给 engineEncoder。
type renameCommand struct {
	Mailbox string
	NewName string
}

// idleStart 是 IDLE 命令提交给 engine.Handler 时的负载：它没有任何
// 字段，线格式永远是 "<tag> IDLE\r\n"，不含字面量。
type idleStart struct{}

// startTLSPayload 是 STARTTLS 命令提交给 engine.Handler 时的负载：
// 同样没有字段、没有字面量，线格式是 "<tag> STARTTLS\r\n"。
type startTLSPayload struct{}

// engineEncoder 把提交给 engine.Handler 的命令负载翻译成带字面量
// 边界的字节块，供 Handler 按服务器的续请求节奏逐块释放。
type engineEncoder struct{}

func (engineEncoder) Encode(item engine.Item, caps engine.Capabilities) (engine.EncodedCommand, error) {
	switch it := item.(type) {
	case engine.TaggedCommand:
		return encodeTaggedCommand(it, caps)
	case engine.IdleDone:
		return engine.EncodedCommand{Chunks: []engine.Chunk{[]byte("DONE\r\n")}}, nil
	default:
		return engine.EncodedCommand{}, fmt.Errorf("imapclient: 引擎编码器不认识这个条目: %T", item)
	}
}

func encodeTaggedCommand(tc engine.TaggedCommand, caps engine.Capabilities) (engine.EncodedCommand, error) {
	switch cmd := tc.Command.(type) {
	case renameCommand:
		return encodeRename(tc.Tag, cmd, caps)
	case idleStart:
		return engine.EncodedCommand{Chunks: []engine.Chunk{[]byte(tc.Tag + " IDLE\r\n")}}, nil
	case startTLSPayload:
		return engine.EncodedCommand{Chunks: []engine.Chunk{[]byte(tc.Tag + " STARTTLS\r\n")}}, nil
	default:
		return engine.EncodedCommand{}, fmt.Errorf("imapclient: 引擎编码器不认识这个命令负载: %T", tc.Command)
	}
}

func encodeRename(tag string, cmd renameCommand, caps engine.Capabilities) (engine.EncodedCommand, error) {
	var b chunkBuilder
	b.writeString(tag)
	b.writeByte(' ')
	b.writeString("RENAME")
	b.writeByte(' ')
	b.writeMailbox(cmd.Mailbox, caps)
	b.writeByte(' ')
	b.writeMailbox(cmd.NewName, caps)
	b.writeString("\r\n")
	return engine.EncodedCommand{Chunks: b.finish()}, nil
}

// chunkBuilder 拼装 engine.EncodedCommand 的字节块：每当一个同步
// 字面量的头部写完，就在此处切出一个块边界，让 Handler 得以在服务器
// 发来续请求之前暂停写入。
type chunkBuilder struct {
	cur    bytes.Buffer
	chunks []engine.Chunk
}

func (b *chunkBuilder) writeString(s string) { b.cur.WriteString(s) }
func (b *chunkBuilder) writeByte(c byte)      { b.cur.WriteByte(c) }

func (b *chunkBuilder) boundary() {
	chunk := make(engine.Chunk, b.cur.Len())
	copy(chunk, b.cur.Bytes())
	b.chunks = append(b.chunks, chunk)
	b.cur.Reset()
}

func (b *chunkBuilder) finish() []engine.Chunk {
	b.boundary()
	return b.chunks
}

// writeMailbox 写出一个邮箱名：能用带引号字符串表达就用带引号字符串，
// 否则改走字面量。caps.NonSyncLiteral 为 true 时字面量以非同步形式
// 写出（"{N+}\r\n"，无需边界）；否则以同步形式写出（"{N}\r\n"），
// 随即切出一个块边界，等待服务器续请求之后才能写出负载。
func (b *chunkBuilder) writeMailbox(name string, caps engine.Capabilities) {
	name = imapwire.DecodeMailboxName(name)
	if imapwire.CanUseQuoted(name, false) {
		b.cur.Write(imapwire.AppendQuoted(nil, name))
		return
	}

	size := len(name)
	header := fmt.Sprintf("{%d", size)
	if caps.NonSyncLiteral {
		header += "+"
	}
	header += "}\r\n"
	b.writeString(header)
	if !caps.NonSyncLiteral {
		b.boundary()
	}
	b.writeString(name)
}
