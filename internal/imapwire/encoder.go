package imapwire

import (
	"bufio"
	"io"
	"strconv"

	"github.com/mailwire/imap"
)

// Encoder 把 IMAP 词法记号写到线上。它不了解命令或响应的语义，只
// 负责把原子、字符串、字面量等元素正确地序列化成字节。
type Encoder struct {
	w    *bufio.Writer
	side ConnSide
	err  error

	// QuotedUTF8 为 true 时，带引号字符串可以直接写出非 ASCII 字节
	// （由启用 UTF8=ACCEPT 之后的连接使用），否则非 ASCII 内容必须
	// 改走字面量。
	QuotedUTF8 bool

	// LiteralMinus 启用 RFC 7888 的 LITERAL-：4096 字节以内的字面量可以
	// 用非同步形式写出。
	LiteralMinus bool

	// LiteralPlus 启用 RFC 7888 的 LITERAL+：任意大小的字面量都可以
	// 用非同步形式写出。
	LiteralPlus bool

	// NewContinuationRequest 在 String 需要把内容改写成同步字面量时
	// 被调用，用来取得一个续请求。为 nil 时，String 的字面量回退
	// 总是以非同步形式写出。
	NewContinuationRequest func() *ContinuationRequest
}

// NewEncoder 创建一个写向 w 的 Encoder。
func NewEncoder(w *bufio.Writer, side ConnSide) *Encoder {
	return &Encoder{w: w, side: side}
}

// Err 返回遇到的第一个错误（如果有）。
func (e *Encoder) Err() error {
	return e.err
}

func (e *Encoder) setErr(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) writeString(s string) {
	if e.err != nil {
		return
	}
	if _, err := e.w.WriteString(s); err != nil {
		e.setErr(err)
	}
}

// Atom 写出一个原子。调用方负责确保 s 只包含合法的 atom 字符。
func (e *Encoder) Atom(s string) *Encoder {
	e.writeString(s)
	return e
}

// SP 写出一个空格分隔符。
func (e *Encoder) SP() *Encoder {
	e.writeString(" ")
	return e
}

// Special 写出一个单字节的特殊记号。
func (e *Encoder) Special(ch byte) *Encoder {
	if e.err != nil {
		return e
	}
	if err := e.w.WriteByte(ch); err != nil {
		e.setErr(err)
	}
	return e
}

// CRLF 写出一个行结束符。
func (e *Encoder) CRLF() error {
	e.writeString("\r\n")
	return e.err
}

// AppendQuoted 把 s 的带引号字符串表示（含转义）追加到 buf 并返回。
// 供需要提前拼装字节块、不能走 Encoder 阻塞式写入路径的调用方使用。
func AppendQuoted(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '"' || ch == '\\' {
			buf = append(buf, '\\')
		}
		buf = append(buf, ch)
	}
	return append(buf, '"')
}

// Quoted 写出一个带引号的字符串，必要时对引号和反斜杠进行转义。
func (e *Encoder) Quoted(s string) *Encoder {
	if e.err != nil {
		return e
	}
	buf := AppendQuoted(nil, s)
	e.writeString(string(buf))
	return e
}

// canUseQuoted 报告一个字符串能否以带引号的形式写出，而不必改走
// 字面量：内容中不能含有 CR、LF 或 NUL，非 ASCII 字节只有在
// QuotedUTF8 打开时才被允许。
func (e *Encoder) canUseQuoted(s string) bool {
	return CanUseQuoted(s, e.QuotedUTF8)
}

// CanUseQuoted 报告一个字符串能否以带引号的形式写出，而不必改走
// 字面量。调用方在需要自行拆分字面量块（例如驱动一个需要提前算好
// 块边界的外部引擎）而不能走 Encoder.String/Literal 的阻塞路径时，
// 用它复用同样的判定规则。
func CanUseQuoted(s string, quotedUTF8 bool) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\r' || ch == '\n' || ch == 0 {
			return false
		}
		if ch >= 0x80 && !quotedUTF8 {
			return false
		}
	}
	return true
}

// String 写出一个 IMAP string：能用带引号字符串表达就用带引号字符串，
// 否则改走一个立即写完的字面量（调用方如果需要同步字面量的续请求
// 语义，应直接调用 Literal）。
func (e *Encoder) String(s string) *Encoder {
	if e.canUseQuoted(s) {
		return e.Quoted(s)
	}

	size := int64(len(s))
	var contReq *ContinuationRequest
	if !e.canUseNonSyncLiteral(size) && e.NewContinuationRequest != nil {
		contReq = e.NewContinuationRequest()
	}

	wc := e.Literal(size, contReq)
	if wc == nil {
		return e
	}
	if _, err := io.WriteString(wc, s); err != nil {
		e.setErr(err)
		return e
	}
	if err := wc.Close(); err != nil {
		e.setErr(err)
	}
	return e
}

// canUseNonSyncLiteral 报告一个给定大小的字面量能否以非同步形式写出：
// LITERAL+ 不限制大小，LITERAL- 只允许 4096 字节以内。
func (e *Encoder) canUseNonSyncLiteral(size int64) bool {
	if e.LiteralPlus {
		return true
	}
	if e.LiteralMinus && size <= 4096 {
		return true
	}
	return false
}

// Literal 写出一个字面量头，并返回一个调用方可以流式写入负载的
// io.WriteCloser。
//
// contReq 为 nil 时，字面量以非同步形式写出（"{N+}\r\n"），负载可以
// 立即写入，不必等待服务器确认：调用方负责确保服务器确实支持
// LITERAL+ 或 LITERAL-（并且，对 LITERAL- 而言，size 不超过
// 4096 字节的协商上限）。contReq 非 nil 时，字面量以同步形式写出
// （"{N}\r\n"），Literal 会刷新缓冲区并阻塞，直到该续请求被满足。
func (e *Encoder) Literal(size int64, contReq *ContinuationRequest) io.WriteCloser {
	if e.err != nil {
		return nil
	}

	header := "{" + strconv.FormatInt(size, 10)
	if contReq == nil {
		header += "+"
	}
	header += "}"
	e.writeString(header)
	if err := e.CRLF(); err != nil {
		return nil
	}

	if contReq != nil {
		if err := e.w.Flush(); err != nil {
			e.setErr(err)
			return nil
		}
		if _, err := contReq.Wait(); err != nil {
			e.setErr(err)
			return nil
		}
	}

	return &literalWriter{enc: e}
}

type literalWriter struct {
	enc *Encoder
}

func (lw *literalWriter) Write(b []byte) (int, error) {
	if lw.enc.err != nil {
		return 0, lw.enc.err
	}
	n, err := lw.enc.w.Write(b)
	if err != nil {
		lw.enc.setErr(err)
	}
	return n, err
}

func (lw *literalWriter) Close() error {
	return lw.enc.err
}

// NIL 写出字面量 "NIL"。
func (e *Encoder) NIL() *Encoder {
	e.writeString("NIL")
	return e
}

// NString 写出一个 nstring：s 为 nil 时写 NIL，否则写一个 string。
func (e *Encoder) NString(s *string) *Encoder {
	if s == nil {
		return e.NIL()
	}
	return e.String(*s)
}

// Mailbox 写出一个邮箱名，INBOX 会被规整为标准拼写。
func (e *Encoder) Mailbox(name string) *Encoder {
	return e.String(DecodeMailboxName(name))
}

// Flag 写出一个标志。
func (e *Encoder) Flag(flag imap.Flag) *Encoder {
	return e.Atom(string(flag))
}

// Number 写出一个十进制数字。
func (e *Encoder) Number(n uint32) *Encoder {
	return e.Atom(strconv.FormatUint(uint64(n), 10))
}

// Number64 写出一个 64 位的十进制数字。
func (e *Encoder) Number64(n int64) *Encoder {
	return e.Atom(strconv.FormatInt(n, 10))
}

// MailboxAttr 写出一个邮箱列表属性。
func (e *Encoder) MailboxAttr(attr imap.MailboxAttr) *Encoder {
	return e.Atom(string(attr))
}

// UID 写出一个 UID 作为十进制数字。
func (e *Encoder) UID(uid imap.UID) *Encoder {
	return e.Number(uint32(uid))
}

// ModSeq 写出一个 64 位的 mod-sequence 值。
func (e *Encoder) ModSeq(modSeq uint64) *Encoder {
	e.writeString(strconv.FormatUint(modSeq, 10))
	return e
}

// NumSet 写出一个序列号或 UID 集合的线上表示。
func (e *Encoder) NumSet(set imap.NumSet) *Encoder {
	e.writeString(set.String())
	return e
}

// List 写出一个括号包裹的列表，其中 n 个元素由 writeElem 负责写出
// 单个成员，元素之间自动插入空格分隔符。
func (e *Encoder) List(n int, writeElem func(i int)) *Encoder {
	e.Special('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			e.SP()
		}
		writeElem(i)
	}
	e.Special(')')
	return e
}

// ListEncoder 帮助写出一个事先不知道元素个数的括号列表：调用方为每个
// 成员调用一次 Item，写完后调用 End。
type ListEncoder struct {
	enc   *Encoder
	empty bool
}

// BeginList 写出左括号，返回一个 ListEncoder 用于逐个写出列表成员。
func (e *Encoder) BeginList() *ListEncoder {
	e.Special('(')
	return &ListEncoder{enc: e, empty: true}
}

// Item 在必要时先写出分隔空格，然后返回底层 Encoder 供调用方写出
// 下一个列表成员。
func (l *ListEncoder) Item() *Encoder {
	if !l.empty {
		l.enc.SP()
	}
	l.empty = false
	return l.enc
}

// End 写出右括号，结束该列表。
func (l *ListEncoder) End() *Encoder {
	return l.enc.Special(')')
}

// Text 写出一段响应文本（不含前导空格或尾随 CRLF）。
func (e *Encoder) Text(s string) *Encoder {
	e.writeString(s)
	return e
}
