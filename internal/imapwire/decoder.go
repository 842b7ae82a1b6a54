package imapwire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mailwire/imap"
)

// Decoder 从线上读取 IMAP 词法记号。除非另有说明，所有返回 bool 的
// 方法都是“尝试读取”：失败时不产生错误，只返回 false，字节也不会
// 被消费。ExpectXxx 变体在失败时会把 Decoder 置于错误状态，后续所有
// 调用都立即返回 false，直到调用方通过新的 Decoder 或显式重置恢复。
type Decoder struct {
	r    *bufio.Reader
	side ConnSide
	err  error

	// CheckBufferedLiteralFunc 在读取一个同步字面量之前被调用，
	// 用来判断是否可以在不等待应用层介入的情况下，直接从已缓冲的
	// 数据里满足这个字面量（服务器侧用它来避免为小字面量往返一次
	// 续请求）。
	CheckBufferedLiteralFunc func(size int64) bool
}

// NewDecoder 创建一个新的 Decoder。
func NewDecoder(r *bufio.Reader, side ConnSide) *Decoder {
	return &Decoder{r: r, side: side}
}

// Err 返回遇到的第一个错误（如果有）。
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) setErr(err error) {
	if d.err == nil {
		d.err = err
	}
}

// EOF 返回底层读取器是否已经到达流末尾。
func (d *Decoder) EOF() bool {
	if d.err != nil {
		return true
	}
	_, err := d.r.Peek(1)
	return err != nil
}

func (d *Decoder) peekByte() (byte, bool) {
	if d.err != nil {
		return 0, false
	}
	b, err := d.r.Peek(1)
	if err != nil {
		return 0, false
	}
	return b[0], true
}

// Expect 把 ok 转换为一个带有上下文信息的错误；未满足时不消费任何
// 字节（调用方必须先自行消费）。
func (d *Decoder) Expect(ok bool, what string) bool {
	if !ok {
		d.setErr(&DecoderExpectError{Message: fmt.Sprintf("期望 %v", what)})
	}
	return ok
}

// Special 尝试消费一个特定的单字节记号（括号、方括号等）。
func (d *Decoder) Special(ch byte) bool {
	b, ok := d.peekByte()
	if !ok || b != ch {
		return false
	}
	d.r.Discard(1)
	return true
}

// ExpectSpecial 是 Special 的强制版本。
func (d *Decoder) ExpectSpecial(ch byte) bool {
	if !d.Special(ch) {
		d.setErr(&DecoderExpectError{Message: fmt.Sprintf("期望 %q", ch)})
		return false
	}
	return true
}

// SP 尝试消费一个空格。
func (d *Decoder) SP() bool {
	return d.Special(' ')
}

// ExpectSP 是 SP 的强制版本。
func (d *Decoder) ExpectSP() bool {
	if !d.SP() {
		d.setErr(&DecoderExpectError{Message: "期望一个空格"})
		return false
	}
	return true
}

// ExpectCRLF 消费一个 "\r\n" 行结束符。
func (d *Decoder) ExpectCRLF() bool {
	if !d.Special('\r') {
		d.setErr(&DecoderExpectError{Message: "期望 CR"})
		return false
	}
	if !d.Special('\n') {
		d.setErr(&DecoderExpectError{Message: "期望 LF"})
		return false
	}
	return true
}

// CRLF 尝试消费一个 "\r\n" 行结束符，不满足时不报错。
func (d *Decoder) CRLF() bool {
	if d.err != nil {
		return false
	}
	if !d.Special('\r') {
		return false
	}
	return d.Special('\n')
}

// Atom 尝试读取一个 atom，成功时把它写入 *ptr。
func (d *Decoder) Atom(ptr *string) bool {
	if d.err != nil {
		return false
	}
	var buf []byte
	for {
		b, ok := d.peekByte()
		if !ok || !IsAtomChar(b) {
			break
		}
		buf = append(buf, b)
		d.r.Discard(1)
	}
	if len(buf) == 0 {
		return false
	}
	*ptr = string(buf)
	return true
}

// ExpectAtom 是 Atom 的强制版本。
func (d *Decoder) ExpectAtom(ptr *string) bool {
	if !d.Atom(ptr) {
		d.setErr(&DecoderExpectError{Message: "期望一个 atom"})
		return false
	}
	return true
}

// Func 像 Atom 一样读取连续字节，但字符是否可以被接受由调用方提供的
// valid 谓词决定，而不是固定的 atom 字符集。
func (d *Decoder) Func(ptr *string, valid func(ch byte) bool) bool {
	if d.err != nil {
		return false
	}
	var buf []byte
	for {
		b, ok := d.peekByte()
		if !ok || !valid(b) {
			break
		}
		buf = append(buf, b)
		d.r.Discard(1)
	}
	if len(buf) == 0 {
		return false
	}
	*ptr = string(buf)
	return true
}

// readQuoted 读取一个带引号的字符串（引号内可以出现反斜杠转义）。
func (d *Decoder) readQuoted(ptr *string) bool {
	if !d.Special('"') {
		return false
	}
	var buf []byte
	for {
		b, ok := d.peekByte()
		if !ok {
			d.setErr(&DecoderExpectError{Message: "带引号字符串未终止"})
			return false
		}
		d.r.Discard(1)
		if b == '"' {
			*ptr = string(buf)
			return true
		}
		if b == '\\' {
			nb, ok := d.peekByte()
			if !ok {
				d.setErr(&DecoderExpectError{Message: "带引号字符串中的转义不完整"})
				return false
			}
			d.r.Discard(1)
			buf = append(buf, nb)
			continue
		}
		buf = append(buf, b)
	}
}

// Quoted 尝试读取一个带引号的字符串。
func (d *Decoder) Quoted(ptr *string) bool {
	if d.err != nil {
		return false
	}
	return d.readQuoted(ptr)
}

// ExpectLiteralHeader 读取 "{N}\r\n" 或 "{N+}\r\n" 形式的字面量头，
// 返回声明的大小；非同步字面量（"+" 后缀）不需要续请求即可继续。
func (d *Decoder) ExpectLiteralHeader() (size int64, nonSync bool, ok bool) {
	if !d.Special('{') {
		d.setErr(&DecoderExpectError{Message: "期望一个字面量"})
		return 0, false, false
	}
	var digits []byte
	for {
		b, peeked := d.peekByte()
		if !peeked || b < '0' || b > '9' {
			break
		}
		digits = append(digits, b)
		d.r.Discard(1)
	}
	if len(digits) == 0 {
		d.setErr(&DecoderExpectError{Message: "字面量缺少大小"})
		return 0, false, false
	}
	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		d.setErr(&DecoderExpectError{Message: "字面量大小非法", Err: err})
		return 0, false, false
	}
	if d.Special('+') {
		nonSync = true
	}
	if !d.ExpectSpecial('}') || !d.ExpectCRLF() {
		return 0, false, false
	}
	return n, nonSync, true
}

// ExpectLiteralReader 读取一个字面量头，并返回可以读出其负载的
// LiteralReader。
func (d *Decoder) ExpectLiteralReader() (*LiteralReader, bool) {
	size, _, ok := d.ExpectLiteralHeader()
	if !ok {
		return nil, false
	}
	return newLiteralReader(d.r, size), true
}

// ExpectString 读取一个 string（带引号字符串或字面量），并把内容
// 写入 *ptr。
func (d *Decoder) ExpectString(ptr *string) bool {
	if d.err != nil {
		return false
	}
	if b, ok := d.peekByte(); ok && b == '"' {
		return d.Quoted(ptr)
	}
	lit, ok := d.ExpectLiteralReader()
	if !ok {
		d.setErr(&DecoderExpectError{Message: "期望一个字符串"})
		return false
	}
	data, err := io.ReadAll(lit)
	if err != nil {
		d.setErr(&DecoderExpectError{Message: "读取字面量失败", Err: err})
		return false
	}
	*ptr = string(data)
	return true
}

// String 是 ExpectString 的非强制形式。
func (d *Decoder) String(ptr *string) bool {
	if d.err != nil {
		return false
	}
	if b, ok := d.peekByte(); !ok || (b != '"' && b != '{') {
		return false
	}
	return d.ExpectString(ptr)
}

// Literal 尝试读取一个字面量（不接受带引号字符串），把内容写入
// *ptr。
func (d *Decoder) Literal(ptr *string) bool {
	if d.err != nil {
		return false
	}
	if b, ok := d.peekByte(); !ok || b != '{' {
		return false
	}
	lit, ok := d.ExpectLiteralReader()
	if !ok {
		return false
	}
	data, err := io.ReadAll(lit)
	if err != nil {
		d.setErr(&DecoderExpectError{Message: "读取字面量失败", Err: err})
		return false
	}
	*ptr = string(data)
	return true
}

// ExpectAString 读取一个 astring（atom、string 或字面量）。
func (d *Decoder) ExpectAString(ptr *string) bool {
	if d.err != nil {
		return false
	}
	if b, ok := d.peekByte(); ok && (b == '"' || b == '{') {
		return d.ExpectString(ptr)
	}
	return d.ExpectAtom(ptr)
}

// ExpectNIL 消费字面量 "NIL"。
func (d *Decoder) ExpectNIL() bool {
	var atom string
	if !d.ExpectAtom(&atom) {
		return false
	}
	if atom != "NIL" {
		d.setErr(&DecoderExpectError{Message: "期望 NIL"})
		return false
	}
	return true
}

// NIL 尝试消费字面量 "NIL"，不消费字节即返回 false。
func (d *Decoder) NIL() bool {
	if d.err != nil {
		return false
	}
	b, ok := d.peekByte()
	if !ok || (b != 'N' && b != 'n') {
		return false
	}
	var atom string
	if !d.Atom(&atom) || atom != "NIL" {
		return false
	}
	return true
}

// ExpectNString 读取一个 nstring：要么是 NIL（*ptr 置为 nil），
// 要么是一个 string（*ptr 指向其内容）。
func (d *Decoder) ExpectNString(ptr **string) bool {
	if d.NIL() {
		*ptr = nil
		return true
	}
	var s string
	if !d.ExpectString(&s) {
		return false
	}
	*ptr = &s
	return true
}

// ExpectNStringReader 像 ExpectNString 一样，但对非 NIL 的情形返回
// 一个 LiteralReader 而不是把整个负载读入内存。
func (d *Decoder) ExpectNStringReader() (*LiteralReader, bool) {
	if d.NIL() {
		return nil, true
	}
	if b, ok := d.peekByte(); ok && b == '{' {
		return d.ExpectLiteralReader()
	}
	var s string
	if !d.Quoted(&s) {
		d.setErr(&DecoderExpectError{Message: "期望一个 nstring"})
		return nil, false
	}
	return newLiteralReader(strings.NewReader(s), int64(len(s))), true
}

// Number 尝试读取一个十进制数字。
func (d *Decoder) Number(ptr *uint32) bool {
	if d.err != nil {
		return false
	}
	var digits []byte
	for {
		b, ok := d.peekByte()
		if !ok || b < '0' || b > '9' {
			break
		}
		digits = append(digits, b)
		d.r.Discard(1)
	}
	if len(digits) == 0 {
		return false
	}
	n, err := strconv.ParseUint(string(digits), 10, 32)
	if err != nil {
		d.setErr(&DecoderExpectError{Message: "数字溢出", Err: err})
		return false
	}
	*ptr = uint32(n)
	return true
}

// ExpectNumber 是 Number 的强制版本。
func (d *Decoder) ExpectNumber(ptr *uint32) bool {
	if !d.Number(ptr) {
		d.setErr(&DecoderExpectError{Message: "期望一个数字"})
		return false
	}
	return true
}

// Number64 尝试读取一个十进制数字，容纳 64 位宽度。
func (d *Decoder) Number64(ptr *int64) bool {
	if d.err != nil {
		return false
	}
	var digits []byte
	for {
		b, ok := d.peekByte()
		if !ok || b < '0' || b > '9' {
			break
		}
		digits = append(digits, b)
		d.r.Discard(1)
	}
	if len(digits) == 0 {
		return false
	}
	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		d.setErr(&DecoderExpectError{Message: "数字溢出", Err: err})
		return false
	}
	*ptr = n
	return true
}

// ExpectNumber64 是 Number64 的强制版本。
func (d *Decoder) ExpectNumber64(ptr *int64) bool {
	if !d.Number64(ptr) {
		d.setErr(&DecoderExpectError{Message: "期望一个数字"})
		return false
	}
	return true
}

// ExpectUID 读取一个数字并将其解释为 UID。
func (d *Decoder) ExpectUID(ptr *imap.UID) bool {
	var n uint32
	if !d.ExpectNumber(&n) {
		return false
	}
	*ptr = imap.UID(n)
	return true
}

// ExpectModSeq 读取一个 64 位的 mod-sequence 值。
func (d *Decoder) ExpectModSeq(ptr *uint64) bool {
	if d.err != nil {
		return false
	}
	var digits []byte
	for {
		b, ok := d.peekByte()
		if !ok || b < '0' || b > '9' {
			break
		}
		digits = append(digits, b)
		d.r.Discard(1)
	}
	if len(digits) == 0 {
		d.setErr(&DecoderExpectError{Message: "期望一个 mod-sequence 值"})
		return false
	}
	n, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		d.setErr(&DecoderExpectError{Message: "mod-sequence 值非法", Err: err})
		return false
	}
	*ptr = n
	return true
}

// ExpectBodyFldOctets 读取 BODY 结构里的八位字节计数字段。
func (d *Decoder) ExpectBodyFldOctets(ptr *uint32) bool {
	return d.ExpectNumber(ptr)
}

// ExpectMailbox 读取一个邮箱名（astring，INBOX 大小写不敏感）。
func (d *Decoder) ExpectMailbox(ptr *string) bool {
	var s string
	if !d.ExpectAString(&s) {
		return false
	}
	*ptr = DecodeMailboxName(s)
	return true
}

// Flag 读取一个标志（可能以反斜杠开头的 atom）。
func (d *Decoder) Flag(ptr *imap.Flag) bool {
	if d.err != nil {
		return false
	}
	var buf []byte
	if d.Special('\\') {
		buf = append(buf, '\\')
	}
	var atom string
	if !d.Atom(&atom) {
		if len(buf) > 0 {
			d.setErr(&DecoderExpectError{Message: "反斜杠之后期望一个 atom"})
		}
		return false
	}
	buf = append(buf, atom...)
	*ptr = imap.Flag(buf)
	return true
}

// MailboxAttr 读取一个邮箱列表属性（总是以反斜杠开头的 atom）。
func (d *Decoder) MailboxAttr(ptr *imap.MailboxAttr) bool {
	if !d.ExpectSpecial('\\') {
		return false
	}
	var atom string
	if !d.ExpectAtom(&atom) {
		return false
	}
	*ptr = imap.MailboxAttr("\\" + atom)
	return true
}

// ExpectNumSet 读取一个 sequence-set，并按 kind 决定产出 SeqSet
// 还是 UIDSet。
func (d *Decoder) ExpectNumSet(kind NumKind, ptr *imap.NumSet) bool {
	ranges, err := d.readNumRanges()
	if err != nil {
		d.setErr(&DecoderExpectError{Message: "期望一个序列集", Err: err})
		return false
	}
	if kind == NumKindUID {
		var s imap.UIDSet
		for _, r := range ranges {
			s.AddRange(imap.UID(r[0]), imap.UID(r[1]))
		}
		*ptr = s
		return true
	}
	var s imap.SeqSet
	for _, r := range ranges {
		s.AddRange(r[0], r[1])
	}
	*ptr = s
	return true
}

// ExpectUIDSet 是 ExpectNumSet(NumKindUID, ...) 的便捷形式，直接产出
// imap.UIDSet。
func (d *Decoder) ExpectUIDSet(ptr *imap.UIDSet) bool {
	var set imap.NumSet
	if !d.ExpectNumSet(NumKindUID, &set) {
		return false
	}
	*ptr = set.(imap.UIDSet)
	return true
}

// readNumRanges 解析一个 sequence-set 的线格式，返回每个范围的
// [start, stop] 数对（0 表示 "*"）。
func (d *Decoder) readNumRanges() ([][2]uint32, error) {
	var ranges [][2]uint32
	for {
		var start, stop uint32
		if d.Special('*') {
			start = 0
		} else if !d.Number(&start) {
			return nil, fmt.Errorf("序列集中期望一个数字或 '*'")
		}
		stop = start
		if d.Special(':') {
			if d.Special('*') {
				stop = 0
			} else if !d.ExpectNumber(&stop) {
				return nil, d.err
			}
		}
		ranges = append(ranges, [2]uint32{start, stop})
		if !d.Special(',') {
			break
		}
	}
	return ranges, nil
}

// Text 尝试读取直到行尾（不含 CRLF）的剩余文本。
func (d *Decoder) Text(ptr *string) bool {
	if d.err != nil {
		return false
	}
	var buf []byte
	for {
		b, ok := d.peekByte()
		if !ok || b == '\r' {
			break
		}
		buf = append(buf, b)
		d.r.Discard(1)
	}
	*ptr = string(buf)
	return true
}

// ExpectText 是 Text 的强制版本：要求至少读到一个字符。
func (d *Decoder) ExpectText(ptr *string) bool {
	if !d.Text(ptr) || *ptr == "" {
		d.setErr(&DecoderExpectError{Message: "期望响应文本"})
		return false
	}
	return true
}

// DiscardUntilByte 丢弃字节，直到（不含）第一次出现 b 为止。
func (d *Decoder) DiscardUntilByte(b byte) {
	for {
		peeked, err := d.r.Peek(1)
		if err != nil {
			return
		}
		if peeked[0] == b {
			return
		}
		d.r.Discard(1)
	}
}

// DiscardLine 丢弃直到并包括下一个 CRLF 的所有字节。
func (d *Decoder) DiscardLine() {
	d.DiscardUntilByte('\r')
	d.Special('\r')
	d.Special('\n')
}

// DiscardValue 丢弃一个无法识别的值（原子、字符串、列表或字面量），
// 用于跳过不认识的响应字段。
func (d *Decoder) DiscardValue() bool {
	b, ok := d.peekByte()
	if !ok {
		return false
	}
	switch b {
	case '"':
		var s string
		return d.Quoted(&s)
	case '{':
		lit, ok := d.ExpectLiteralReader()
		if !ok {
			return false
		}
		_, err := io.Copy(io.Discard, lit)
		return err == nil
	case '(':
		d.r.Discard(1)
		for {
			if d.Special(')') {
				return true
			}
			d.SP()
			if !d.DiscardValue() {
				return false
			}
		}
	default:
		var atom string
		return d.Atom(&atom)
	}
}

// BeginList 读取一个括号列表的起始 '('，返回 ok；后续元素由调用方
// 自行循环读取，每个元素之间用 SP 分隔，以 Special(')') 结束。
func (d *Decoder) BeginList() bool {
	return d.ExpectSpecial('(')
}

// ExpectList 读取一个整体由括号包裹、元素由 elem 负责读取单个成员的
// 列表；elem 返回的错误会原样向上传播。
func (d *Decoder) ExpectList(elem func() error) error {
	if !d.BeginList() {
		return d.Err()
	}
	first := true
	for {
		if d.Special(')') {
			return nil
		}
		if !first {
			if !d.ExpectSP() {
				return d.Err()
			}
		}
		first = false
		if err := elem(); err != nil {
			return err
		}
	}
}

// List 是 ExpectList 的非强制形式：当下一个字节不是 '(' 时，返回
// (false, nil) 且不消费任何字节；否则像 ExpectList 一样读取整个列表。
func (d *Decoder) List(elem func() error) (bool, error) {
	if b, ok := d.peekByte(); !ok || b != '(' {
		return false, nil
	}
	return true, d.ExpectList(elem)
}

// ExpectNList 读取一个可能为 NIL 的列表：NIL 时直接返回 nil，否则
// 表现得和 ExpectList 完全一样。
func (d *Decoder) ExpectNList(elem func() error) error {
	if d.NIL() {
		return nil
	}
	return d.ExpectList(elem)
}
