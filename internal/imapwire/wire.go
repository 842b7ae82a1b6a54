// Package imapwire 实现 IMAP 线格式的底层编解码：原子、字符串、
// 字面量、续请求以及其它 RFC 9051 词法元素的读写。它不了解任何
// IMAP 命令或响应的语义，只负责字节和词法记号之间的转换。
package imapwire

import "github.com/mailwire/imap"

// ConnSide 区分解码器/编码器运行在连接的哪一侧：客户端侧读取的是
// 服务器响应、写出的是客户端命令；服务器侧则相反。少数记号
//（例如 resp-text-code 中数字的解释方式）依赖这个区分。
type ConnSide int

const (
	ConnSideClient ConnSide = iota
	ConnSideServer
)

// IsAtomChar 返回 ch 是否可以出现在一个 IMAP atom 中。
func IsAtomChar(ch byte) bool {
	switch ch {
	case '(', ')', '{', ' ', '%', '*', '"', '\\', ']':
		return false
	}
	return ch > ' ' && ch < 0x80
}

// NumKind 描述一个数字集合应被解释为序列号还是 UID。
type NumKind int

const (
	NumKindSeq NumKind = iota
	NumKindUID
)

func (k NumKind) String() string {
	switch k {
	case NumKindSeq:
		return "seq"
	case NumKindUID:
		return "uid"
	default:
		return "unknown"
	}
}

// NumSetKind 返回 s 对应的 NumKind：SeqSet 为序列号，UIDSet 为 UID。
func NumSetKind(s imap.NumSet) NumKind {
	switch s.(type) {
	case imap.UIDSet:
		return NumKindUID
	default:
		return NumKindSeq
	}
}

// DecodeMailboxName 把线上收到的邮箱名规整为规范形式：INBOX 大小写
// 不敏感，任何大小写变体都折叠成标准拼写 "INBOX"。
func DecodeMailboxName(s string) string {
	if len(s) == len("INBOX") &&
		(s[0] == 'I' || s[0] == 'i') &&
		(s[1] == 'N' || s[1] == 'n') &&
		(s[2] == 'B' || s[2] == 'b') &&
		(s[3] == 'O' || s[3] == 'o') &&
		(s[4] == 'X' || s[4] == 'x') {
		return "INBOX"
	}
	return s
}
