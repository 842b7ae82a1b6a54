package engine

import "fmt"

// Kind 区分五种错误类别。
type Kind int

const (
	// KindUnexpectedContinuationRequest：在 ModeResponses 下收到了一个
	// 并非为解锁排队字面量而来的续请求。作为入站错误事件上报；处理器
	// 本身仍可继续使用，因为排在更早、已被消费的续请求之后的字面量
	// 块早已被释放。五种错误里唯一一个无需拆除连接即可恢复的。
	KindUnexpectedContinuationRequest Kind = iota
	// KindInvalidSubmission：在不接受该提交的模式下（例如 IDLE 期间
	// 提交了一个普通带标签命令）提交了命令。只让该次提交的完成信号
	// 失败，队列不受影响。
	KindInvalidSubmission
	// KindParseFailure：外部解析器拒绝了服务器字节。对连接是致命的，
	// 所有待处理的完成信号都会失败，并向上层报告。
	KindParseFailure
	// KindEncodeFailure：外部编码器拒绝了一个命令。只让该次提交的
	// 完成信号失败，队列不受影响。
	KindEncodeFailure
	// KindConnectionClosed：下游写入失败。所有待处理的完成信号都会
	// 以该错误失败。
	KindConnectionClosed
)

// String 实现 fmt.Stringer。
func (k Kind) String() string {
	switch k {
	case KindUnexpectedContinuationRequest:
		return "unexpected-continuation-request"
	case KindInvalidSubmission:
		return "invalid-submission"
	case KindParseFailure:
		return "parse-failure"
	case KindEncodeFailure:
		return "encode-failure"
	case KindConnectionClosed:
		return "connection-closed"
	default:
		return "unknown"
	}
}

// Error 包裹底层原因并打上上面的分类标签。
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("imap engine: %v", e.Kind)
	}
	return fmt.Sprintf("imap engine: %v: %v", e.Kind, e.Err)
}

// Unwrap 允许调用方用 errors.Is/errors.As 查看底层原因。
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
