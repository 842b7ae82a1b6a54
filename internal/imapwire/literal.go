package imapwire

import (
	"fmt"
	"io"
)

// ContinuationRequest 代表服务器尚未发送、但客户端在写出一个同步
// 字面量之前必须等待的续请求（"+" 行）。它把读取 goroutine 和写出
// goroutine（或调用方）连接起来：写出方调用 Wait 阻塞，读取方在
// 看到对应的 "+" 行时调用 Done 或 Cancel 来解锁它。
type ContinuationRequest struct {
	ch   chan struct{}
	text string
	err  error
}

// NewContinuationRequest 创建一个尚未完成的续请求。
func NewContinuationRequest() *ContinuationRequest {
	return &ContinuationRequest{ch: make(chan struct{})}
}

// Wait 阻塞直到服务器发来对应的续请求，或者该续请求被取消。
func (cr *ContinuationRequest) Wait() (string, error) {
	<-cr.ch
	return cr.text, cr.err
}

// Done 用服务器续请求携带的文本来完成该续请求。
func (cr *ContinuationRequest) Done(text string) {
	cr.text = text
	close(cr.ch)
}

// Cancel 用一个错误来完成该续请求，例如连接被关闭。
func (cr *ContinuationRequest) Cancel(err error) {
	if err == nil {
		err = fmt.Errorf("imapwire: 续请求被取消")
	}
	cr.err = err
	close(cr.ch)
}

// LiteralReader 是一个用于读取字面量负载的 io.Reader，它知道字面量
// 的总大小。
type LiteralReader struct {
	r    io.Reader
	size int64
	n    int64
}

func newLiteralReader(r io.Reader, size int64) *LiteralReader {
	return &LiteralReader{r: io.LimitReader(r, size), size: size}
}

// Size 返回字面量的声明大小。
func (lr *LiteralReader) Size() int64 {
	return lr.size
}

func (lr *LiteralReader) Read(b []byte) (int, error) {
	n, err := lr.r.Read(b)
	lr.n += int64(n)
	return n, err
}

// DecoderExpectError 是由 Decoder.Expect 系列方法在解析失败时产出的
// 错误，它保留了造成失败的底层原因（如果有）。
type DecoderExpectError struct {
	Message string
	Err     error
}

func (e *DecoderExpectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("imapwire: %v: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("imapwire: %v", e.Message)
}

func (e *DecoderExpectError) Unwrap() error {
	return e.Err
}
