package engine

import "errors"

var errEmptyEncoding = errors.New("imap engine: 编码器产出了零个块")

// WriteFunc 把一个已释放的块交给传输层。粒度是每次写入一个块；
// Handler 在调用返回后不再持有该切片的引用。
type WriteFunc func(p []byte) error

// DeliverFunc 把一个入站事件投递给上层应用。
type DeliverFunc func(event InboundEvent)

// InboundEvent 是投递给上层的内容：一个已解析的响应、一个原样转发的
// 续请求，或者一个协议级错误。
type InboundEvent interface {
	isInboundEvent()
}

func (ResponseEvent) isInboundEvent()           {}
func (ContinuationRequestEvent) isInboundEvent() {}

// ErrorEvent 上报一个协议级故障。
type ErrorEvent struct {
	Err *Error
}

func (ErrorEvent) isInboundEvent() {}

// Handler 是客户端状态机核心的双工协议处理器。它不持有任何内部锁：
// 假定单线程协作式调度模型，因此 Submit、HandleResponse、
// HandleContinuationRequest 和 OnBytes 都必须从同一个循环/goroutine
// 驱动。跨越这个边界是调用方自己的事。
type Handler struct {
	encoder Encoder
	parser  Parser
	write   WriteFunc
	deliver DeliverFunc
	caps    Capabilities

	mode    Mode
	authTag string

	q queue

	closed    bool
	closedErr error
}

// New 构建一个 Handler。write 和 deliver 是构造时注入的推送函数；
// 如果调用方从不打算使用 OnBytes，而是直接从自己的（阻塞式）读取
// 循环驱动 HandleResponse / HandleContinuationRequest，parser 可以
// 为 nil。
func New(encoder Encoder, parser Parser, write WriteFunc, deliver DeliverFunc) *Handler {
	return &Handler{
		encoder: encoder,
		parser:  parser,
		write:   write,
		deliver: deliver,
		mode:    ModeResponses,
	}
}

// SetCapabilities 更新后续提交传给编码器的能力集（例如 CAPABILITY
// 失效/刷新之后）。
func (h *Handler) SetCapabilities(caps Capabilities) {
	h.caps = caps
}

// Mode 报告处理器当前的模式。
func (h *Handler) Mode() Mode {
	return h.mode
}

// Submit 提交一个命令项。
func (h *Handler) Submit(item Item) (*Future, error) {
	if h.closed {
		err := newError(KindConnectionClosed, h.closedErr)
		return resolved(err), err
	}

	switch it := item.(type) {
	case IdleDone:
		return h.submitIdleDone()
	case ContinuationResponse:
		return h.submitContinuationResponse(it)
	case TaggedCommand:
		return h.submitTaggedCommand(it)
	default:
		err := newError(KindInvalidSubmission, nil)
		return resolved(err), err
	}
}

// submitIdleDone："DONE\r\n" 立即发出，模式也立即回到
// expecting-responses；它完全绕过队列。
func (h *Handler) submitIdleDone() (*Future, error) {
	if h.mode != ModeIdle {
		err := newError(KindInvalidSubmission, nil)
		return resolved(err), err
	}

	encoded, err := h.encoder.Encode(IdleDone{}, h.caps)
	if err != nil {
		wrapped := newError(KindEncodeFailure, err)
		return resolved(wrapped), wrapped
	}

	for _, c := range encoded.Chunks {
		if werr := h.writeChunk(c); werr != nil {
			return resolved(werr), werr
		}
	}

	h.mode = ModeResponses
	h.authTag = ""
	h.releaseNextHeadIfAllowed()

	return resolved(nil), nil
}

// submitContinuationResponse：当模式为 expecting-continuations 时，
// 该项的负载加 "\r\n" 会立即发出，完全不经过字面量确认路径。
func (h *Handler) submitContinuationResponse(item ContinuationResponse) (*Future, error) {
	if !h.mode.ExpectsContinuations() {
		err := newError(KindInvalidSubmission, nil)
		return resolved(err), err
	}

	encoded, err := h.encoder.Encode(item, h.caps)
	if err != nil {
		wrapped := newError(KindEncodeFailure, err)
		return resolved(wrapped), wrapped
	}

	for _, c := range encoded.Chunks {
		if werr := h.writeChunk(c); werr != nil {
			return resolved(werr), werr
		}
	}

	return resolved(nil), nil
}

func (h *Handler) submitTaggedCommand(item TaggedCommand) (*Future, error) {
	if h.mode.ExpectsContinuations() {
		err := newError(KindInvalidSubmission, nil)
		return resolved(err), err
	}

	encoded, err := h.encoder.Encode(item, h.caps)
	if err != nil {
		wrapped := newError(KindEncodeFailure, err)
		return resolved(wrapped), wrapped
	}
	if len(encoded.Chunks) == 0 {
		wrapped := newError(KindEncodeFailure, errEmptyEncoding)
		return resolved(wrapped), wrapped
	}

	future := newFuture()
	entry := &queueEntry{
		tag:         item.Tag,
		pending:     append([]Chunk(nil), encoded.Chunks...),
		future:      future,
		entersMode:  item.EntersMode,
		changesMode: item.EntersMode != ModeResponses,
	}

	wasEmpty := h.q.empty()
	h.q.push(entry)
	if wasEmpty {
		if err := h.releaseHeadFirstChunk(); err != nil {
			return future, err
		}
	}

	return future, nil
}

// releaseHeadFirstChunk 写出新队首的第一个块；如果那就是它唯一的块，
// 立即将其标记为完成。这是无字面量的快路径：没有字面量的命令恰好
// 产出一个块，所以提交会同步地让对应完成信号就绪。
func (h *Handler) releaseHeadFirstChunk() error {
	head := h.q.head()
	if head == nil {
		return nil
	}
	first := head.releaseNext()
	if err := h.writeChunk(first); err != nil {
		return err
	}
	if !head.awaitsLiteralAck() {
		h.completeHead(nil)
	}
	return nil
}

// releaseNextHeadIfAllowed 只有在当前模式允许普通命令流量时，才会
// 释放新队首的第一个块；排在 IDLE/AUTHENTICATE 之后的命令必须等到
// 模式回到 expecting-responses 才能开始发送。
func (h *Handler) releaseNextHeadIfAllowed() {
	if h.mode.ExpectsContinuations() {
		return
	}
	if h.q.empty() {
		return
	}
	_ = h.releaseHeadFirstChunk()
}

// onContinuationConsumedForLiteral 通过释放队首的下一个块来推进它。
// 如果这耗尽了队首，它的完成信号会就绪、它会被弹出，并且，如果模式
// 允许，后继者的第一个块会立即发出，所有这些都在控制权返回调用方
// 之前完成。这正是保证两个排队命令之间不会交错的关键：为第一个
// 命令最后一个字面量而来的续请求，在同一次调用里既结束了那个命令，
// 也开始了下一个命令的发送。
func (h *Handler) onContinuationConsumedForLiteral() error {
	head := h.q.head()
	if head == nil || !head.awaitsLiteralAck() {
		return nil
	}

	chunk := head.releaseNext()
	if err := h.writeChunk(chunk); err != nil {
		return err
	}

	if !head.awaitsLiteralAck() {
		h.completeHead(nil)
	}
	return nil
}

// completeHead 弹出当前队首，让它的完成信号就绪，应用它携带的任何
// 模式切换，并尝试释放后继者。
func (h *Handler) completeHead(err error) {
	head := h.q.popHead()
	head.future.resolve(err)

	if err == nil && head.changesMode {
		h.mode = head.entersMode
		if h.mode == ModeAuthenticating {
			h.authTag = head.tag
		}
	}

	h.releaseNextHeadIfAllowed()
}

// HandleResponse 分派一个已解析的响应：总是转发给上层；处于
// authenticating 模式时，还会检查它是否是结束 AUTHENTICATE 交换的
// 带标签响应。
func (h *Handler) HandleResponse(r Response) {
	if h.mode == ModeAuthenticating && r.Tag != "" && r.Tag == h.authTag {
		h.mode = ModeResponses
		h.authTag = ""
		h.releaseNextHeadIfAllowed()
	}

	h.deliver(ResponseEvent{Response: r})
}

// HandleContinuationRequest 分派一行 "+"。
func (h *Handler) HandleContinuationRequest(text string) {
	if h.mode.ExpectsContinuations() {
		h.deliver(ContinuationRequestEvent{Text: text})
		return
	}

	head := h.q.head()
	if head != nil && head.awaitsLiteralAck() {
		_ = h.onContinuationConsumedForLiteral()
		return
	}

	// 没有待解锁的字面量：对这个续请求来说是致命的，但对处理器整体
	// 而言是可恢复的。排在更早、已被消费的续请求之后的字面量块，
	// 早在那次调用里就已经释放，这里无需再做任何事。
	h.deliver(ErrorEvent{Err: newError(KindUnexpectedContinuationRequest, nil)})
}

// OnBytes 把服务器原始字节喂给注入的 Parser，并分派它产出的事件。
// 这是字节缓冲区导向的入口；如果调用方已经有一个按行驱动的外部
// 解析器，也可以直接调用 HandleResponse / HandleContinuationRequest。
func (h *Handler) OnBytes(data []byte) (int, error) {
	events, consumed, err := h.parser.Parse(data)
	if err != nil {
		wrapped := newError(KindParseFailure, err)
		h.failAll(wrapped)
		h.deliver(ErrorEvent{Err: wrapped})
		return consumed, wrapped
	}

	for _, ev := range events {
		switch e := ev.(type) {
		case ResponseEvent:
			h.HandleResponse(e.Response)
		case ContinuationRequestEvent:
			h.HandleContinuationRequest(e.Text)
		}
	}

	return consumed, nil
}

// Close 让所有待处理的完成信号以连接已关闭错误就绪，并将处理器标记
// 为不可用。一旦确认下游传输已经不在了，调用方就有责任调用它。
func (h *Handler) Close(err error) {
	h.failAll(newError(KindConnectionClosed, err))
}

func (h *Handler) failAll(err *Error) {
	h.closed = true
	h.closedErr = err
	for !h.q.empty() {
		head := h.q.popHead()
		head.future.resolve(err)
	}
}

func (h *Handler) writeChunk(c Chunk) error {
	if err := h.write(c); err != nil {
		wrapped := newError(KindConnectionClosed, err)
		h.failAll(wrapped)
		return wrapped
	}
	return nil
}
