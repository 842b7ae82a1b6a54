// Package engine 实现客户端协议状态机的核心：一个双工协议处理器，
// 在结构化的命令/响应流和服务器实际使用的字节流之间进行转换。
//
// 处理器本身对传输一无所知：调用方在构造时注入一个写入回调和一个
// 投递回调，之后只通过 Submit（提交一个命令项）和
// HandleResponse / HandleContinuationRequest（喂入已解析的入站事件）
// 来驱动处理器；如果调用方更愿意直接喂入原始字节，也可以改用
// OnBytes，由注入的 Parser 负责切分。
//
// 处理器只能从单一事件循环中驱动：它不持有任何内部锁，所有状态变更
// 都假定按调用顺序依次发生（见 DESIGN.md 中关于 "单线程协作式" 的
// 说明）。
package engine

// Item 是调用方可以提交给处理器的命令项。
//
// 三种变体：TaggedCommand、IdleDone、ContinuationResponse。
type Item interface {
	isItem()
}

// TaggedCommand 是带有调用方自选标签的普通命令。
//
// Command 字段对引擎来说是不透明的，只会被传递给注入的 Encoder。
//
// EntersMode 描述该命令完全发送完毕后模式应变为什么。零值
// ModeResponses 表示不触发模式切换；ModeIdle 对应 IDLE 的开始，
// ModeAuthenticating 对应 AUTHENTICATE 的开始。
type TaggedCommand struct {
	Tag        string
	Command    interface{}
	EntersMode Mode
}

func (TaggedCommand) isItem() {}

// IdleDone 是结束 IDLE 会话的哨兵项，线格式为 "DONE\r\n"。
type IdleDone struct{}

func (IdleDone) isItem() {}

// ContinuationResponse 是 AUTHENTICATE 交换期间响应服务器续请求的
// 不透明客户端负载，线格式是负载字节后跟 "\r\n"。
type ContinuationResponse struct {
	Data []byte
}

func (ContinuationResponse) isItem() {}
