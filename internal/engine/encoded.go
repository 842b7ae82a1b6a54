package engine

// Chunk 是一段准备发送的连续出站字节。
type Chunk []byte

// EncodedCommand 是对一个命令项运行外部编码器的结果。
//
// 两个相邻的块之间恰好存在一个字面量边界：前一个块以 "{N}\r\n" 结尾，
// 服务器必须先发送续请求（"+"），后一个块才能被释放。没有字面量的
// 命令恰好只有一个块。每个编码命令的最后一个块都以 "\r\n" 结尾。
type EncodedCommand struct {
	Chunks []Chunk
}

// Capabilities 描述可能改变编码方式的已协商服务器能力。
//
// 基线假设不支持非同步字面量（LITERAL+ 和 LITERAL- 均未启用）；
// 将 NonSyncLiteral 置为 true，可以让外部编码器跳过续请求等待。
type Capabilities struct {
	// NonSyncLiteral 为 true 时，编码器可以把本应由续请求门控的
	// 字面量直接写成一个块，不引入边界。
	NonSyncLiteral bool
}

// Encoder 把一个命令项翻译成一系列带字面量边界的字节块。
type Encoder interface {
	Encode(item Item, caps Capabilities) (EncodedCommand, error)
}
