package internal

import (
	"fmt"
	"time"

	"github.com/mailwire/imap/internal/imapwire"
)

// DateLayout 是 IMAP SEARCH 日期（date，不带时间部分）使用的格式。
const DateLayout = "02-Jan-2006"

// DateTimeLayout 是 IMAP INTERNALDATE/APPEND 使用的日期时间格式。
const DateTimeLayout = "02-Jan-2006 15:04:05 -0700"

func parseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("imap: 解析日期时间失败: %w", err)
	}
	return t, nil
}

// DecodeDateTime 尝试读取一个日期时间 string；如果下一个记号不是
// string，返回零值且不报错（调用方用它来处理可选的 APPEND 日期参数）。
func DecodeDateTime(dec *imapwire.Decoder) (time.Time, error) {
	var s string
	if !dec.String(&s) {
		return time.Time{}, nil
	}
	return parseDateTime(s)
}

// ExpectDateTime 读取一个必须存在的日期时间 string。
func ExpectDateTime(dec *imapwire.Decoder) (time.Time, error) {
	var s string
	if !dec.ExpectString(&s) {
		return time.Time{}, dec.Err()
	}
	return parseDateTime(s)
}
