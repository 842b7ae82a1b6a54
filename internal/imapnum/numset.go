// Package imapnum 实现 IMAP 序列号集合（sequence-set / uid-set）的底层表示。
//
// 本包被 imap.SeqSet 和 imap.UIDSet 通过 unsafe 指针转换复用，
// 因此 Range 的内存布局必须与 imap.SeqRange / imap.UIDRange 保持一致。
package imapnum

import (
	"fmt"
	"strconv"
	"strings"
)

// Range 是一个数字范围。0 表示 "*"（集合中最大的数字）。
type Range struct {
	Start, Stop uint32
}

// Set 是数字范围的有序集合。
type Set []Range

// String 返回集合的 IMAP 文本表示，例如 "1:3,5,7:*"。
func (s Set) String() string {
	if len(s) == 0 {
		return ""
	}
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = rangeString(r)
	}
	return strings.Join(parts, ",")
}

func numString(n uint32) string {
	if n == 0 {
		return "*"
	}
	return strconv.FormatUint(uint64(n), 10)
}

func rangeString(r Range) string {
	if r.Start == r.Stop {
		return numString(r.Start)
	}
	return fmt.Sprintf("%v:%v", numString(r.Start), numString(r.Stop))
}

// Dynamic 返回集合是否包含 "*" 或以 "*" 结尾的范围。
func (s Set) Dynamic() bool {
	for _, r := range s {
		if r.Start == 0 || r.Stop == 0 {
			return true
		}
	}
	return false
}

// Contains 返回 num 是否落在集合的某个范围内。
//
// num 为 0（即 "*"）只匹配集合中同样包含 0 的范围。
func (s Set) Contains(num uint32) bool {
	for _, r := range s {
		start, stop := r.Start, r.Stop
		if start > stop && stop != 0 {
			start, stop = stop, start
		}
		if num == 0 {
			if start == 0 || stop == 0 {
				return true
			}
			continue
		}
		if stop == 0 {
			if num >= start {
				return true
			}
			continue
		}
		if num >= start && num <= stop {
			return true
		}
	}
	return false
}

// Nums 返回集合内所有数字的切片。
//
// 如果集合是动态的（包含 "*"），ok 返回 false，因为数字列表无法被静态枚举。
func (s Set) Nums() ([]uint32, bool) {
	if s.Dynamic() {
		return nil, false
	}

	var nums []uint32
	for _, r := range s {
		start, stop := r.Start, r.Stop
		if start > stop {
			start, stop = stop, start
		}
		for n := start; n <= stop; n++ {
			nums = append(nums, n)
		}
	}
	return nums, true
}

// AddNum 插入若干数字。值为 0 表示 "*"。
func (s *Set) AddNum(nums ...uint32) {
	for _, n := range nums {
		*s = append(*s, Range{Start: n, Stop: n})
	}
}

// AddRange 插入一个范围。
func (s *Set) AddRange(start, stop uint32) {
	*s = append(*s, Range{Start: start, Stop: stop})
}

// AddSet 插入另一个集合的所有范围。
func (s *Set) AddSet(other Set) {
	*s = append(*s, other...)
}
