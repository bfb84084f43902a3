package utils

import (
	"strings"
	"unicode/utf8"
)

// CollapseSpaces trims and folds any run of whitespace into one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate 超过 max 个字符时截断并以 "..." 结尾，结果长度不超过 max
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// TrimToNil 去掉首尾空白，空串返回 nil
func TrimToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
