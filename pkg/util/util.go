// Package util 提供通用工具函数
package util

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTextFieldLength 单行文本字段的最大长度（按字符计）
const MaxTextFieldLength = 200

var (
	// tagPattern 匹配 HTML/XML 标签
	tagPattern = regexp.MustCompile(`<[^>]*>`)
	// spacePattern 匹配连续空白
	spacePattern = regexp.MustCompile(`\s+`)
	// inlineSpacePattern 匹配一行内的连续空白（不含换行）
	inlineSpacePattern = regexp.MustCompile(`[ \t\f\v]+`)
)

// SanitizeTextField 清理单行文本字段
// 去除标签和控制字符，合并空白，截断到 MaxTextFieldLength
// 对同一个值多次调用结果不变
// 参数:
//   - s: 原始文本
//
// 返回:
//   - string: 清理后的文本，可能为空
func SanitizeTextField(s string) string {
	s = stripInvalid(s)
	s = tagPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	s = TruncateRunes(s, MaxTextFieldLength)
	return strings.TrimSpace(s)
}

// SanitizeTextarea 清理多行文本
// 与 SanitizeTextField 相同，但保留换行
func SanitizeTextarea(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = stripInvalid(s)
	s = tagPattern.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpacePattern.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// stripInvalid 去除非法 UTF-8 和除空白以外的控制字符
func stripInvalid(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// TruncateRunes 按字符截断字符串，不添加省略号
func TruncateRunes(s string, maxLen int) string {
	if maxLen < 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// TruncateWithEllipsis 按字符截取前 maxLen 个字符并追加 "..."
// 参数:
//   - s: 原字符串
//   - maxLen: 保留的字符数
//
// 返回:
//   - string: 截断后的字符串
func TruncateWithEllipsis(s string, maxLen int) string {
	return TruncateRunes(s, maxLen) + "..."
}

// GenerateRequestID 生成请求 ID
// 使用 Google 的 uuid 库生成 UUID v4
func GenerateRequestID() string {
	return uuid.NewString()
}

// Int64Ptr 返回 int64 的指针
func Int64Ptr(i int64) *int64 {
	return &i
}
