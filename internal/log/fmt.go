package log

import (
	"fmt"
	"strings"
)

// Format 按 fmt.Sprintf 的规则格式化, 另外:
//  1. 参数多于占位符时, 剩余参数以空格拼接在末尾;
//  2. 最后一个参数为 error 时, 以 " - 错误信息" 的形式追加在末尾.
//
// 示例:
//
//	Format("timer %v fired", 3)                    // "timer 3 fired"
//	Format("armed", 100, 200)                      // "armed 100 200"
//	Format("set timeout %v", 5, errors.New("err")) // "set timeout 5 - err"
func Format(format string, args ...any) string {
	var trailingErr error
	if n := len(args); n > 0 {
		if e, ok := args[n-1].(error); ok {
			trailingErr = e
			args = args[:n-1]
		}
	}

	verbs := countVerbs(format)
	if verbs > len(args) {
		verbs = len(args)
	}

	builder := strings.Builder{}
	if verbs > 0 {
		builder.WriteString(fmt.Sprintf(format, args[:verbs]...))
	} else {
		builder.WriteString(strings.ReplaceAll(format, "%%", "%"))
	}
	for _, arg := range args[verbs:] {
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(fmt.Sprint(arg))
	}
	if trailingErr != nil {
		builder.WriteString(" - ")
		builder.WriteString(trailingErr.Error())
	}
	return builder.String()
}

// FormatArgs 第一个参数作为格式串, 只有一个参数时原样输出
func FormatArgs(args ...any) string {
	switch len(args) {
	case 0:
		return ""
	case 1:
		return fmt.Sprint(args[0])
	default:
		if format, ok := args[0].(string); ok {
			return Format(format, args[1:]...)
		}
		return Format(fmt.Sprint(args[0]), args[1:]...)
	}
}

// countVerbs 统计占位符数量, %% 不计入
func countVerbs(format string) int {
	n := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}
