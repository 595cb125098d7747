package markup

import (
	"fmt"
	"strings"
)

// Обратный слэш идет первым, иначе экранирование остальных символов удвоится
var replacer = strings.NewReplacer(
	"\\", "\\\\",
	"-", "\\-",
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// Внутри адреса ссылки MarkdownV2 требует экранировать только ) и \
var linkReplacer = strings.NewReplacer(
	"\\", "\\\\",
	")", "\\)",
)

// Экранирует спецсимволы MarkdownV2 для телеграма
func EscapeForMarkdown(src string) string {
	return replacer.Replace(src)
}

func Bold(src string) string {
	return "*" + EscapeForMarkdown(src) + "*"
}

func Italic(src string) string {
	return "_" + EscapeForMarkdown(src) + "_"
}

func Code(src string) string {
	return "`" + strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(src) + "`"
}

func Link(text, url string) string {
	return fmt.Sprintf("[%s](%s)", EscapeForMarkdown(text), linkReplacer.Replace(url))
}
