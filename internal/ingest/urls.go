package ingest

import (
	"regexp"
	"strings"
)

var urlRe = regexp.MustCompile(`https?://[^\s<>"]+`)

// Достает ссылки из произвольного текста сообщения, без повторов
func ExtractURLs(text string) []string {
	var (
		urls []string
		seen = make(map[string]struct{})
	)
	for _, u := range urlRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?)]}'")
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
