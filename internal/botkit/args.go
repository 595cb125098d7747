package botkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Разбирает аргументы команды в формате JSON, например /addsource {"name": "...", "url": "..."}
func ParseJSON[T any](src string) (T, error) {
	var args T

	if err := json.Unmarshal([]byte(src), &args); err != nil {
		var zero T
		return zero, fmt.Errorf("parse json arguments: %w", err)
	}

	return args, nil
}

// Первый аргумент команды как ID
func ParseID(src string) (int64, error) {
	fields := strings.Fields(src)
	if len(fields) == 0 {
		return 0, fmt.Errorf("id is required")
	}

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", fields[0])
	}

	return id, nil
}

// Необязательный числовой аргумент. Пустая строка дает def
func ParseIntOr(src string, def int) (int, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return def, nil
	}

	n, err := strconv.Atoi(src)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", src)
	}

	return n, nil
}
