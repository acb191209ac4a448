package telegram

import "strings"

const messageLimit = 4096

// SplitMessage режет текст на части в пределах лимита Telegram.
// Части собираются по строкам, чтобы карточки каналов не разрывались.
func SplitMessage(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len([]rune(trimmed)) <= messageLimit {
		return []string{trimmed}
	}

	var (
		parts   []string
		current []rune
	)
	flush := func() {
		chunk := strings.Trim(string(current), "\n")
		if chunk != "" {
			parts = append(parts, chunk)
		}
		current = current[:0]
	}
	for _, line := range strings.SplitAfter(trimmed, "\n") {
		runes := []rune(line)
		if len(current)+len(runes) > messageLimit {
			flush()
		}
		for len(runes) > messageLimit {
			current = append(current, runes[:messageLimit]...)
			flush()
			runes = runes[messageLimit:]
		}
		current = append(current, runes...)
	}
	flush()
	return parts
}
