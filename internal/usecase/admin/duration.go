package admin

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"tg-channel-gate/internal/domain"
)

// ErrInvalidDuration возвращается для строк вне формата <N>[m|h|d].
var ErrInvalidDuration = errors.New("некорректная длительность, ожидается <N>m, <N>h или <N>d")

var durationRegex = regexp.MustCompile(`^(\d+)([mhd]?)$`)

var unitSeconds = map[string]int64{
	"":  60,
	"m": 60,
	"h": 3600,
	"d": 86400,
}

// ParseInviteDuration переводит строку вида 30m, 2h, 1d в секунды.
// Число без суффикса считается минутами.
func ParseInviteDuration(input string) (domain.InviteDuration, error) {
	matches := durationRegex.FindStringSubmatch(strings.ToLower(strings.TrimSpace(input)))
	if matches == nil {
		return domain.InviteDuration{}, ErrInvalidDuration
	}
	n, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil || n <= 0 {
		return domain.InviteDuration{}, ErrInvalidDuration
	}
	mult := unitSeconds[matches[2]]
	if n > math.MaxInt64/mult {
		return domain.InviteDuration{}, ErrInvalidDuration
	}
	return domain.InviteDuration{Seconds: n * mult}, nil
}
