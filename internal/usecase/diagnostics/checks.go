package diagnostics

import (
	"errors"
	"fmt"
)

// ErrChecksFailed: хотя бы один шаг проверки не прошёл.
var ErrChecksFailed = errors.New("часть проверок не пройдена")

// errSkipped помечает шаг, который нельзя выполнить в текущей конфигурации.
type errSkipped struct{ reason string }

func (e errSkipped) Error() string { return e.reason }

func skip(format string, args ...any) error {
	return errSkipped{reason: fmt.Sprintf(format, args...)}
}

// Step: результат одного шага многошаговой проверки.
type Step struct {
	Name    string
	Err     error
	Skipped bool
}

// Passed сообщает, прошёл ли шаг.
func (s Step) Passed() bool {
	return s.Err == nil && !s.Skipped
}

// CheckReport: шаги в порядке выполнения.
type CheckReport struct {
	Steps []Step
}

// Failed возвращает шаги, завершившиеся ошибкой.
func (r CheckReport) Failed() []Step {
	var failed []Step
	for _, st := range r.Steps {
		if st.Err != nil && !st.Skipped {
			failed = append(failed, st)
		}
	}
	return failed
}

// Err возвращает ErrChecksFailed, если хотя бы один шаг не прошёл.
func (r CheckReport) Err() error {
	if len(r.Failed()) > 0 {
		return ErrChecksFailed
	}
	return nil
}

type checklist struct {
	s      *Service
	report CheckReport
}

func (s *Service) checklist(title string) *checklist {
	s.printf("🧪 %s\n%s\n", title, rule)
	return &checklist{s: s}
}

// run выполняет шаг и печатает его итог. Возвращает true, если шаг прошёл.
func (c *checklist) run(name string, fn func() error) bool {
	c.s.printf("\n%d. %s\n", len(c.report.Steps)+1, name)
	err := fn()
	st := Step{Name: name, Err: err}
	var skipped errSkipped
	switch {
	case err == nil:
		c.s.printf("   ✅ OK\n")
	case errors.As(err, &skipped):
		st.Skipped = true
		c.s.printf("   ⚠️ %v\n", err)
	default:
		c.s.printf("   ❌ %v\n", err)
	}
	c.report.Steps = append(c.report.Steps, st)
	return st.Passed()
}

// finish печатает сводку и возвращает отчёт.
func (c *checklist) finish() (CheckReport, error) {
	c.s.printf("\n%s\n", rule)
	passed, skipped := 0, 0
	for _, st := range c.report.Steps {
		switch {
		case st.Skipped:
			skipped++
		case st.Err == nil:
			passed++
		}
	}
	c.s.printf("Итог: пройдено %d, пропущено %d, ошибок %d\n", passed, skipped, len(c.report.Failed()))
	return c.report, c.report.Err()
}
