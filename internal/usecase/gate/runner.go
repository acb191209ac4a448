package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-gate/internal/infra/metrics"
)

// Runner запускает фоновые задачи "по возможности": у каждой свой таймаут,
// ошибки только логируются и считаются в метриках.
type Runner struct {
	wg      sync.WaitGroup
	timeout time.Duration
	log     zerolog.Logger
}

// NewRunner создаёт раннер с таймаутом на задачу.
func NewRunner(timeout time.Duration, logger zerolog.Logger) *Runner {
	return &Runner{timeout: timeout, log: logger}
}

// Go запускает задачу. Отмена ctx не прерывает задачу, её ограничивает только таймаут.
func (r *Runner) Go(ctx context.Context, task string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	go func() {
		defer r.wg.Done()
		defer cancel()
		if err := r.run(taskCtx, fn); err != nil {
			metrics.IncBestEffortFailure(task)
			r.log.Warn().Err(err).Str("task", task).Msg("фоновая задача не выполнена")
		}
	}()
}

func (r *Runner) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

// Wait дожидается завершения всех запущенных задач.
func (r *Runner) Wait() {
	r.wg.Wait()
}
