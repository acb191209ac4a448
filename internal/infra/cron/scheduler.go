package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler запускает периодические задачи.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewScheduler создаёт планировщик. Задача не стартует повторно, пока не завершилась предыдущая.
func NewScheduler(logger zerolog.Logger) *Scheduler {
	adapter := cronLogger{log: logger}
	c := cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	return &Scheduler{cron: c, log: logger}
}

// Every регистрирует задачу с фиксированным интервалом.
func (s *Scheduler) Every(ctx context.Context, interval time.Duration, name string, job func(ctx context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("cron: интервал задачи %s должен быть положительным", name)
	}
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if ctx.Err() != nil {
			return
		}
		s.log.Debug().Str("job", name).Msg("cron: запуск задачи")
		job(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron: регистрация задачи %s: %w", name, err)
	}
	return nil
}

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик и ждёт выполняющиеся задачи.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("cron: задачи не завершились до таймаута")
	}
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
