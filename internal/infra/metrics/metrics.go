package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	JoinRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_join_requests_total",
		Help: "Заявки на вступление по итоговому решению",
	}, []string{"outcome", "reason"})

	RegistryChannels = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gate_registry_channels",
		Help: "Количество управляемых каналов в кэше",
	})

	RegistryRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_registry_refresh_total",
		Help: "Обновления реестра каналов",
	}, []string{"status"})

	BestEffortFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_best_effort_failures_total",
		Help: "Неудачные фоновые уведомления",
	}, []string{"task"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 25, 30, 45, 60},
	}, []string{"component", "operation", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		JoinRequestsTotal,
		RegistryChannels,
		RegistryRefreshTotal,
		BestEffortFailures,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	NetworkRequestDuration.WithLabelValues(component, operation, status).Observe(time.Since(start).Seconds())
	NetworkRequestTotal.WithLabelValues(component, operation, status).Inc()
}

// ObserveJoinDecision учитывает итог обработки заявки.
func ObserveJoinDecision(outcome, reason string) {
	if reason == "" {
		reason = "none"
	}
	JoinRequestsTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveRegistryRefresh учитывает результат обновления реестра.
func ObserveRegistryRefresh(size int, err error) {
	if err != nil {
		RegistryRefreshTotal.WithLabelValues("error").Inc()
		return
	}
	RegistryRefreshTotal.WithLabelValues("success").Inc()
	RegistryChannels.Set(float64(size))
}

// IncBestEffortFailure увеличивает счётчик неудачных фоновых задач.
func IncBestEffortFailure(task string) {
	BestEffortFailures.WithLabelValues(task).Inc()
}
