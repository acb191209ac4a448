package channels

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"tg-channel-gate/internal/domain"
	"tg-channel-gate/internal/infra/metrics"
)

// RefreshStats описывает результат обновления реестра.
type RefreshStats struct {
	Before int
	After  int
}

// Delta возвращает изменение числа каналов.
func (s RefreshStats) Delta() int {
	return s.After - s.Before
}

type snapshot struct {
	channels map[int64]domain.ManagedChannel
	loadedAt time.Time
}

// Registry хранит кэш управляемых каналов. Снимок неизменяем и подменяется целиком.
type Registry struct {
	source  domain.ChannelSource
	log     zerolog.Logger
	now     func() time.Time
	current atomic.Pointer[snapshot]
	group   singleflight.Group
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(source domain.ChannelSource, logger zerolog.Logger) *Registry {
	r := &Registry{source: source, log: logger, now: time.Now}
	r.current.Store(&snapshot{channels: map[int64]domain.ManagedChannel{}})
	return r
}

// NewStaticRegistry создаёт реестр с фиксированным содержимым.
func NewStaticRegistry(channels ...domain.ManagedChannel) *Registry {
	r := &Registry{log: zerolog.Nop(), now: time.Now}
	r.current.Store(buildSnapshot(channels, r.now(), zerolog.Nop()))
	return r
}

// Refresh загружает список каналов и атомарно заменяет кэш.
// Параллельные вызовы объединяются и получают результат одной загрузки.
// При ошибке прежний снимок остаётся нетронутым.
func (r *Registry) Refresh(ctx context.Context) (RefreshStats, error) {
	if r.source == nil {
		return RefreshStats{}, fmt.Errorf("реестр каналов: источник не задан")
	}
	ch := r.group.DoChan("refresh", func() (any, error) {
		return r.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return RefreshStats{}, res.Err
		}
		return res.Val.(RefreshStats), nil
	case <-ctx.Done():
		return RefreshStats{}, ctx.Err()
	}
}

func (r *Registry) refresh(ctx context.Context) (RefreshStats, error) {
	before := r.Size()
	list, err := r.source.ListActiveChannels(ctx)
	if err != nil {
		metrics.ObserveRegistryRefresh(before, err)
		r.log.Error().Err(err).Int("cached", before).Msg("не удалось обновить реестр каналов, оставляем прежний")
		return RefreshStats{}, fmt.Errorf("загрузка активных каналов: %w", err)
	}
	next := buildSnapshot(list, r.now(), r.log)
	r.current.Store(next)
	stats := RefreshStats{Before: before, After: len(next.channels)}
	metrics.ObserveRegistryRefresh(stats.After, nil)

	r.log.Info().Int("before", stats.Before).Int("after", stats.After).Msg("реестр каналов обновлён")
	for _, ch := range next.channels {
		r.log.Debug().Int64("channel", ch.ChannelID).Str("title", ch.Title()).Bool("legacy", ch.IsLegacy).Msg("управляемый канал")
	}
	return stats, nil
}

func buildSnapshot(list []domain.ManagedChannel, at time.Time, logger zerolog.Logger) *snapshot {
	channels := make(map[int64]domain.ManagedChannel, len(list))
	for _, ch := range list {
		if ch.ChannelID == 0 {
			logger.Warn().Str("name", ch.Name).Str("db_id", ch.DBID).Msg("канал без идентификатора пропущен")
			continue
		}
		if _, dup := channels[ch.ChannelID]; dup {
			logger.Warn().Int64("channel", ch.ChannelID).Msg("дубликат канала в ответе бэкенда, берём последний")
		}
		channels[ch.ChannelID] = ch
	}
	return &snapshot{channels: channels, loadedAt: at}
}

// Lookup ищет канал только в кэше.
func (r *Registry) Lookup(channelID int64) (domain.ManagedChannel, bool) {
	ch, ok := r.current.Load().channels[channelID]
	return ch, ok
}

// Size возвращает количество управляемых каналов.
func (r *Registry) Size() int {
	return len(r.current.Load().channels)
}

// LoadedAt: время последнего успешного обновления.
func (r *Registry) LoadedAt() time.Time {
	return r.current.Load().loadedAt
}

// List возвращает каналы, отсортированные по названию.
func (r *Registry) List() []domain.ManagedChannel {
	snap := r.current.Load()
	out := make([]domain.ManagedChannel, 0, len(snap.channels))
	for _, ch := range snap.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title() != out[j].Title() {
			return out[i].Title() < out[j].Title()
		}
		return out[i].ChannelID < out[j].ChannelID
	})
	return out
}

var _ domain.ChannelDirectory = (*Registry)(nil)
