package bot

import (
	"fmt"
	"strings"

	"tg-channel-gate/internal/domain"
	"tg-channel-gate/internal/usecase/admin"
)

const timeLayout = "2006-01-02 15:04:05"

func (h *Handler) buildAdminHelp() string {
	var b strings.Builder
	b.WriteString("🤖 Бот управления доступом к каналам\n\n")
	b.WriteString("Я одобряю заявки на вступление по персональным ссылкам и отзываю ссылку сразу после входа.\n\n")
	b.WriteString("🔧 Команды администратора:\n")
	b.WriteString("• /getlink <срок> — тестовая пригласительная ссылка (например /getlink 1m, /getlink 1h, /getlink 1d)\n")
	b.WriteString("• /reload — перечитать каналы из бэкенда\n")
	b.WriteString("• /channels — список управляемых каналов\n")
	b.WriteString("• /status — состояние бота\n\n")
	fmt.Fprintf(&b, "🏢 Активных каналов: %d\n", h.admin.ChannelCount())
	fmt.Fprintf(&b, "🔗 Бэкенд: %s", h.admin.BackendURL())
	return b.String()
}

func buildUserHelp() string {
	return "🤖 Я управляю доступом к платным каналам.\n\n" +
		"Чтобы вступить в канал:\n" +
		"1. Оплатите подписку и пройдите проверку\n" +
		"2. Получите персональную ссылку\n" +
		"3. Перейдите по ссылке и отправьте заявку\n" +
		"4. Я автоматически одобрю заявку, если ссылка действительна\n\n" +
		"❓ Вопросы — к администратору канала."
}

func durationUsage() string {
	return "Использование: /getlink <срок>\n\n" +
		"Форматы:\n" +
		"• 1m — 1 минута\n" +
		"• 30m — 30 минут\n" +
		"• 1h — 1 час\n" +
		"• 1d — 1 день\n" +
		"Число без суффикса — минуты."
}

func formatStatus(r admin.StatusReport) string {
	backend := "✅ доступен"
	if !r.BackendOK() {
		backend = "❌ " + truncate(r.BackendErr.Error(), 80)
	}
	loaded := "ещё не загружались"
	if !r.LoadedAt.IsZero() {
		loaded = r.LoadedAt.Format(timeLayout)
	}
	var b strings.Builder
	b.WriteString("🤖 Состояние бота\n\n")
	fmt.Fprintf(&b, "🔗 Бэкенд: %s\n", backend)
	fmt.Fprintf(&b, "📺 Каналов: %d\n", r.Channels)
	fmt.Fprintf(&b, "🔄 Каналы обновлены: %s\n", loaded)
	fmt.Fprintf(&b, "👥 Администраторов: %d\n", r.Admins)
	fmt.Fprintf(&b, "🌐 Адрес бэкенда: %s\n", r.BackendURL)
	fmt.Fprintf(&b, "⏰ Проверено: %s", r.CheckedAt.Format(timeLayout))
	return b.String()
}

func formatChannels(list []domain.ManagedChannel) string {
	var b strings.Builder
	b.WriteString("📺 Управляемые каналы:\n")
	for _, ch := range list {
		mark := "🟢"
		if ch.IsLegacy {
			mark = "🟡"
		}
		link := "есть"
		if ch.JoinLink == "" {
			link = "нет"
		}
		fmt.Fprintf(&b, "\n%s %s\n", mark, ch.Title())
		fmt.Fprintf(&b, "   📍 ID: %d\n", ch.ChannelID)
		fmt.Fprintf(&b, "   👤 Админ: %s\n", ch.AdminID)
		fmt.Fprintf(&b, "   🔗 Ссылка: %s\n", link)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
