package gate

import "fmt"

const defaultRejectReason = "ссылка не прошла проверку"

func welcomeMessage(title string) string {
	return fmt.Sprintf("🎉 Добро пожаловать в %s!\n\n"+
		"Доступ одобрен и уже активен.\n\n"+
		"📋 Важно:\n"+
		"• доступ ограничен сроком вашего тарифа\n"+
		"• перед окончанием срока придёт уведомление\n"+
		"• отсчёт начался с момента вступления\n\n"+
		"По любым вопросам пишите в поддержку.", title)
}

func declineMessage(title string, reason Reason, backendReason string) string {
	switch reason {
	case ReasonUnmanagedChannel:
		return fmt.Sprintf("❌ Канал %s не подключён к автоматическому управлению доступом.", title)
	case ReasonMissingLink:
		return fmt.Sprintf("❌ Заявка в %s отклонена: вступить можно только по персональной пригласительной ссылке.", title)
	case ReasonBackendUnavailable, ReasonBackendError:
		return fmt.Sprintf("❌ Не удалось проверить вашу ссылку в %s. Попробуйте отправить заявку ещё раз позже.", title)
	default:
		if backendReason == "" {
			backendReason = defaultRejectReason
		}
		return fmt.Sprintf("❌ Доступ в %s запрещён\n\nПричина: %s\n\nЕсли это ошибка, свяжитесь с поддержкой.", title, backendReason)
	}
}
