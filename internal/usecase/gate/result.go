package gate

// Outcome: итог обработки одной заявки.
type Outcome string

const (
	OutcomeApproved    Outcome = "approved"
	OutcomeDeclined    Outcome = "declined"
	OutcomeRaceSkipped Outcome = "race_skipped"
	OutcomeFailed      Outcome = "failed"
)

// Reason: почему заявка была отклонена.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonUnmanagedChannel   Reason = "unmanaged_channel"
	ReasonMissingLink        Reason = "missing_link"
	ReasonBackendUnavailable Reason = "backend_unavailable"
	ReasonBackendError       Reason = "backend_error"
	ReasonRejected           Reason = "rejected"
)

// Result описывает, чем закончилась обработка заявки.
type Result struct {
	Outcome Outcome
	Reason  Reason
	// BackendReason: причина отказа, которую вернул бэкенд.
	BackendReason string
	// Err: ошибка, из-за которой заявка отклонена, пропущена или не обработана.
	Err error
	// RevokeErr: ссылку не удалось отозвать после одобрения.
	RevokeErr error
}

// Terminal сообщает, была ли заявка разрешена в Telegram (одобрена или отклонена).
func (r Result) Terminal() bool {
	return r.Outcome == OutcomeApproved || r.Outcome == OutcomeDeclined
}
