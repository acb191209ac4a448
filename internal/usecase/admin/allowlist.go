package admin

// AllowList: статический список администраторов бота.
type AllowList struct {
	ids map[int64]struct{}
}

// NewAllowList строит список из идентификаторов Telegram. Нулевые id игнорируются.
func NewAllowList(ids []int64) AllowList {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		set[id] = struct{}{}
	}
	return AllowList{ids: set}
}

// Allows проверяет, входит ли пользователь в список.
func (a AllowList) Allows(callerID int64) bool {
	_, ok := a.ids[callerID]
	return ok
}

// Len возвращает количество администраторов.
func (a AllowList) Len() int {
	return len(a.ids)
}
