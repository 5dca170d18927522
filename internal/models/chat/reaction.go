package chat

// ReactionMap - emoji -> id пользователей, поставивших реакцию.
// Порядок не важен, дубликатов нет, пустых ключей нет.
type ReactionMap map[string][]string

// Toggle ставит или снимает реакцию. Возвращает true, если реакция добавлена.
func (m ReactionMap) Toggle(emoji, userID string) bool {
	users := m[emoji]
	for i, id := range users {
		if id == userID {
			rest := append(users[:i:i], users[i+1:]...)
			if len(rest) == 0 {
				delete(m, emoji)
			} else {
				m[emoji] = rest
			}
			return false
		}
	}
	m[emoji] = append(users, userID)
	return true
}

// Has - стоит ли реакция emoji от userID
func (m ReactionMap) Has(emoji, userID string) bool {
	for _, id := range m[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone - глубокая копия
func (m ReactionMap) Clone() ReactionMap {
	out := make(ReactionMap, len(m))
	for emoji, users := range m {
		out[emoji] = append([]string(nil), users...)
	}
	return out
}
