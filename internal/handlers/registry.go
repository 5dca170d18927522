package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	HealthHandler   *HealthHandler
	ChatHandler     *ChatHandler
	PushHandler     *PushHandler
	PresenceHandler *PresenceHandler
}
