package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError    ErrorCode = "DATABASE_ERROR"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// сквозные для HTTP и websocket
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
)

// Коды чата
const (
	// Отказ по политике (mute, ban, rate limit)
	CodeUserMuted   ErrorCode = "USER_MUTED"
	CodeUserBanned  ErrorCode = "USER_BANNED"
	CodeRateLimited ErrorCode = "RATE_LIMITED"

	// Не найдено / запрещено
	CodeMessageNotFound  ErrorCode = "MESSAGE_NOT_FOUND"
	CodeNotMessageOwner  ErrorCode = "NOT_MESSAGE_OWNER"
	CodeChatAccessDenied ErrorCode = "CHAT_ACCESS_DENIED"
	CodeInvalidChatID    ErrorCode = "INVALID_CHAT_ID"
	CodeInvalidMessage   ErrorCode = "INVALID_MESSAGE"

	// Звонки
	CodeCallBusy      ErrorCode = "CALL_BUSY"
	CodeCallOffline   ErrorCode = "CALL_TARGET_OFFLINE"
	CodeNoActiveCall  ErrorCode = "NO_ACTIVE_CALL"
	CodeInvalidSignal ErrorCode = "INVALID_SIGNAL"
)
