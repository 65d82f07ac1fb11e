package domain

// Realtime event names. Case-sensitive contract with the backend.
const (
	EventConnect          = "connect"
	EventDisconnect       = "disconnect"
	EventConnectError     = "connect_error"
	EventReconnect        = "reconnect"
	EventReconnectAttempt = "reconnect_attempt"
	EventReconnectError   = "reconnect_error"
	EventReconnectFailed  = "reconnect_failed"

	EventLoginNotification = "login_notification"
	EventOrderUpdate       = "order_update"
	EventCartUpdate        = "cart_update"
	EventNotification      = "notification"
	EventFlashSaleStart    = "flash_sale_start"
	EventFlashSaleEnd      = "flash_sale_end"

	EventJoinRoom  = "join_room"
	EventLeaveRoom = "leave_room"
)
