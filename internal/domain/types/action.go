package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"

	ActionBackendRequestFailed = "backend_request_failed"
	ActionMatchmakingRun       = "matchmaking_run"
)
