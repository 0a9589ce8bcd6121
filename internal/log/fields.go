package log

// Field names shared across components so log lines stay greppable.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldOwner     = "owner_id"
	FieldReceiptID = "receipt_id"
	FieldAction    = "action"
	FieldSessionID = "session_id"
	FieldQueue     = "queue"
	FieldExchange  = "exchange"
	FieldSheet     = "sheet"
)

// Component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentAuth    = "auth"
	ComponentSession = "session"
	ComponentStore   = "store"
	ComponentEvents  = "events"
	ComponentExport  = "export"
	ComponentWorker  = "worker"
)
