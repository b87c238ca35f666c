package log

// Field names used across packages. Log keys are part of the operational
// surface; dashboards and alerts key on them, so they live in one place.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldTransactionID = "transaction_id"
	FieldFlowType      = "flow_type"
	FieldCount         = "count"
	FieldTotalRows     = "total_rows"
	FieldImportedCount = "imported_count"
	FieldErrorCount    = "error_count"
)

// Component names for the FieldComponent key.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentImporter = "importer"
	ComponentReport   = "report"
	ComponentEvents   = "events"
	ComponentCache    = "cache"
)
