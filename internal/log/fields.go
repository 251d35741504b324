package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldExpenseID   = "expense_id"
	FieldCategoryID  = "category_id"
	FieldRecurringID = "recurring_id"
	FieldAmountCents = "amount_cents"
	FieldRecurrence  = "recurrence"
	FieldOccurrence  = "occurrence_date"
	FieldGenerated   = "generated"
)

// Component names attached to every line a Logger emits.
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)
