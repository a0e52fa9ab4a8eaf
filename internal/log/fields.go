package log

// Field names shared by every club log record.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldOutcome    = "outcome"
	FieldSource     = "source"
	FieldMemberID   = "member_id"
	FieldRole       = "role"
	FieldEventType  = "event_type"
	FieldEntityID   = "entity_id"
	FieldSheetsTab  = "sheets_tab"
	FieldSheetsRef  = "sheets_ref"
)

const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentAuth       = "auth"
	ComponentAttendance = "attendance"
	ComponentLedger     = "ledger"
	ComponentEvents     = "events"
	ComponentWorker     = "worker"
	ComponentSecurity   = "security"
	ComponentRateLimit  = "rate_limit"
)

const (
	OpCheckIn = "check_in"
	OpCreate  = "create"
	OpDelete  = "delete"
	OpPublish = "publish"
	OpExport  = "export"
)

// LogFields builds the key/value list for one record.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError is a no-op for a nil err.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithOutcome(outcome string) LogFields {
	f[FieldOutcome] = outcome
	return f
}

// WithMember adds the member id and, when known, the caller role.
func (f LogFields) WithMember(memberID, role string) LogFields {
	f[FieldMemberID] = memberID
	if role != "" {
		f[FieldRole] = role
	}
	return f
}

// WithEvent identifies a broker event by type and entity id.
func (f LogFields) WithEvent(eventType, entityID string) LogFields {
	f[FieldEventType] = eventType
	f[FieldEntityID] = entityID
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	if referer != "" {
		f[FieldReferer] = referer
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice flattens the fields into slog's alternating key/value form.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
