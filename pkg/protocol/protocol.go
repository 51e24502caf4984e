// Package protocol defines the wire-level message, event, and RPC-method
// constants shared by the gateway and its clients. Adapted from the
// teacher's flat string-constant tables (pkg/protocol/methods.go,
// events.go), narrowed to this system's inbound/outbound message set.
package protocol

// ProtocolVersion is reported by /health and by the `basctl version`
// command; the WebSocket connect does not send it.
const ProtocolVersion = 1

// Inbound message types — client to gateway.
const (
	MsgChatInstruction    = "chat_instruction"
	MsgStartRecording     = "start_recording"
	MsgStopRecording      = "stop_recording"
	MsgExecuteScript      = "execute_script"
	MsgPauseExecution     = "pause_execution"
	MsgResumeExecution    = "resume_execution"
	MsgStopExecution      = "stop_execution"
	MsgGetExecutionStatus = "get_execution_status"
	MsgGetScripts         = "get_scripts"
	MsgGetScript          = "get_script"
	MsgDeleteScript       = "delete_script"
	MsgExportScript       = "export_script"
	MsgImportScript       = "import_script"
	MsgToggleManualMode   = "toggle_manual_mode"
	MsgNavigate           = "navigate"
	MsgClick              = "click"
	MsgType               = "type"
	MsgKeyPress           = "key_press"
	MsgScroll             = "scroll"
	MsgScreenshotRequest  = "screenshot_request"
)

// Outbound event types — gateway to client.
const (
	EventStatus              = "status"
	EventScreenshot          = "screenshot"
	EventRealTimeScreenshot  = "real_time_screenshot"
	EventExecutionStarted    = "execution_started"
	EventExecutionProgress   = "execution_progress"
	EventExecutionCompleted  = "execution_completed"
	EventExecutionFailed     = "execution_failed"
	EventExecutionPaused     = "execution_paused"
	EventExecutionResumed    = "execution_resumed"
	EventExecutionStopped    = "execution_stopped"
	EventRecordingStarted    = "recording_started"
	EventRecordingCompleted  = "recording_completed"
	EventScriptVariables     = "script_variables"
	EventError               = "error"
)

// InboundEnvelope is the outer shape of every client-to-gateway message.
type InboundEnvelope struct {
	Type string `json:"type"`

	// Fields used by one or more message types. Unused fields are left zero.
	Message     string            `json:"message,omitempty"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	ScriptID    string            `json:"script_id,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
	ExecutionID string            `json:"execution_id,omitempty"`
	URL         string            `json:"url,omitempty"`
	Target      string            `json:"target,omitempty"`
	Value       string            `json:"value,omitempty"`
	Key         string            `json:"key,omitempty"`
	Direction   string            `json:"direction,omitempty"`
	Options     map[string]any    `json:"options,omitempty"`
	Conflict    string            `json:"conflict,omitempty"`
	Package     map[string]any    `json:"package,omitempty"`
	ValidateOnly bool             `json:"validate_only,omitempty"`
}

// OutboundEvent is the outer shape of every gateway-to-client message.
type OutboundEvent struct {
	Type string `json:"type"`
	Payload any  `json:"-"`
}

// NewEvent builds an OutboundEvent. MarshalJSON flattens Payload's fields
// alongside Type so clients see a single flat object, matching spec §6's
// canonical outbound shapes.
func NewEvent(eventType string, payload any) *OutboundEvent {
	return &OutboundEvent{Type: eventType, Payload: payload}
}
