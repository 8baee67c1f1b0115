package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldRoute     = "route"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Service
	FieldService = "service"

	// Playback
	FieldViewerID   = "viewer_id"
	FieldDeviceID   = "device_id"
	FieldCamera     = "camera"
	FieldChunkIndex = "chunk_index"
	FieldToken      = "load_token"
)
