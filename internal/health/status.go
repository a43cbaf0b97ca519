package health

import "time"

// HealthyStatus is the only status value that counts as healthy.
const HealthyStatus = "healthy"

// NotAvailable is shown in place of a timestamp that is missing or unparseable.
const NotAvailable = "Not available"

// Status is the recorder's /health payload.
type Status struct {
	Status              string  `json:"status"`
	Message             string  `json:"message"`
	FrameStatus         string  `json:"frame_status"`
	AudioStatus         string  `json:"audio_status"`
	UIStatus            string  `json:"ui_status"`
	LastFrameTimestamp  *string `json:"last_frame_timestamp"`
	LastAudioTimestamp  *string `json:"last_audio_timestamp"`
	LastUITimestamp     *string `json:"last_ui_timestamp,omitempty"`
	VerboseInstructions *string `json:"verbose_instructions,omitempty"`
}

// Healthy reports whether the recorder declared itself healthy.
func (s Status) Healthy() bool {
	return s.Status == HealthyStatus
}

// FormatTimestamp renders an RFC 3339 timestamp in local time for display.
func FormatTimestamp(ts *string) string {
	if ts == nil || *ts == "" {
		return NotAvailable
	}
	t, err := time.Parse(time.RFC3339Nano, *ts)
	if err != nil {
		return NotAvailable
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
