// Package settings holds the recorder option form and renders it as CLI flags.
package settings

// Kind is the value type of an option.
type Kind int

const (
	KindBool Kind = iota
	KindNumber
	KindText
	KindChoice
)

// Option describes one recorder command-line option.
type Option struct {
	Key     string
	Label   string
	Group   string
	Kind    Kind
	Default any
	Choices []string
	Min     float64
	Max     float64
	Step    float64
}

// Catalogue lists the recorder options the form edits, in display order.
var Catalogue = []Option{
	{Key: "fps", Label: "FPS", Group: "Core", Kind: KindNumber, Default: 1.0, Min: 0.1, Max: 30, Step: 0.1},
	{Key: "port", Label: "Port", Group: "Core", Kind: KindNumber, Default: 3030.0, Min: 1, Max: 65535, Step: 1},
	{Key: "data-dir", Label: "Data directory", Group: "Core", Kind: KindText, Default: ""},
	{Key: "debug", Label: "Debug logging", Group: "Core", Kind: KindBool, Default: false},

	{Key: "disable-audio", Label: "Disable audio recording", Group: "Audio", Kind: KindBool, Default: false},
	{Key: "audio-transcription-engine", Label: "Transcription engine", Group: "Audio", Kind: KindChoice,
		Default: "whisper-large-v3-turbo", Choices: []string{"deepgram", "whisper-tiny", "whisper-large", "whisper-large-v3-turbo"}},
	{Key: "audio-chunk-duration", Label: "Audio chunk duration (s)", Group: "Audio", Kind: KindNumber, Default: 30.0, Min: 1, Max: 600, Step: 1},
	{Key: "enable-realtime-audio-transcription", Label: "Realtime transcription", Group: "Audio", Kind: KindBool, Default: false},

	{Key: "disable-vision", Label: "Disable vision recording", Group: "Vision", Kind: KindBool, Default: false},
	{Key: "ocr-engine", Label: "OCR engine", Group: "Vision", Kind: KindChoice,
		Default: "tesseract", Choices: []string{"apple-native", "windows-native", "tesseract", "unstructured"}},
	{Key: "video-chunk-duration", Label: "Video chunk duration (s)", Group: "Vision", Kind: KindNumber, Default: 60.0, Min: 1, Max: 3600, Step: 1},

	{Key: "use-pii-removal", Label: "PII removal", Group: "Advanced", Kind: KindBool, Default: false},
	{Key: "vad-engine", Label: "VAD engine", Group: "Advanced", Kind: KindChoice, Default: "silero", Choices: []string{"silero", "webrtc"}},
	{Key: "vad-sensitivity", Label: "VAD sensitivity", Group: "Advanced", Kind: KindChoice, Default: "high", Choices: []string{"low", "medium", "high"}},
}

// Lookup finds an option by key.
func Lookup(key string) (Option, bool) {
	for _, o := range Catalogue {
		if o.Key == key {
			return o, true
		}
	}
	return Option{}, false
}
