package stt

// BatchResult is the vendor-neutral output of a file transcription.
type BatchResult struct {
	Text        string  `json:"text"`
	Words       []Word  `json:"words,omitempty"`
	Model       string  `json:"model,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	Provider    string  `json:"provider,omitempty"`
}
