package stt

// ResponseType discriminates the canonical realtime frames adapters emit.
type ResponseType string

const (
	ResponseTranscript ResponseType = "Results"
	ResponseMetadata   ResponseType = "Metadata"
	ResponseControlAck ResponseType = "ControlAck"
	ResponseError      ResponseType = "Error"
)

// Word is one recognized word with timing in seconds.
type Word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Speaker        *int    `json:"speaker,omitempty"`
	Language       string  `json:"language,omitempty"`
}

// Alternative is one hypothesis for an utterance.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// Channel groups the alternatives for one audio channel.
type Channel struct {
	Alternatives []Alternative `json:"alternatives"`
}

// StreamResponse is the canonical realtime frame. Transcript frames carry a
// channel with alternatives; metadata and control acks carry only the fields
// that apply to them. The wire shape matches what most clients already parse
// for Deepgram-style streams, so pure relay clients keep working unchanged.
type StreamResponse struct {
	Type         ResponseType `json:"type"`
	ChannelIndex []int        `json:"channel_index,omitempty"`
	IsFinal      bool         `json:"is_final,omitempty"`
	SpeechFinal  bool         `json:"speech_final,omitempty"`
	FromFinalize bool         `json:"from_finalize,omitempty"`
	Start        float64      `json:"start,omitempty"`
	Duration     float64      `json:"duration,omitempty"`
	Channel      *Channel     `json:"channel,omitempty"`
	RequestID    string       `json:"request_id,omitempty"`
	Control      string       `json:"control,omitempty"`
	Description  string       `json:"description,omitempty"`
}

// TranscriptResponse builds a canonical transcript frame for a single
// channel with a single alternative, the shape every adapter produces.
func TranscriptResponse(channel int, alt Alternative, isFinal bool) StreamResponse {
	return StreamResponse{
		Type:         ResponseTranscript,
		ChannelIndex: []int{channel},
		IsFinal:      isFinal,
		Channel:      &Channel{Alternatives: []Alternative{alt}},
	}
}

// SessionHandle identifies a provider-created streaming session.
type SessionHandle struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
