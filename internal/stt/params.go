package stt

// ListenParams captures the vendor-neutral knobs a client may set on a
// realtime or batch transcription session. Adapters translate these into
// vendor query strings or initial messages.
type ListenParams struct {
	Model            string
	Languages        []string
	SampleRate       int
	Channels         int
	Keywords         []string
	Prompt           string
	RedemptionTimeMS int
	InterimResults   bool
	Diarize          bool
	Punctuate        bool
	SmartFormat      bool
}

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
)

// DefaultListenParams returns the baseline session parameters applied when a
// client omits them.
func DefaultListenParams() ListenParams {
	return ListenParams{
		SampleRate:     DefaultSampleRate,
		Channels:       DefaultChannels,
		InterimResults: true,
		Punctuate:      true,
	}
}

// PrimaryLanguage returns the first requested language, or empty when the
// client asked for automatic detection.
func (p ListenParams) PrimaryLanguage() string {
	if len(p.Languages) == 0 {
		return ""
	}
	return p.Languages[0]
}
