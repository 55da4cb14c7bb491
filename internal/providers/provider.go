package providers

import (
	"fmt"
	"strings"
)

// Provider identifies one upstream speech or transcription vendor.
type Provider string

const (
	Deepgram         Provider = "deepgram"
	Soniox           Provider = "soniox"
	AssemblyAI       Provider = "assemblyai"
	Gladia           Provider = "gladia"
	OpenAI           Provider = "openai"
	AmazonTranscribe Provider = "amazontranscribe"
)

// Auto is accepted in requests and resolves via the selector's language
// routing rather than naming a vendor directly.
const Auto = "auto"

func All() []Provider {
	return []Provider{Deepgram, Soniox, AssemblyAI, Gladia, OpenAI, AmazonTranscribe}
}

func Parse(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range All() {
		if p == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", name)
}

func (p Provider) String() string { return string(p) }

// definition holds the static wiring for one vendor. The tables below are
// the single source of truth for hosts, paths, models, and control-message
// vocabularies; adapters and the relay consume them rather than hard-coding
// vendor strings.
type definition struct {
	wsHost          string
	wsPath          string
	apiBase         string
	liveModel       string
	batchModel      string
	auth            AuthMode
	controlMessages []string
	envKey          string
	realtime        bool
	batch           bool
}

var definitions = map[Provider]definition{
	Deepgram: {
		wsHost:          "api.deepgram.com",
		wsPath:          "/v1/listen",
		apiBase:         "https://api.deepgram.com/v1",
		liveModel:       "nova-3",
		batchModel:      "nova-3",
		auth:            HeaderAuth("Authorization", "Token "),
		controlMessages: []string{"KeepAlive", "CloseStream", "Finalize"},
		envKey:          "DEEPGRAM_API_KEY",
		realtime:        true,
		batch:           true,
	},
	Soniox: {
		wsHost:          "stt-rt.soniox.com",
		wsPath:          "/transcribe-websocket",
		apiBase:         "https://api.soniox.com/v1",
		liveModel:       "stt-rt-v3",
		batchModel:      "stt-async-v3",
		auth:            FirstMessageAuth("api_key"),
		controlMessages: []string{"keepalive", "finalize"},
		envKey:          "SONIOX_API_KEY",
		realtime:        true,
		batch:           true,
	},
	AssemblyAI: {
		wsHost:          "streaming.assemblyai.com",
		wsPath:          "/v3/ws",
		apiBase:         "https://api.assemblyai.com",
		liveModel:       "universal-streaming",
		batchModel:      "universal",
		auth:            HeaderAuth("Authorization", ""),
		controlMessages: []string{"Terminate", "ForceEndpoint"},
		envKey:          "ASSEMBLYAI_API_KEY",
		realtime:        true,
		batch:           true,
	},
	Gladia: {
		apiBase:         "https://api.gladia.io/v2",
		liveModel:       "solaria-1",
		batchModel:      "solaria-1",
		auth:            SessionInitAuth("X-Gladia-Key"),
		controlMessages: []string{"stop_recording"},
		envKey:          "GLADIA_API_KEY",
		realtime:        true,
	},
	OpenAI: {
		wsHost:     "api.openai.com",
		wsPath:     "/v1/realtime",
		apiBase:    "https://api.openai.com/v1",
		liveModel:  "gpt-4o-transcribe",
		batchModel: "gpt-4o-transcribe",
		auth:       HeaderAuth("Authorization", "Bearer "),
		envKey:     "OPENAI_API_KEY",
		realtime:   true,
		batch:      true,
	},
	AmazonTranscribe: {
		wsHost:   "transcribestreaming.us-east-1.amazonaws.com:8443",
		wsPath:   "/stream-transcription-websocket",
		auth:     PresignedURLAuth(),
		envKey:   "AWS_ACCESS_KEY_ID",
		realtime: true,
	},
}

func (p Provider) def() definition { return definitions[p] }

// DefaultWSHost is the vendor's realtime websocket host, including the port
// when the vendor listens off 443.
func (p Provider) DefaultWSHost() string { return p.def().wsHost }

func (p Provider) WSPath() string { return p.def().wsPath }

// DefaultAPIBase is the vendor's REST base URL, used for batch endpoints and
// session-init pre-flights.
func (p Provider) DefaultAPIBase() string { return p.def().apiBase }

func (p Provider) DefaultLiveModel() string  { return p.def().liveModel }
func (p Provider) DefaultBatchModel() string { return p.def().batchModel }

func (p Provider) Auth() AuthMode { return p.def().auth }

// ControlMessages lists the JSON "type" values this vendor accepts as
// in-band control frames. The relay drops control frames outside this list.
func (p Provider) ControlMessages() []string { return p.def().controlMessages }

// EnvKey is the conventional environment variable holding the vendor key.
func (p Provider) EnvKey() string { return p.def().envKey }

func (p Provider) SupportsRealtime() bool { return p.def().realtime }
func (p Provider) SupportsBatch() bool    { return p.def().batch }

// KnownControlKinds is the union of every vendor's control vocabulary. The
// relay uses it to decide whether a client text frame is a control message
// at all, independent of which vendor the session targets.
func KnownControlKinds() map[string]bool {
	kinds := make(map[string]bool)
	for _, def := range definitions {
		for _, kind := range def.controlMessages {
			kinds[kind] = true
		}
	}
	return kinds
}
