package adapters

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/voxgate/voxgate/internal/adapters/assemblyai"
	"github.com/voxgate/voxgate/internal/adapters/deepgram"
	"github.com/voxgate/voxgate/internal/adapters/gladia"
	"github.com/voxgate/voxgate/internal/adapters/openaistt"
	"github.com/voxgate/voxgate/internal/adapters/soniox"
	"github.com/voxgate/voxgate/internal/adapters/transcribe"
	"github.com/voxgate/voxgate/internal/providers"
)

// Options configures the registry. APIBases substitutes REST bases per
// vendor, mainly for tests and self-hosted gateways.
type Options struct {
	HTTPClient     *http.Client
	APIBases       map[providers.Provider]string
	AWSRegion      string
	AWSCredentials aws.CredentialsProvider
}

// Registry hands routes the adapter for a resolved provider.
type Registry struct {
	realtime map[providers.Provider]Realtime
	batch    map[providers.Provider]Batch
}

func NewRegistry(opts Options) *Registry {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	base := func(p providers.Provider) string { return opts.APIBases[p] }

	gladiaAdapter := gladia.New(httpClient, base(providers.Gladia))

	r := &Registry{
		realtime: map[providers.Provider]Realtime{
			providers.Deepgram:   deepgram.New(),
			providers.Soniox:     soniox.New(),
			providers.AssemblyAI: assemblyai.New(),
			providers.Gladia:     gladiaAdapter,
			providers.OpenAI:     openaistt.New(),
		},
		batch: map[providers.Provider]Batch{
			providers.Deepgram:   deepgram.NewBatchClient(httpClient, base(providers.Deepgram)),
			providers.Soniox:     soniox.NewBatchClient(httpClient, base(providers.Soniox)),
			providers.AssemblyAI: assemblyai.NewBatchClient(httpClient, base(providers.AssemblyAI)),
			providers.OpenAI:     openaistt.NewBatchClient(base(providers.OpenAI)),
		},
	}
	if opts.AWSRegion != "" {
		r.realtime[providers.AmazonTranscribe] = transcribe.New(opts.AWSRegion, opts.AWSCredentials)
	}
	return r
}

// Realtime returns the live adapter for a provider.
func (r *Registry) Realtime(p providers.Provider) (Realtime, bool) {
	a, ok := r.realtime[p]
	return a, ok
}

// Batch returns the file transcription client for a provider.
func (r *Registry) Batch(p providers.Provider) (Batch, bool) {
	b, ok := r.batch[p]
	return b, ok
}
