// Package transcribe adapts Amazon Transcribe streaming. The vendor
// authenticates through a SigV4-presigned websocket URL, so the adapter
// signs rather than attaching headers or messages.
package transcribe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/voxgate/voxgate/internal/providers"
	"github.com/voxgate/voxgate/internal/stt"
	"github.com/voxgate/voxgate/internal/wsurl"
)

const (
	serviceName   = "transcribe"
	presignExpiry = 300
)

var emptyPayloadHash = func() string {
	sum := sha256.Sum256(nil)
	return hex.EncodeToString(sum[:])
}()

type Adapter struct {
	region string
	creds  aws.CredentialsProvider
	signer *v4.Signer
	now    func() time.Time
}

func New(region string, creds aws.CredentialsProvider) *Adapter {
	return &Adapter{
		region: region,
		creds:  creds,
		signer: v4.NewSigner(),
		now:    time.Now,
	}
}

func (*Adapter) Provider() providers.Provider { return providers.AmazonTranscribe }

func (a *Adapter) defaultHost() string {
	return fmt.Sprintf("transcribestreaming.%s.amazonaws.com:8443", a.region)
}

func (a *Adapter) BuildWSURL(host string, params stt.ListenParams, extra []wsurl.Param) (*url.URL, error) {
	if host == "" {
		host = a.defaultHost()
	}
	defaults := []wsurl.Param{
		{Key: "media-encoding", Value: "pcm"},
		{Key: "sample-rate", Value: strconv.Itoa(params.SampleRate)},
	}
	if lang := params.PrimaryLanguage(); lang != "" {
		defaults = append(defaults, wsurl.Param{Key: "language-code", Value: transcribeLanguage(lang)})
	} else {
		defaults = append(defaults, wsurl.Param{Key: "identify-language", Value: "true"})
	}
	return wsurl.Build(host, providers.AmazonTranscribe.WSPath(), wsurl.Merge(defaults, extra))
}

// transcribeLanguage widens bare ISO 639-1 codes to the region-qualified
// codes the service expects.
func transcribeLanguage(code string) string {
	switch code {
	case "en":
		return "en-US"
	case "es":
		return "es-US"
	case "fr":
		return "fr-FR"
	case "de":
		return "de-DE"
	case "it":
		return "it-IT"
	case "pt":
		return "pt-BR"
	case "ja":
		return "ja-JP"
	case "ko":
		return "ko-KR"
	case "zh":
		return "zh-CN"
	}
	return code
}

// SignWSURL presigns the websocket URL with SigV4. Signing happens over the
// https form of the URL; the scheme flips back to wss for dialing.
func (a *Adapter) SignWSURL(ctx context.Context, u *url.URL) (*url.URL, error) {
	if a.creds == nil {
		return nil, fmt.Errorf("amazon transcribe credentials are not configured")
	}
	creds, err := a.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve aws credentials: %w", err)
	}

	signTarget := *u
	signTarget.Scheme = "https"
	q := signTarget.Query()
	q.Set("X-Amz-Expires", strconv.Itoa(presignExpiry))
	signTarget.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signTarget.String(), nil)
	if err != nil {
		return nil, err
	}
	signedURI, _, err := a.signer.PresignHTTP(ctx, creds, req, emptyPayloadHash, serviceName, a.region, a.now())
	if err != nil {
		return nil, fmt.Errorf("presign websocket url: %w", err)
	}
	signed, err := url.Parse(signedURI)
	if err != nil {
		return nil, err
	}
	signed.Scheme = u.Scheme
	return signed, nil
}

// The stream uses AWS event-stream framing, which clients decode end to
// end; the relay passes it through as binary.
func (*Adapter) ParseResponse([]byte) ([]stt.StreamResponse, bool) { return nil, false }

func (*Adapter) DetectError([]byte) *stt.ProviderError { return nil }
