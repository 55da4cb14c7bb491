package openaistt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxgate/voxgate/internal/stt"
)

func TestBuildWSURL(t *testing.T) {
	u, err := New().BuildWSURL("", stt.DefaultListenParams(), nil)
	require.NoError(t, err)
	require.Equal(t, "wss://api.openai.com/v1/realtime?intent=transcription", u.String())
}

func TestHandshakeHeaders(t *testing.T) {
	require.Equal(t, "realtime=v1", New().HandshakeHeaders().Get("OpenAI-Beta"))
}

func TestParseDelta(t *testing.T) {
	raw := []byte(`{"type":"conversation.item.input_audio_transcription.delta","item_id":"item-1","delta":"hel"}`)
	responses, ok := New().ParseResponse(raw)
	require.True(t, ok)
	require.False(t, responses[0].IsFinal)
	require.Equal(t, "hel", responses[0].Channel.Alternatives[0].Transcript)
}

func TestParseCompleted(t *testing.T) {
	raw := []byte(`{"type":"conversation.item.input_audio_transcription.completed","item_id":"item-1","transcript":"hello world"}`)
	responses, ok := New().ParseResponse(raw)
	require.True(t, ok)
	require.True(t, responses[0].IsFinal)
	require.True(t, responses[0].SpeechFinal)
	require.Equal(t, "hello world", responses[0].Channel.Alternatives[0].Transcript)
}

func TestParseUnknownPassesThrough(t *testing.T) {
	_, ok := New().ParseResponse([]byte(`{"type":"response.audio.delta"}`))
	require.False(t, ok)
}

func TestDetectError(t *testing.T) {
	raw := []byte(`{"type":"error","error":{"type":"invalid_request_error","code":"invalid_api_key","message":"bad key"}}`)
	perr := New().DetectError(raw)
	require.NotNil(t, perr)
	require.Equal(t, 401, perr.HTTPCode)
	require.Equal(t, 4401, perr.WSCloseCode())
	require.Equal(t, "invalid_api_key", perr.ProviderCode)

	perr = New().DetectError([]byte(`{"type":"error","error":{"code":"mystery"}}`))
	require.Equal(t, 500, perr.HTTPCode)

	require.Nil(t, New().DetectError([]byte(`{"type":"session.created"}`)))
}
