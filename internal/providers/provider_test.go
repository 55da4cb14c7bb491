package providers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse("Deepgram")
	require.NoError(t, err)
	require.Equal(t, Deepgram, p)

	_, err = Parse("acme")
	require.Error(t, err)
}

func TestDefinitionsComplete(t *testing.T) {
	for _, p := range All() {
		require.NotEmpty(t, p.EnvKey(), "%s env key", p)
		if p.SupportsRealtime() && p.Auth().Scheme != SchemeSessionInit && p.Auth().Scheme != SchemePresignedURL {
			require.NotEmpty(t, p.DefaultWSHost(), "%s ws host", p)
			require.NotEmpty(t, p.WSPath(), "%s ws path", p)
		}
		if p.SupportsBatch() {
			require.NotEmpty(t, p.DefaultAPIBase(), "%s api base", p)
			require.NotEmpty(t, p.DefaultBatchModel(), "%s batch model", p)
		}
	}
}

func TestKnownControlKinds(t *testing.T) {
	kinds := KnownControlKinds()
	for _, kind := range []string{"KeepAlive", "Finalize", "CloseStream", "keepalive", "finalize", "Terminate", "stop_recording"} {
		require.True(t, kinds[kind], kind)
	}
	require.False(t, kinds["Results"])
}

func TestSupportLevel(t *testing.T) {
	require.Equal(t, SupportExcellent, SupportLevel(Deepgram, []string{"en", "es"}))
	require.Equal(t, SupportHigh, SupportLevel(Deepgram, []string{"en", "fr"}))
	require.Equal(t, SupportNoData, SupportLevel(Soniox, []string{"en", "ka"}))
	require.Equal(t, SupportNone, SupportLevel(AssemblyAI, []string{"en", "ka"}))
	require.Equal(t, SupportNone, SupportLevel(AssemblyAI, []string{"ka"}))
	require.Equal(t, SupportHigh, SupportLevel(Deepgram, nil))
	require.Equal(t, SupportNone, SupportLevel(AmazonTranscribe, []string{"en"}))

	require.True(t, SupportModerate.Supported())
	require.False(t, SupportNone.Supported())
	require.Equal(t, "excellent", SupportExcellent.String())
	require.Equal(t, "unsupported", SupportNone.String())
}
