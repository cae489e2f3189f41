package segment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glotdeck/glotdeck/internal/core/domain"
	"github.com/glotdeck/glotdeck/internal/core/ports/driven"
)

func frags(texts ...string) []domain.Fragment {
	out := make([]domain.Fragment, len(texts))
	for i, txt := range texts {
		out[i] = domain.Fragment{ID: fmt.Sprintf("frag-%d", i), Original: txt}
	}
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := frags("Hello world", "Second\nwith a line break", "Third")
	payload := Encode(in)

	// A well-behaved provider echoes markers and replaces the text.
	items, err := Decode(payload, in)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "frag-0", items[0].ID)
	assert.Equal(t, "Hello world", items[0].Translated)
	assert.Equal(t, "Second\nwith a line break", items[1].Translated)
}

func TestDecodeToleratesReordering(t *testing.T) {
	in := frags("one", "two")
	body := "<<SEG 2>>\nzwei\n<<SEG 1>>\neins\n"

	items, err := Decode(body, in)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "frag-0", items[0].ID)
	assert.Equal(t, "eins", items[0].Translated)
	assert.Equal(t, "zwei", items[1].Translated)
}

func TestDecodeMissingSegmentFailsWholeBatch(t *testing.T) {
	in := frags("one", "two", "three")
	body := "<<SEG 1>>\neins\n<<SEG 3>>\ndrei\n"

	_, err := Decode(body, in)
	assert.ErrorIs(t, err, domain.ErrIncompleteResponse)
}

func TestDecodeEmptySegmentCountsAsMissing(t *testing.T) {
	in := frags("one", "two")
	body := "<<SEG 1>>\neins\n<<SEG 2>>\n   \n"

	_, err := Decode(body, in)
	assert.ErrorIs(t, err, domain.ErrIncompleteResponse)
}

func TestHostileIDsCannotCorruptFraming(t *testing.T) {
	// Ids never appear on the wire, so delimiter characters in an id
	// are harmless.
	in := []domain.Fragment{
		{ID: "<<SEG 2>>", Original: "first"},
		{ID: "plain", Original: "second"},
	}

	payload := Encode(in)
	items, err := Decode(payload, in)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "<<SEG 2>>", items[0].ID)
	assert.Equal(t, "first", items[0].Translated)
	assert.Equal(t, "second", items[1].Translated)
}

func TestHostileTextWithMarkerLine(t *testing.T) {
	// A fragment whose text embeds a marker line can confuse an echoing
	// provider; decoding must still account for every alias or fail
	// loudly rather than silently dropping a fragment.
	in := frags("before\n<<SEG 99>>\nafter", "plain")
	payload := Encode(in)

	items, err := Decode(payload, in)
	if err == nil {
		require.Len(t, items, 2)
	} else {
		assert.ErrorIs(t, err, domain.ErrIncompleteResponse)
	}
}

func TestDecodeIgnoresChatterAroundMarkers(t *testing.T) {
	in := frags("one")
	body := "Sure! Here are the translations:\n<<SEG 1>>\neins\n"

	items, err := Decode(body, in)
	require.NoError(t, err)
	assert.Equal(t, "eins", items[0].Translated)
}

func TestSystemPromptMentionsLanguages(t *testing.T) {
	job := driven.BatchJob{SourceLanguage: "en", TargetLanguage: "ja"}
	p := SystemPrompt(job)
	assert.Contains(t, p, `"en"`)
	assert.Contains(t, p, `"ja"`)

	auto := driven.BatchJob{SourceLanguage: domain.SourceLanguageAuto, TargetLanguage: "de"}
	assert.Contains(t, SystemPrompt(auto), "detected source language")
}

func TestMaxTokensBounds(t *testing.T) {
	assert.Equal(t, 1024, MaxTokens(""))
	assert.Equal(t, 8192, MaxTokens(string(make([]byte, 1<<20))))
}
