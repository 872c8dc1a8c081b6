package library

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fcerrors "github.com/randalmurphal/vapiflow/pkg/flowconv/errors"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/target"
)

const fixture = "../testdata/library.json"

func loaded(t *testing.T, opts ...Option) *Library {
	t.Helper()
	l := New(append([]Option{WithIDGenerator(target.NewSequenceGenerator())}, opts...)...)
	n, err := l.LoadFile(fixture)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	return l
}

func TestLoad_FirstOccurrenceWins(t *testing.T) {
	l := loaded(t)

	assert.Equal(t, []string{"ChatInput", "OpenAIModel", "Agent", "ConditionalRouter", "ChatOutput"}, l.Types())

	tpl, err := l.Get("OpenAIModel")
	require.NoError(t, err)
	node := tpl.Doc["data"].(map[string]any)["node"].(map[string]any)
	assert.Equal(t, "OpenAI", node["display_name"])
}

func TestLoad_BareNodeList(t *testing.T) {
	l := New()
	n, err := l.Load(strings.NewReader(`{"nodes":[{"id":"X-1","data":{"type":"X"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, l.Has("X"))
}

func TestLoad_Layering(t *testing.T) {
	l := loaded(t)
	n, err := l.Load(strings.NewReader(`{"data":{"nodes":[
		{"id":"Agent-new","data":{"type":"Agent"}},
		{"id":"Prompt-1","data":{"type":"Prompt"}}
	]}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 6, l.Len())
}

func TestLoad_Errors(t *testing.T) {
	_, err := New().Load(strings.NewReader(`{"data":`))
	assert.Error(t, err)

	_, err = New().LoadFile("missing.json")
	assert.Error(t, err)
}

func TestClone_FreshIdentity(t *testing.T) {
	l := loaded(t)

	a, err := l.Clone("OpenAIModel")
	require.NoError(t, err)
	b, err := l.Clone("OpenAIModel")
	require.NoError(t, err)

	assert.Equal(t, "OpenAIModel-00001", a.ID)
	assert.Equal(t, "OpenAIModel-00002", b.ID)
	assert.Equal(t, "OpenAIModel", a.Type)

	doc := a.Document()
	assert.Equal(t, a.ID, doc["id"])
	assert.Equal(t, a.ID, doc["data"].(map[string]any)["id"])

	// clones are independent of each other and of the template
	a.SetField("system_message", "changed")
	v, _ := b.Field("system_message")
	assert.Equal(t, "", v)
	tpl, _ := l.Get("OpenAIModel")
	slot := tpl.Doc["data"].(map[string]any)["node"].(map[string]any)["template"].(map[string]any)["system_message"].(map[string]any)
	assert.Equal(t, "", slot["value"])
}

func TestGet_Fallbacks(t *testing.T) {
	l := New(WithIDGenerator(target.NewSequenceGenerator()))
	l.Register(Template{Type: "Agent", Doc: map[string]any{"data": map[string]any{"type": "Agent"}}})

	resolved, err := l.Resolve("OpenAIModel")
	require.NoError(t, err)
	assert.Equal(t, "Agent", resolved)

	n, err := l.Clone("OpenAIModel")
	require.NoError(t, err)
	assert.Equal(t, "Agent", n.Type)
	assert.True(t, strings.HasPrefix(n.ID, "Agent-"))
}

func TestGet_Unknown(t *testing.T) {
	l := New(WithFallbacks(map[string][]string{"OpenAIModel": {"OpenAI"}}))

	_, err := l.Get("OpenAIModel")
	var ue *fcerrors.UnknownComponentTypeError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "OpenAIModel", ue.Type)
	assert.Equal(t, []string{"OpenAI"}, ue.Tried)
	assert.True(t, fcerrors.IsFatal(err))

	_, err = l.Clone("ConditionalRouter")
	assert.True(t, errors.Is(err, fcerrors.ErrUnknownComponentType))
}

func TestRegister_CopiesDocument(t *testing.T) {
	l := New()
	doc := map[string]any{"data": map[string]any{"type": "X", "node": map[string]any{"display_name": "before"}}}
	require.True(t, l.Register(Template{Type: "X", Doc: doc}))
	doc["data"].(map[string]any)["node"].(map[string]any)["display_name"] = "after"

	n, err := l.Clone("X")
	require.NoError(t, err)
	assert.Equal(t, "before", n.DisplayName())
}

func TestClone_Concurrent(t *testing.T) {
	l := loaded(t, WithIDGenerator(target.NewUUIDGenerator()))

	var wg sync.WaitGroup
	ids := make(chan string, 200)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				n, err := l.Clone("ChatOutput")
				if assert.NoError(t, err) {
					ids <- n.ID
				}
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, 200)
}
