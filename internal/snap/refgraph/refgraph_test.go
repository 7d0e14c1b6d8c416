package refgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
	"$id": "1",
	"Players": {"$values": [
		{"$id": "2", "Name": "Alice", "Friend": {"$ref": "3"}},
		{"$id": "3", "Name": "Bob", "Friend": {"$ref": "2"}}
	]},
	"Local": {"$ref": "2"},
	"Dangling": {"$ref": "99"}
}`

func TestDecode_IndexesIDs(t *testing.T) {
	g, err := Decode([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	obj, ok := g.Lookup("3")
	require.True(t, ok)
	assert.Equal(t, "Bob", obj["Name"])
}

func TestDecode_StripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"$id":"1","A":1}`)...)
	g, err := Decode(data)
	require.NoError(t, err)

	n, ok := g.Int(g.Root(), "A")
	require.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestDecode_TornDocument(t *testing.T) {
	_, err := Decode([]byte(`{"RemoteGame": {"GameState": {`))
	assert.Error(t, err)

	_, err = Decode([]byte("   "))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	g, err := Decode([]byte(sample))
	require.NoError(t, err)
	root := g.Root().(map[string]any)

	t.Run("ResolvesExistingTarget", func(t *testing.T) {
		got := g.Resolve(root["Local"])
		obj, ok := got.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Alice", obj["Name"])
	})

	t.Run("DanglingReturnsOriginal", func(t *testing.T) {
		dangling := root["Dangling"]
		got := g.Resolve(dangling)
		assert.Equal(t, dangling, got)
		assert.True(t, IsUnresolvedRef(got))
	})

	t.Run("NonReferenceUnchanged", func(t *testing.T) {
		assert.Equal(t, "x", g.Resolve("x"))
		assert.Equal(t, 3.0, g.Resolve(3.0))
	})

	t.Run("SingleDereference", func(t *testing.T) {
		chain := Build(map[string]any{
			"a": map[string]any{"$id": "a", "$ref": "b"},
			"b": map[string]any{"$id": "b", "v": 1.0},
		})
		got := chain.Resolve(map[string]any{"$ref": "a"})
		obj := got.(map[string]any)
		assert.Equal(t, "a", obj["$id"])
	})
}

func TestGet_ResolvesEachStep(t *testing.T) {
	g, err := Decode([]byte(sample))
	require.NoError(t, err)

	name, ok := g.String(g.Root(), "Local", "Friend", "Name")
	require.True(t, ok)
	assert.Equal(t, "Bob", name)

	_, ok = g.Get(g.Root(), "Local", "Missing")
	assert.False(t, ok)
}

func TestList_NormalizesValues(t *testing.T) {
	g := Build(map[string]any{
		"Wrapped": map[string]any{"$values": []any{"a", "b"}},
		"Plain":   []any{"c"},
		"Scalar":  "nope",
	})

	wrapped, ok := g.List(g.Root(), "Wrapped")
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, wrapped)

	plain, ok := g.List(g.Root(), "Plain")
	require.True(t, ok)
	assert.Equal(t, []any{"c"}, plain)

	_, ok = g.List(g.Root(), "Scalar")
	assert.False(t, ok)
}

func TestIndex_CyclicReferencesTerminate(t *testing.T) {
	// The same object appears twice in the tree; indexing must not loop.
	shared := map[string]any{"$id": "s", "Name": "shared"}
	shared["Self"] = shared
	root := map[string]any{"A": shared, "B": []any{shared}}

	g := Build(root)
	obj, ok := g.Lookup("s")
	require.True(t, ok)
	assert.Equal(t, "shared", obj["Name"])
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"float", 4.0, 4, true},
		{"string", "12", 12, true},
		{"bad string", "x", 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsInt(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
