package form

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modelInputs = []FieldName{
	"ER status measured by IHC",
	"3-Gene classifier subtype",
	"Pam50 + Claudin-low subtype",
	"PR Status",
	"Nottingham prognostic index",
	"Tumor Size",
	"HER2 Status",
}

func TestDefaultCatalogOrder(t *testing.T) {
	if diff := cmp.Diff(modelInputs, DefaultCatalog().Names()); diff != "" {
		t.Fatalf("catalog order mismatch (-want +got):\n%s", diff)
	}
	pos, ok := DefaultCatalog().Position("Tumor Size")
	require.True(t, ok)
	assert.Equal(t, 5, pos)
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "fields: []"},
		{"duplicate", "fields:\n  - name: A\n  - name: A\n"},
		{"blank name", "fields:\n  - name: ' '\n"},
		{"not yaml", "fields: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  - name: Age\n  - name: Tumor Size\n"), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []FieldName{"Age", "Tumor Size"}, c.Names())

	c, err = LoadCatalog("")
	require.NoError(t, err)
	assert.Same(t, DefaultCatalog(), c)
}

func TestNewStateStartsEmpty(t *testing.T) {
	s := NewState(DefaultCatalog())
	for name, value := range s.Serialize() {
		assert.Empty(t, value, name)
	}
	assert.Equal(t, uint64(0), s.Revision())
}

func TestSetField(t *testing.T) {
	s := NewState(DefaultCatalog())

	changed, err := s.SetField("Tumor Size", "22")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "22", s.Value("Tumor Size"))
	assert.Equal(t, uint64(1), s.Revision())

	changed, err = s.SetField("Tumor Size", "22")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, uint64(1), s.Revision())

	// Raw text is kept verbatim; parsing is the backend's job.
	_, err = s.SetField("HER2 Status", "not a number")
	require.NoError(t, err)
	assert.Equal(t, "not a number", s.Value("HER2 Status"))

	_, err = s.SetField("Age", "54")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Equal(t, uint64(2), s.Revision())
}

func TestSerializeAlwaysCoversExactlyTheCatalog(t *testing.T) {
	want := make([]string, len(modelInputs))
	for i, name := range modelInputs {
		want[i] = string(name)
	}
	sort.Strings(want)

	rng := rand.New(rand.NewSource(7))
	candidates := append(append([]FieldName{}, modelInputs...), "Age", "", "tumor size")
	values := []string{"", "0", "1.5", "-3", "abc"}

	s := NewState(DefaultCatalog())
	for i := 0; i < 500; i++ {
		name := candidates[rng.Intn(len(candidates))]
		_, _ = s.SetField(name, values[rng.Intn(len(values))])

		got := s.Serialize()
		keys := make([]string, 0, len(got))
		for k := range got {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		require.Equal(t, want, keys, "after %d edits", i+1)
	}
}

func TestSnapshotIsIsolatedFromLaterEdits(t *testing.T) {
	s := NewState(DefaultCatalog())
	_, _ = s.SetField("PR Status", "1")
	snap := s.Snapshot()

	_, _ = s.SetField("PR Status", "0")
	values := snap.Values()
	values["PR Status"] = "tampered"

	assert.Equal(t, "1", snap.Values()["PR Status"])
	assert.Equal(t, uint64(1), snap.Revision)
	assert.Equal(t, uint64(2), s.Revision())
}

func TestRestore(t *testing.T) {
	s, err := Restore(DefaultCatalog(), map[string]string{"Tumor Size": "18"}, 4)
	require.NoError(t, err)
	assert.Equal(t, "18", s.Value("Tumor Size"))
	assert.Equal(t, "", s.Value("HER2 Status"))
	assert.Equal(t, uint64(4), s.Revision())

	_, err = Restore(DefaultCatalog(), map[string]string{"Age": "40"}, 0)
	assert.ErrorIs(t, err, ErrUnknownField)
}
