package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/me-sharif-hasan/tunneller/internal/routing"
)

func intp(v int) *int { return &v }

func TestAddRuleFiresListenerBeforeReturning(t *testing.T) {
	s, err := New(Defaults())
	require.NoError(t, err)

	var notifiedWith *routing.Table
	s.SetListener(func(tbl *routing.Table) {
		notifiedWith = tbl
	})

	err = s.AddRule(RuleSpec{PathPattern: "/api/*", TargetHost: "h1", TargetPort: 8081, Priority: intp(1)})
	require.NoError(t, err)
	require.NotNil(t, notifiedWith)

	rule, ok := notifiedWith.Lookup("/api/x")
	require.True(t, ok)
	require.Equal(t, "h1", rule.TargetHost)
}

func TestAddRuleRejectsInvalid(t *testing.T) {
	s, err := New(Defaults())
	require.NoError(t, err)
	err = s.AddRule(RuleSpec{PathPattern: "/x", TargetHost: "h1", TargetPort: 0})
	require.Error(t, err)
	require.Empty(t, s.Snapshot().Routes)
}

func TestRemoveRuleOutOfRange(t *testing.T) {
	s, err := New(Defaults())
	require.NoError(t, err)
	require.Error(t, s.RemoveRule(0))
}

func TestSetModeValidation(t *testing.T) {
	s, err := New(Defaults())
	require.NoError(t, err)
	require.Error(t, s.SetMode("BOGUS"))
	require.NoError(t, s.SetMode(ModeRouting))
	require.Equal(t, ModeRouting, s.Mode())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tunneller-config.json")

	doc := Defaults()
	doc.Domain = "alice.tunneller.example"
	doc.Routes = []RuleSpec{
		{PathPattern: "/api/*", TargetHost: "h1", TargetPort: 8081, Priority: intp(1), StripPrefix: true},
	}

	require.NoError(t, Save(path, doc))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, doc.Domain, loaded.Domain)
	require.Equal(t, doc.Routes, loaded.Routes)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	doc, err := Load(filepath.Join(dir, "does-not-exist.json"))
	require.NoError(t, err)
	require.Equal(t, Defaults(), doc)
}

func TestDefaultConfigPath(t *testing.T) {
	p, err := DefaultConfigPath()
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(p))
	require.Contains(t, p, ".tunneller")
}
