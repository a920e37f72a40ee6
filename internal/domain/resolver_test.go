package domain

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "loadpath.dev/pkg/loadpath/internal/model"
)

func digest(data string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(data)))
}

func TestResolver_LastSourceWins(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "A")
	b := filepath.Join(dir, "B")
	writeTree(t, a, map[string]string{"x.class": "from A"})
	writeTree(t, b, map[string]string{"x.class": "from B"})

	forward, _ := newTestResolver(t, DefaultOptions(), a, b)
	data, ok := forward.View().Code("x")
	require.True(t, ok)
	assert.Equal(t, "from B", string(data))

	reverse, _ := newTestResolver(t, DefaultOptions(), b, a)
	data, ok = reverse.View().Code("x")
	require.True(t, ok)
	assert.Equal(t, "from A", string(data))
}

func TestResolver_KindPartition(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"p/Q.class":  "q",
		"p/data.txt": "d",
	})

	resolver, _ := newTestResolver(t, DefaultOptions(), dir)
	view := resolver.View()

	_, ok := view.Resource("p.Q.class")
	assert.False(t, ok)
	_, ok = view.Resource("p.Q")
	assert.False(t, ok)
	_, ok = view.Code("p.data.txt")
	assert.False(t, ok)

	_, ok = view.Code("p.Q")
	assert.True(t, ok)
	_, ok = view.Resource("p.data.txt")
	assert.True(t, ok)
}

func TestResolver_ManifestRoundTrip(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "mod.jar")
	writeJar(t, jar, archiveEntry{"pkgA.mod.json", `{"name":"pkgA"}`})

	resolver, _ := newTestResolver(t, DefaultOptions(), jar)

	assert.Equal(t, `{"name":"pkgA"}`, resolver.View().Manifests()["pkgA"])

	data, ok := resolver.View().Resource("pkgA.mod.json")
	require.True(t, ok)
	assert.Equal(t, `{"name":"pkgA"}`, string(data))
}

func TestResolver_TransformableProvenance(t *testing.T) {
	dir := t.TempDir()
	initial := filepath.Join(dir, "classes")
	writeTree(t, initial, map[string]string{"app/Main.class": "main"})

	added := filepath.Join(dir, "mods", "extra.jar")
	writeJar(t, added, archiveEntry{"mod/Hook.class", "hook"})

	resolver, _ := newTestResolver(t, DefaultOptions(), initial)
	require.NoError(t, resolver.AddSource(context.Background(), m.Path(added)))

	assert.False(t, resolver.View().IsTransformable("app.Main"))
	assert.True(t, resolver.View().IsTransformable("mod.Hook"))

	entries := resolver.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Transformable)
	assert.True(t, entries[1].Transformable)
}

func TestResolver_AddSourceMissing(t *testing.T) {
	resolver, _ := newTestResolver(t, DefaultOptions(), t.TempDir())

	err := resolver.AddSource(context.Background(), m.Path(filepath.Join(t.TempDir(), "absent.jar")))
	require.ErrorIs(t, err, ErrSourceMissing)
	assert.Len(t, resolver.Entries(), 1)
}

func TestResolver_ResolveFromIndex(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"p/q/R.class": "r"})

	resolver, _ := newTestResolver(t, DefaultOptions(), dir)

	unit, err := resolver.Resolve(context.Background(), "p.q.R")
	require.NoError(t, err)
	assert.Equal(t, m.OriginIndex, unit.Origin)
	assert.Equal(t, digest("r"), unit.Digest)
	assert.Equal(t, m.Path(dir), unit.Source)
}

func TestResolver_ResolutionFallback(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"p/Indexed.class":     "indexed",
		"gen/Generated.class": "generated",
		"gen/Other.class":     "other",
	})

	jar := filepath.Join(t.TempDir(), "lib.jar")
	writeJar(t, jar, archiveEntry{"gen/Archived.class", "archived"})

	opts := DefaultOptions()
	opts.Exclude = []string{"gen/**"}

	resolver, _ := newTestResolver(t, opts, dir, jar)
	ctx := context.Background()

	_, indexed := resolver.View().Code("gen.Generated")
	require.False(t, indexed, "excluded file must not be indexed")

	unit, err := resolver.Resolve(ctx, "gen.Generated")
	require.NoError(t, err)
	assert.Equal(t, m.OriginFallback, unit.Origin)
	assert.Equal(t, digest("generated"), unit.Digest)

	unit, err = resolver.Resolve(ctx, "gen.Archived")
	require.NoError(t, err)
	assert.Equal(t, m.OriginFallback, unit.Origin)
	assert.Equal(t, digest("archived"), unit.Digest)

	_, err = resolver.Resolve(ctx, "gen.Missing")
	require.ErrorIs(t, err, ErrUnitNotFound)

	var resolutionErr *ResolutionError
	require.True(t, errors.As(err, &resolutionErr))
	assert.Equal(t, "gen.Missing", resolutionErr.Name)
}

func TestResolver_FallbackPrefersEarlierEntries(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")
	writeTree(t, first, map[string]string{"gen/X.class": "first"})
	writeTree(t, second, map[string]string{"gen/X.class": "second"})

	opts := DefaultOptions()
	opts.Exclude = []string{"gen/**"}

	resolver, _ := newTestResolver(t, opts, first, second)

	unit, err := resolver.Resolve(context.Background(), "gen.X")
	require.NoError(t, err)
	assert.Equal(t, digest("first"), unit.Digest)
}

func TestResolver_OneShotMaterialization(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"p/q/R.class": "original"})

	jar := filepath.Join(t.TempDir(), "app.jar")
	writeJar(t, jar, archiveEntry{"p/q/R.class", "archived"})

	resolver, engine := newTestResolver(t, DefaultOptions(), dir)
	ctx := context.Background()

	require.NoError(t, resolver.AddSource(ctx, m.Path(jar)))

	first, err := resolver.Resolve(ctx, "p.q.R")
	require.NoError(t, err)
	assert.Equal(t, digest("archived"), first.Digest)

	transformer := &staticTransformer{set: m.OverrideSet{"p/q/R": []byte("patched")}}
	report, err := resolver.Transform(ctx, transformer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Replaced)

	data, _ := resolver.View().Code("p.q.R")
	assert.Equal(t, "patched", string(data), "the index holds the merged bytes")

	again, err := resolver.Resolve(ctx, "p.q.R")
	require.NoError(t, err)
	assert.Same(t, first, again)

	materialized := engine.Units()
	require.Len(t, materialized, 1)
	assert.Equal(t, digest("archived"), materialized[0].Digest)
}

func TestResolver_Transform(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"p/q/R.class": "b1",
		"p/q/S.class": "b2",
	})

	resolver, _ := newTestResolver(t, DefaultOptions(), dir)
	ctx := context.Background()

	assert.Equal(t, m.PhaseCollecting, resolver.Phase())

	transformer := &staticTransformer{set: m.OverrideSet{
		"p/q/R":    []byte("b3"),
		"p/q/Gone": []byte("g"),
	}}

	report, err := resolver.Transform(ctx, transformer)
	require.NoError(t, err)

	assert.Equal(t, m.PhaseActive, resolver.Phase())
	assert.Equal(t, 1, transformer.calls)
	assert.Equal(t, []byte("b1"), transformer.received["p/q/R"])
	assert.Equal(t, 1, report.Replaced)
	assert.Equal(t, []string{"p.q.Gone"}, report.Added)
	assert.Contains(t, diagnosticCodes(resolver.Diagnostics()), "override_target_missing")

	r, _ := resolver.View().Code("p.q.R")
	s, _ := resolver.View().Code("p.q.S")
	assert.Equal(t, "b3", string(r))
	assert.Equal(t, "b2", string(s))

	_, err = resolver.Transform(ctx, transformer)
	require.ErrorIs(t, err, ErrAlreadyActive)
	assert.Equal(t, 1, transformer.calls)
}

func TestResolver_TransformFailureStaysCollecting(t *testing.T) {
	resolver, _ := newTestResolver(t, DefaultOptions(), t.TempDir())

	_, err := resolver.Transform(context.Background(), &staticTransformer{err: errors.New("stage crashed")})
	require.Error(t, err)
	assert.Equal(t, m.PhaseCollecting, resolver.Phase())
}

func TestResolver_AddSourceAfterActive(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"A.class": "a"})

	jar := filepath.Join(t.TempDir(), "late.jar")
	writeJar(t, jar, archiveEntry{"Late.class", "late"}, archiveEntry{"A.class", "a2"})

	resolver, _ := newTestResolver(t, DefaultOptions(), dir)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "A")
	require.NoError(t, err)

	_, err = resolver.Transform(ctx, &staticTransformer{})
	require.NoError(t, err)

	require.NoError(t, resolver.AddSource(ctx, m.Path(jar)))

	late, err := resolver.Resolve(ctx, "Late")
	require.NoError(t, err)
	assert.Equal(t, digest("late"), late.Digest)

	again, err := resolver.Resolve(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, first.Digest, again.Digest, "late sources never re-resolve materialized names")
}

func TestResolver_FindResource(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"assets/logo.png": "png",
		"docs/readme.txt": "readme",
	})

	opts := DefaultOptions()
	opts.Exclude = []string{"docs/**"}

	resolver, _ := newTestResolver(t, opts, dir)
	ctx := context.Background()

	data, err := resolver.FindResource(ctx, "assets/logo.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	data, err = resolver.FindResource(ctx, "docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "readme", string(data))

	cached, ok := resolver.resources.Get("docs/readme.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("readme"), cached)

	_, err = resolver.FindResource(ctx, "docs/missing.txt")
	require.ErrorIs(t, err, ErrUnitNotFound)

	_, err = resolver.FindResource(ctx, "../escape.txt")
	require.ErrorIs(t, err, ErrUnitNotFound)
}

func TestResolver_FallbackSkipsEntriesShadowingAPrefix(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"gen": "a plain file named like a package"})

	jar := filepath.Join(t.TempDir(), "gen.jar")
	writeJar(t, jar, archiveEntry{"gen/X.class", "x"})

	opts := DefaultOptions()
	opts.Exclude = []string{"gen/**"}

	resolver, _ := newTestResolver(t, opts, dir, jar)
	ctx := context.Background()

	unit, err := resolver.Resolve(ctx, "gen.X")
	require.NoError(t, err)
	assert.Equal(t, m.OriginFallback, unit.Origin)
	assert.Equal(t, digest("x"), unit.Digest)

	_, err = resolver.Resolve(ctx, "gen.Y")
	require.ErrorIs(t, err, ErrUnitNotFound)

	data, err := resolver.FindResource(ctx, "gen/X.class")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestResolver_SlashNamesResolveToTheDotForm(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"p/q/R.class": "orig"})

	resolver, engine := newTestResolver(t, DefaultOptions(), dir)
	ctx := context.Background()

	_, err := resolver.Transform(ctx, &staticTransformer{set: m.OverrideSet{"p/q/R": []byte("new")}})
	require.NoError(t, err)

	unit, err := resolver.Resolve(ctx, "p/q/R")
	require.NoError(t, err)
	assert.Equal(t, "p.q.R", unit.Name)
	assert.Equal(t, m.OriginIndex, unit.Origin)
	assert.Equal(t, digest("new"), unit.Digest)

	again, err := resolver.Resolve(ctx, `p\q\R`)
	require.NoError(t, err)
	assert.Same(t, unit, again)

	assert.Len(t, engine.Units(), 1)
}
