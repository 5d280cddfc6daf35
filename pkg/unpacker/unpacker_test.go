// pkg/unpacker/unpacker_test.go
// TEST TYPE: Unit and Integration Tests
// DEPENDENCIES: real temp dirs, fake command runner, git CLI for the round trip tests
// PURPOSE: Verify step replay, retry/ignore policy, idempotence and pack/unpack round trips

package unpacker_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/deltapack/pkg/conditions"
	"github.com/arthur-debert/deltapack/pkg/contentstore"
	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/events"
	"github.com/arthur-debert/deltapack/pkg/executor"
	"github.com/arthur-debert/deltapack/pkg/filesystem"
	"github.com/arthur-debert/deltapack/pkg/gitdiff"
	"github.com/arthur-debert/deltapack/pkg/manifest"
	"github.com/arthur-debert/deltapack/pkg/packer"
	"github.com/arthur-debert/deltapack/pkg/paths"
	"github.com/arthur-debert/deltapack/pkg/testutil"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/arthur-debert/deltapack/pkg/unpacker"
	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommands struct {
	calls []string
	fail  bool
}

func (f *fakeCommands) RunCommand(_ context.Context, spec types.CommandSpec, base string) error {
	f.calls = append(f.calls, spec.Path+"@"+base)
	if f.fail {
		return errors.New(errors.ErrToolExecute, "access denied")
	}
	return nil
}

// emptyStore writes an archive with no entries
func emptyStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.zip")
	require.NoError(t, contentstore.New(filesystem.NewOS()).WriteTo(path))
	return path
}

// storeWith writes an archive holding name -> content
func storeWith(t *testing.T, files map[string]string) string {
	t.Helper()
	src := t.TempDir()
	store := contentstore.New(filesystem.NewOS())
	for name, content := range files {
		source := testutil.CreateFile(t, src, name, content)
		e, err := store.Stat(name, source)
		require.NoError(t, err)
		store.Add(e)
	}
	path := filepath.Join(t.TempDir(), "pkg.zip")
	require.NoError(t, store.WriteTo(path))
	return path
}

func unpack(t *testing.T, engine *unpacker.Engine, m manifest.Manifest, archive, out string) error {
	t.Helper()
	return engine.Unpack(context.Background(), unpacker.Request{Manifest: m, ArchivePath: archive, Out: out})
}

func newEngine(cmds unpacker.CommandRunner, obs events.Observer) *unpacker.Engine {
	return unpacker.New(filesystem.NewOS(), cmds, obs, "")
}

func TestUnpackCopyDeleteSync(t *testing.T) {
	archive := storeWith(t, map[string]string{
		"app/new.txt":    "new",
		"site/index.htm": "index",
	})
	out := t.TempDir()
	testutil.CreateFiles(t, out, map[string]string{
		"app/old.txt":    "old",
		"site/stale.htm": "stale",
		"site/keep.log":  "log",
	})

	m := manifest.Manifest{
		&manifest.Copy{Path: "app/new.txt"},
		&manifest.Delete{Path: "app/old.txt", SkipNotFound: true},
		&manifest.Delete{Path: "app/never-existed.txt", SkipNotFound: true},
		&manifest.Sync{Path: "site", Exclude: []string{"**/*.log"}},
	}

	require.NoError(t, unpack(t, newEngine(nil, nil), m, archive, out))
	assert.Equal(t, map[string]string{
		"app/new.txt":    "new",
		"site/index.htm": "index",
		"site/keep.log":  "log",
	}, testutil.Tree(t, out))
}

func TestUnpackIsIdempotent(t *testing.T) {
	archive := storeWith(t, map[string]string{"a/b.txt": "b", "s/x.txt": "x"})
	m := manifest.Manifest{
		&manifest.Copy{Path: "a/b.txt"},
		&manifest.Delete{Path: "a/c.txt", SkipNotFound: true},
		&manifest.Sync{Path: "s", Exclude: []string{}},
	}
	out := t.TempDir()
	engine := newEngine(nil, nil)

	require.NoError(t, unpack(t, engine, m, archive, out))
	first := testutil.Tree(t, out)
	require.NoError(t, unpack(t, engine, m, archive, out))
	assert.Equal(t, first, testutil.Tree(t, out))
}

func TestUnpackDeleteMissingTarget(t *testing.T) {
	m := manifest.Manifest{&manifest.Delete{Path: "missing.txt", SkipNotFound: false}}

	err := unpack(t, newEngine(nil, nil), m, emptyStore(t), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrReplayStep))
	assert.Contains(t, err.Error(), "missing.txt")
}

func TestUnpackRetryPolicy(t *testing.T) {
	tests := []struct {
		name         string
		policy       types.Policy
		wantCalls    int
		wantErr      bool
		wantWarnings int
	}{
		{name: "default single attempt", policy: types.Policy{}, wantCalls: 1, wantErr: true},
		{name: "retry then fail", policy: types.Policy{Retry: 2}, wantCalls: 2, wantErr: true},
		{name: "retry then ignore", policy: types.Policy{Retry: 2, IgnoreErrors: true}, wantCalls: 2, wantWarnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &fakeCommands{fail: true}
			rec := &events.Recorder{}
			out := t.TempDir()
			m := manifest.Manifest{&manifest.Cmd{Commands: []types.CommandSpec{{Path: "iisreset", Policy: tt.policy}}}}

			err := unpack(t, newEngine(cmds, rec), m, emptyStore(t), out)
			assert.Len(t, cmds.calls, tt.wantCalls)
			assert.Len(t, rec.OfKind(events.Warning), tt.wantWarnings)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, errors.ErrReplayStep))
				assert.Contains(t, err.Error(), "access denied")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestUnpackStepPolicyWrapsCommands(t *testing.T) {
	cmds := &fakeCommands{fail: true}
	rec := &events.Recorder{}
	out := t.TempDir()
	m := manifest.Manifest{
		&manifest.Cmd{
			Commands: []types.CommandSpec{{Path: "first"}, {Path: "second"}},
			Policy:   types.Policy{Retry: 3, IgnoreErrors: true},
		},
		&manifest.Cmd{Commands: []types.CommandSpec{}},
	}

	require.NoError(t, unpack(t, newEngine(cmds, rec), m, emptyStore(t), out))
	assert.Equal(t, []string{"first@" + out, "first@" + out, "first@" + out}, cmds.calls)
	assert.Len(t, rec.OfKind(events.Warning), 1)
}

func TestUnpackNestedCommandRetriesMultiply(t *testing.T) {
	cmds := &fakeCommands{fail: true}
	out := t.TempDir()
	m := manifest.Manifest{&manifest.Cmd{
		Commands: []types.CommandSpec{{Path: "flaky", Policy: types.Policy{Retry: 3}}},
		Policy:   types.Policy{Retry: 3, IgnoreErrors: true},
	}}

	require.NoError(t, unpack(t, newEngine(cmds, nil), m, emptyStore(t), out))
	assert.Len(t, cmds.calls, 9)
}

func TestUnpackCommandsRunInOrder(t *testing.T) {
	cmds := &fakeCommands{}
	out := t.TempDir()
	m := manifest.Manifest{&manifest.Cmd{Commands: []types.CommandSpec{{Path: "stop"}, {Path: "start"}}}}

	require.NoError(t, unpack(t, newEngine(cmds, nil), m, emptyStore(t), out))
	assert.Equal(t, []string{"stop@" + out, "start@" + out}, cmds.calls)
}

const destXML = `<?xml version="1.0" encoding="utf-8"?><configuration><some>stuff</some></configuration>`

func xmlText(s string) *string { return &s }

func TestUnpackXmlActions(t *testing.T) {
	out := t.TempDir()
	testutil.CreateFile(t, out, "web.config", `<configuration><appSettings><add key="a"/></appSettings><legacy/><list><item>1</item></list></configuration>`)

	m := manifest.Manifest{&manifest.Xml{Path: "web.config", Actions: []manifest.XMLAction{
		{Mode: manifest.XMLReplace, Path: "$.configuration.appSettings", XML: xmlText(`<appSettings><add key="b"/></appSettings>`)},
		{Mode: manifest.XMLReplace, Path: "$.configuration.legacy"},
		{Mode: manifest.XMLInsert, Path: "$.configuration.list", XML: xmlText(`<item>2</item>`)},
		{Mode: manifest.XMLReplace, Path: "$.bad path", XML: xmlText(`<x/>`), Policy: types.Policy{Retry: 2, IgnoreErrors: true}},
	}}}

	rec := &events.Recorder{}
	require.NoError(t, unpack(t, newEngine(nil, rec), m, emptyStore(t), out))
	assert.Len(t, rec.OfKind(events.Warning), 1)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(filepath.Join(out, "web.config")))
	root := doc.SelectElement("configuration")
	require.NotNil(t, root)

	settings := root.SelectElement("appSettings")
	require.NotNil(t, settings)
	assert.Equal(t, "b", settings.SelectElement("add").SelectAttrValue("key", ""))
	assert.Nil(t, root.SelectElement("legacy"))

	var items []string
	for _, el := range root.SelectElement("list").SelectElements("item") {
		items = append(items, el.Text())
	}
	assert.Equal(t, []string{"1", "2"}, items)
}

func TestUnpackXmlMissingFile(t *testing.T) {
	m := manifest.Manifest{&manifest.Xml{Path: "nope.xml", Actions: []manifest.XMLAction{}}}
	err := unpack(t, newEngine(nil, nil), m, emptyStore(t), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrReplayStep))
}

func TestXmlReplaceScenario(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFile(t, root, "foo/source.xml", `<?xml version="1.0" encoding="utf-8"?><configuration><some></some><other attr="1"><item>value</item><item>value</item></other></configuration>`)
	rule := types.PackageRule{
		Mode:          types.ModeXMLReplace,
		Source:        "./foo/source.xml",
		Dest:          "./dest.xml",
		SourceXMLPath: "$.configuration.other",
		DestXMLPath:   "$.configuration.other",
	}

	packIt := func(t *testing.T) packer.Result {
		engine := packer.New(filesystem.NewOS(), nil, conditions.New(nil), nil)
		res, err := engine.Pack(context.Background(), packer.Request{Name: "test", Root: root, Out: t.TempDir(), Rules: []types.PackageRule{rule}})
		require.NoError(t, err)
		return res
	}

	// present in source: inserted into a destination lacking it
	res := packIt(t)
	out := t.TempDir()
	testutil.CreateFile(t, out, "dest.xml", destXML)
	require.NoError(t, unpack(t, newEngine(nil, nil), res.Manifest, res.ArchivePath, out))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(filepath.Join(out, "dest.xml")))
	cfg := doc.SelectElement("configuration")
	assert.Equal(t, "stuff", cfg.SelectElement("some").Text())
	other := cfg.SelectElement("other")
	require.NotNil(t, other)
	assert.Equal(t, "1", other.SelectAttrValue("attr", ""))
	assert.Len(t, other.SelectElements("item"), 2)

	// absent in source: deleted from the destination
	testutil.CreateFile(t, root, "foo/source.xml", `<configuration><some></some></configuration>`)
	res = packIt(t)
	require.NoError(t, unpack(t, newEngine(nil, nil), res.Manifest, res.ArchivePath, out))

	doc = etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(filepath.Join(out, "dest.xml")))
	assert.Nil(t, doc.SelectElement("configuration").SelectElement("other"))
	assert.Equal(t, "stuff", doc.SelectElement("configuration").SelectElement("some").Text())
}

func packGitDiff(t *testing.T, repo, base, target string) packer.Result {
	t.Helper()
	source := gitdiff.NewSource("git", executor.NewExecRunner(), paths.NewCaseProbe())
	engine := packer.New(filesystem.NewOS(), source, conditions.New(nil), nil)
	res, err := engine.Pack(context.Background(), packer.Request{
		Name:      "test",
		Root:      repo,
		Out:       t.TempDir(),
		GitBase:   base,
		GitTarget: target,
		Rules:     []types.PackageRule{{Mode: types.ModeGitDiff, Pattern: "**/*"}},
	})
	require.NoError(t, err)
	return res
}

func TestGitDiffRoundTrip(t *testing.T) {
	repo := testutil.InitRepo(t)
	empty := testutil.Commit(t, repo, "root commit")
	testutil.CreateFiles(t, repo, map[string]string{
		"foo/a.txt": "a",
		"foo/b.txt": "b",
		"bar/c.bin": "bin",
	})
	target := testutil.Commit(t, repo, "tree")

	res := packGitDiff(t, repo, empty, target)
	out := t.TempDir()
	require.NoError(t, unpack(t, newEngine(nil, nil), res.Manifest, res.ArchivePath, out))
	assert.Equal(t, testutil.Tree(t, repo), testutil.Tree(t, out))
}

func TestGitDiffTwoStageRoundTrip(t *testing.T) {
	repo := testutil.InitRepo(t)
	empty := testutil.Commit(t, repo, "root commit")
	testutil.CreateFiles(t, repo, map[string]string{"foo/a.txt": "a", "foo/c.txt": "c", "old/name.txt": strings.Repeat("content\n", 20)})
	middle := testutil.Commit(t, repo, "first")

	out := t.TempDir()
	res := packGitDiff(t, repo, empty, middle)
	require.NoError(t, unpack(t, newEngine(nil, nil), res.Manifest, res.ArchivePath, out))

	testutil.CreateFile(t, repo, "foo/a.txt", "a2")
	testutil.Git(t, repo, "rm", "-q", "foo/c.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "new"), 0755))
	testutil.Git(t, repo, "mv", "old/name.txt", "new/name.txt")
	testutil.CreateFile(t, repo, "bar/b.txt", "b")
	final := testutil.Commit(t, repo, "second")

	res = packGitDiff(t, repo, middle, final)
	require.NoError(t, unpack(t, newEngine(nil, nil), res.Manifest, res.ArchivePath, out))

	assert.Equal(t, testutil.Tree(t, repo), testutil.Tree(t, out))
}

func TestUnpackRemovesScratch(t *testing.T) {
	scratch := t.TempDir()
	archive := storeWith(t, map[string]string{"a.txt": "a"})
	engine := unpacker.New(filesystem.NewOS(), nil, nil, scratch)

	require.NoError(t, unpack(t, engine, manifest.Manifest{&manifest.Copy{Path: "a.txt"}}, archive, t.TempDir()))
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = unpack(t, engine, manifest.Manifest{&manifest.Delete{Path: "gone"}}, archive, t.TempDir())
	require.Error(t, err)
	entries, err = os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMergedPartialSyncRoundTrip(t *testing.T) {
	repo := t.TempDir()
	testutil.CreateFiles(t, repo, map[string]string{
		"build/a.dll":  "dll-new",
		"build/a.pdb":  "pdb-new",
		"build/a.tmp":  "tmp",
		"build/readme": "docs",
	})

	engine := packer.New(filesystem.NewOS(), nil, conditions.New(nil), nil)
	res, err := engine.Pack(context.Background(), packer.Request{
		Name: "bin",
		Root: repo,
		Out:  t.TempDir(),
		Rules: []types.PackageRule{
			{Mode: types.ModePartialSync, Source: "build", Dest: "bin", Pattern: "**/*.dll"},
			{Mode: types.ModePartialSync, Source: "build", Dest: "bin", Pattern: "**/*.pdb"},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Manifest, 1)

	out := t.TempDir()
	testutil.CreateFiles(t, out, map[string]string{
		"bin/a.dll":    "dll-old",
		"bin/a.pdb":    "pdb-old",
		"bin/old.dll":  "stale",
		"bin/keep.cfg": "cfg",
	})
	require.NoError(t, unpack(t, newEngine(nil, nil), res.Manifest, res.ArchivePath, out))

	assert.Equal(t, map[string]string{
		"bin/a.dll":    "dll-new",
		"bin/a.pdb":    "pdb-new",
		"bin/keep.cfg": "cfg",
	}, testutil.Tree(t, out))
}
