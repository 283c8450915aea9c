package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/text/encoding/simplifiedchinese"
	"pgregory.net/rapid"
)

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

// newMemScanner returns a Scanner over an in-memory tree with paths relative to "/".
func newMemScanner(t testingT, files map[string]string) (*Scanner, afero.Fs) {
	t.Helper()
	memFs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, memFs.MkdirAll(filepath.Dir(name), 0755))
		require.NoError(t, afero.WriteFile(memFs, name, []byte(content), 0644))
	}
	s := NewScanner(memFs, zap.NewNop())
	s.BaseDir = "/"
	return s, memFs
}

// failingFs refuses to open one path.
type failingFs struct {
	afero.Fs
	fail string
}

func (f failingFs) Open(name string) (afero.File, error) {
	if name == f.fail {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return f.Fs.Open(name)
}

func TestScanDirectory(t *testing.T) {
	s, memFs := newMemScanner(t, map[string]string{
		"/loc/a.yml":         "title: \"你好世界\"\nbody: 'hello'\n",
		"/loc/sub/b.YAML":    "x: \"中文abc\"\n",
		"/loc/readme.txt":    `"ignored"`,
		"/loc/data.json":     `{"ignored": "too"}`,
		"/loc/sub/empty.yml": "no quotes here\n",
	})
	require.NoError(t, memFs.MkdirAll("/loc/notes.yml", 0755))

	res, err := s.ScanDirectory("/loc")
	require.NoError(t, err)

	assert.Equal(t, []FileRecord{
		{File: "loc/a.yml", Strings: 2, Chars: 9},
		{File: "loc/sub/b.YAML", Strings: 1, Chars: 5},
		{File: "loc/sub/empty.yml", Strings: 0, Chars: 0},
	}, res.Files)
	assert.Equal(t, 3, res.TotalStrings)
	assert.Equal(t, 14, res.TotalChars)
}

func TestScanDirectory_ChineseOnly(t *testing.T) {
	s, _ := newMemScanner(t, map[string]string{
		"/loc/a.yml":     "title: \"你好世界\"\nbody: 'hello'\n",
		"/loc/sub/b.yml": "x: \"中文abc\"\n",
	})
	s.Mode = CountChinese

	res, err := s.ScanDirectory("/loc")
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalStrings)
	assert.Equal(t, 6, res.TotalChars)
}

func TestScanDirectory_UnreadableFileIsSkipped(t *testing.T) {
	s, memFs := newMemScanner(t, map[string]string{
		"/loc/bad.yml":  `k: "secret"`,
		"/loc/good.yml": `k: "ok"`,
	})
	core, logs := observer.New(zapcore.WarnLevel)
	s.Logger = zap.New(core)
	s.Fs = failingFs{Fs: memFs, fail: "/loc/bad.yml"}

	res, err := s.ScanDirectory("/loc")
	require.NoError(t, err)

	require.Len(t, res.Files, 1)
	assert.Equal(t, "loc/good.yml", res.Files[0].File)

	entries := logs.FilterMessage("无法读取文件").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/loc/bad.yml", entries[0].ContextMap()["file"])
	assert.Contains(t, entries[0].ContextMap()["error"], "permission denied")
}

func TestScanDirectory_RootErrors(t *testing.T) {
	s, _ := newMemScanner(t, map[string]string{"/loc/a.yml": `"x"`})

	_, err := s.ScanDirectory("/loc/a.yml")
	assert.ErrorIs(t, err, errNotDirectory)

	_, err = s.ScanDirectory("/missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestScanDirectory_Filters(t *testing.T) {
	files := map[string]string{
		"/loc/a.yml":          `k: "a"`,
		"/loc/big.yml":        `k: "` + strings.Repeat("x", 100) + `"`,
		"/loc/sub/b.yml":      `k: "b"`,
		"/loc/sub/deep/c.yml": `k: "c"`,
		"/loc/vendor/v.yml":   `k: "v"`,
		"/loc/a_test.yml":     `k: "t"`,
		"/loc/drafts/d.yml":   `k: "d"`,
		"/loc/old.yml":        `k: "o"`,
		"/loc/.gitignore":     "drafts\nold.yml\n",
	}
	names := func(res *ScanResult) []string {
		var out []string
		for _, f := range res.Files {
			out = append(out, f.File)
		}
		return out
	}

	t.Run("exclude patterns", func(t *testing.T) {
		s, _ := newMemScanner(t, files)
		s.Excludes = parsePatterns("vendor, *_test.yml")
		res, err := s.ScanDirectory("/loc")
		require.NoError(t, err)
		assert.NotContains(t, names(res), "loc/vendor/v.yml")
		assert.NotContains(t, names(res), "loc/a_test.yml")
		assert.Contains(t, names(res), "loc/a.yml")
	})

	t.Run("max depth", func(t *testing.T) {
		s, _ := newMemScanner(t, files)
		s.MaxDepth = 2
		res, err := s.ScanDirectory("/loc")
		require.NoError(t, err)
		assert.Contains(t, names(res), "loc/sub/b.yml")
		assert.NotContains(t, names(res), "loc/sub/deep/c.yml")

		s.MaxDepth = 1
		res, err = s.ScanDirectory("/loc")
		require.NoError(t, err)
		assert.NotContains(t, names(res), "loc/sub/b.yml")
		assert.Contains(t, names(res), "loc/a.yml")
	})

	t.Run("max size", func(t *testing.T) {
		s, _ := newMemScanner(t, files)
		s.MaxSize = 50
		res, err := s.ScanDirectory("/loc")
		require.NoError(t, err)
		assert.NotContains(t, names(res), "loc/big.yml")
		assert.Contains(t, names(res), "loc/a.yml")
	})

	t.Run("gitignore", func(t *testing.T) {
		s, _ := newMemScanner(t, files)
		res, err := s.ScanDirectory("/loc")
		require.NoError(t, err)
		assert.Contains(t, names(res), "loc/old.yml")

		s.Gitignore = true
		res, err = s.ScanDirectory("/loc")
		require.NoError(t, err)
		assert.NotContains(t, names(res), "loc/old.yml")
		assert.NotContains(t, names(res), "loc/drafts/d.yml")
		assert.Contains(t, names(res), "loc/a.yml")
	})
}

func TestScanDirectory_Encodings(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(`k: "中文"`)
	require.NoError(t, err)

	s, _ := newMemScanner(t, map[string]string{
		"/gbk/a.yml":    gbk,
		"/broken/a.yml": "k: \"a\xffb\"",
		"/bom/a.yml":    "\xEF\xBB\xBFk: \"x\"",
	})

	s.Mode = CountChinese
	s.Encoding, err = lookupEncoding("gbk")
	require.NoError(t, err)
	res, err := s.ScanDirectory("/gbk")
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalChars)

	s.Mode = CountAll
	s.Encoding, err = lookupEncoding("utf-8")
	require.NoError(t, err)
	res, err = s.ScanDirectory("/broken")
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalChars, "invalid byte becomes one replacement character")

	res, err = s.ScanDirectory("/bom")
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalStrings)
	assert.Equal(t, 1, res.TotalChars)
}

// wordTokenizer counts whitespace separated words.
type wordTokenizer struct{ closed bool }

func (w *wordTokenizer) CountTokens(text string) int { return len(strings.Fields(text)) }

func (w *wordTokenizer) Close() { w.closed = true }

func TestScanDirectory_Tokens(t *testing.T) {
	s, _ := newMemScanner(t, map[string]string{
		"/loc/a.yml": `a: "hello world"` + "\n" + `b: 'foo'`,
		"/loc/b.yml": `c: "one two three"`,
		"/loc/c.yml": "nothing",
	})
	s.Tokenizer = &wordTokenizer{}

	res, err := s.ScanDirectory("/loc")
	require.NoError(t, err)
	require.Len(t, res.Files, 3)
	assert.Equal(t, 3, res.Files[0].Tokens)
	assert.Equal(t, 3, res.Files[1].Tokens)
	assert.Equal(t, 0, res.Files[2].Tokens)
	assert.Equal(t, 6, res.TotalTokens)
}

func TestScanResult_TotalsProperty(t *testing.T) {
	alphabet := []rune{'a', '中', '文', '"', '\'', '\\', ' ', '\n', ':'}
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "files")
		files := make(map[string]string, n)
		for i := 0; i < n; i++ {
			dir := rapid.SampledFrom([]string{"/root", "/root/x", "/root/x/y"}).Draw(rt, "dir")
			files[fmt.Sprintf("%s/f%d.yml", dir, i)] = rapid.StringOf(rapid.RuneFrom(alphabet)).Draw(rt, "content")
		}
		mode := rapid.SampledFrom([]CountMode{CountAll, CountChinese}).Draw(rt, "mode")

		s, _ := newMemScanner(rt, files)
		s.Mode = mode
		res, err := s.ScanDirectory("/root")
		if n == 0 {
			// Nothing created the root.
			require.Error(rt, err)
			return
		}
		require.NoError(rt, err)
		require.Len(rt, res.Files, n)

		var strs, chars int
		for _, f := range res.Files {
			strs += f.Strings
			chars += f.Chars

			extracted := ExtractQuoted(files["/"+f.File])
			assert.Equal(rt, len(extracted), f.Strings)
			assert.Equal(rt, countAll(extracted, mode), f.Chars)
		}
		assert.Equal(rt, strs, res.TotalStrings)
		assert.Equal(rt, chars, res.TotalChars)
	})
}

func TestPathHelpers(t *testing.T) {
	assert.True(t, isYAMLFile("a.yml"))
	assert.True(t, isYAMLFile("A.YAML"))
	assert.True(t, isYAMLFile("x.Yml"))
	assert.False(t, isYAMLFile("a.yml.bak"))
	assert.False(t, isYAMLFile("yml"))

	assert.Equal(t, 0, pathDepth("."))
	assert.Equal(t, 1, pathDepth("a"))
	assert.Equal(t, 3, pathDepth("a/b/c/"))

	assert.Nil(t, parsePatterns(""))
	assert.Equal(t, []string{"a", "*.b"}, parsePatterns("a, *.b,,"))

	assert.Error(t, validatePatterns([]string{"*.yml", "["}))
	assert.NoError(t, validatePatterns([]string{"*", "vendor"}))
}

func TestScanDirectory_Symlinks(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"real/a.yml":  `k: "hello"`,
		"other/b.yml": `k: "elsewhere"`,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "link")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "other"), filepath.Join(dir, "real", "nested")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "other"), filepath.Join(dir, "real", "dir.yml")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "other", "b.yml"), filepath.Join(dir, "real", "alias.yml")))

	s := NewScanner(afero.NewOsFs(), zap.NewNop())
	s.BaseDir = dir

	t.Run("symlinked root is followed", func(t *testing.T) {
		res, err := s.ScanDirectory(filepath.Join(dir, "link"))
		require.NoError(t, err)
		assert.Equal(t, []FileRecord{
			{File: "link/a.yml", Strings: 1, Chars: 5},
			{File: "link/alias.yml", Strings: 1, Chars: 9},
		}, res.Files)
	})

	t.Run("directory links below the root are not followed", func(t *testing.T) {
		res, err := s.ScanDirectory(filepath.Join(dir, "real"))
		require.NoError(t, err)
		for _, f := range res.Files {
			assert.NotContains(t, f.File, "nested")
			assert.NotEqual(t, "real/dir.yml", f.File)
		}
		assert.Len(t, res.Files, 2)
	})
}

func TestScanDirectory_MaxSizeUsesLinkTarget(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "loc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t.yml"), []byte(`k: "`+strings.Repeat("x", 100)+`"`), 0644))
	// The link itself is only len("../t.yml") bytes.
	require.NoError(t, os.Symlink("../t.yml", filepath.Join(dir, "loc", "big.yml")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loc", "small.yml"), []byte(`k: "x"`), 0644))

	s := NewScanner(afero.NewOsFs(), zap.NewNop())
	s.BaseDir = dir
	s.MaxSize = 50

	res, err := s.ScanDirectory(filepath.Join(dir, "loc"))
	require.NoError(t, err)
	assert.Equal(t, []FileRecord{{File: "loc/small.yml", Strings: 1, Chars: 1}}, res.Files)
}
