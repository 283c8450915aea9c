package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

var errNotDirectory = errors.New("not a directory")

// Scanner walks a directory tree and tallies the quoted strings of every YAML file in it.
type Scanner struct {
	Fs       afero.Fs
	Mode     CountMode
	Encoding encoding.Encoding

	// Filtering. Zero values disable each filter.
	Excludes  []string
	MaxDepth  int
	MaxSize   int64
	Gitignore bool

	Tokenizer Tokenizer // nil disables token estimation
	BaseDir   string    // record paths are made relative to this directory
	Logger    *zap.Logger
}

// NewScanner returns a Scanner over fsys counting every character, with paths
// relative to the current working directory.
func NewScanner(fsys afero.Fs, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseDir, err := os.Getwd()
	if err != nil {
		logger.Debug("could not determine working directory", zap.Error(err))
	}
	return &Scanner{
		Fs:       fsys,
		Mode:     CountAll,
		Encoding: unicode.UTF8,
		BaseDir:  baseDir,
		Logger:   logger,
	}
}

// isYAMLFile reports whether name carries a .yml or .yaml extension, in any case.
func isYAMLFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")
}

// ScanDirectory recursively scans root. Only a missing or non-directory root is
// an error; unreadable files are reported through the logger and left out.
func (s *Scanner) ScanDirectory(root string) (*ScanResult, error) {
	info, err := s.Fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, errNotDirectory)
	}

	s.Logger.Debug("scanning directory", zap.String("path", root), zap.Stringer("mode", s.Mode))
	ignoreMatcher := s.loadGitignore(root)
	result := &ScanResult{Files: []FileRecord{}}

	// afero.Walk lstats its root, so a symlinked root would be seen as a file.
	// A trailing separator makes the lstat resolve the link.
	walkRoot := root
	if lfs, ok := s.Fs.(afero.Lstater); ok {
		if linfo, _, err := lfs.LstatIfPossible(root); err == nil && linfo.Mode()&fs.ModeSymlink != 0 {
			walkRoot = root + string(filepath.Separator)
		}
	}

	err = afero.Walk(s.Fs, walkRoot, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			s.Logger.Warn("无法访问路径", zap.String("path", path), zap.Error(err))
			return nil // Report and continue
		}
		if path == walkRoot {
			return nil
		}

		baseName := info.Name()
		isDir := info.IsDir()

		if ignoreMatcher != nil && ignoreMatcher.Match(path, isDir) {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}

		// Patterns are checked by validatePatterns before the walk.
		if excluded, _ := matchesAnyPattern(baseName, s.Excludes); excluded {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}

		if isDir {
			if s.MaxDepth > 0 {
				relPath, _ := filepath.Rel(root, path)
				if pathDepth(relPath) >= s.MaxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !isYAMLFile(baseName) {
			return nil
		}
		target, ok := s.resolveFile(path, info)
		if !ok {
			return nil
		}
		if s.MaxSize > 0 && target.Size() > s.MaxSize {
			s.Logger.Debug("skipping file over size limit", zap.String("file", path), zap.Int64("size", target.Size()))
			return nil
		}

		rec, err := s.scanFile(path)
		if err != nil {
			s.Logger.Warn("无法读取文件", zap.String("file", path), zap.Error(err))
			return nil
		}
		result.add(rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", root, err)
	}

	return result, nil
}

// resolveFile accepts regular files and symlinks that do not resolve to
// something else, returning the info of the file the link points at. A
// dangling link is accepted with its own info so the read failure gets reported.
func (s *Scanner) resolveFile(path string, info fs.FileInfo) (fs.FileInfo, bool) {
	if info.Mode().IsRegular() {
		return info, true
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return nil, false
	}
	target, err := s.Fs.Stat(path)
	if err != nil {
		return info, true
	}
	return target, target.Mode().IsRegular()
}

// scanFile reads path in full and tallies it. The handle is closed on every return.
func (s *Scanner) scanFile(path string) (FileRecord, error) {
	f, err := s.Fs.Open(path)
	if err != nil {
		return FileRecord{}, err
	}
	defer f.Close()

	text, err := decodeText(f, s.Encoding)
	if err != nil {
		return FileRecord{}, err
	}
	return s.tally(s.relPath(path), text), nil
}

// tally runs the extractor and classifier over text.
func (s *Scanner) tally(name, text string) FileRecord {
	strs := ExtractQuoted(text)
	rec := FileRecord{
		File:    name,
		Strings: len(strs),
		Chars:   countAll(strs, s.Mode),
	}
	if s.Tokenizer != nil && len(strs) > 0 {
		rec.Tokens = s.Tokenizer.CountTokens(strings.Join(strs, "\n"))
	}
	return rec
}

// relPath expresses path relative to BaseDir, falling back to path itself.
func (s *Scanner) relPath(path string) string {
	if s.BaseDir == "" {
		return filepath.Clean(path)
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.BaseDir, abs)
	}
	rel, err := filepath.Rel(s.BaseDir, abs)
	if err != nil {
		return path
	}
	return rel
}

// loadGitignore parses root/.gitignore when gitignore handling is enabled.
func (s *Scanner) loadGitignore(root string) gitignore.IgnoreMatcher {
	if !s.Gitignore {
		return nil
	}
	gitIgnorePath := filepath.Join(root, ".gitignore")
	f, err := s.Fs.Open(gitIgnorePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.Logger.Warn("could not read .gitignore", zap.String("file", gitIgnorePath), zap.Error(err))
		}
		return nil
	}
	defer f.Close()
	return gitignore.NewGitIgnoreFromReader(root, f)
}

// parsePatterns splits a comma-separated string of patterns into a slice.
func parsePatterns(patterns string) []string {
	if patterns == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(patterns, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// matchesAnyPattern checks if the given name matches any of the provided glob patterns.
func matchesAnyPattern(name string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// validatePatterns rejects malformed glob patterns up front.
func validatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
	}
	return nil
}

// pathDepth counts the components of a relative path; "." has depth 0.
func pathDepth(path string) int {
	path = strings.Trim(filepath.ToSlash(path), "/")
	if path == "." || path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}
