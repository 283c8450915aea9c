package main

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const defaultEncoding = "utf-8"

// lookupEncoding resolves a WHATWG encoding label such as "utf-8", "gbk" or "utf-16le".
func lookupEncoding(name string) (encoding.Encoding, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	if label == "" || label == "utf-8" || label == "utf8" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// decodeText reads r to the end and decodes it with enc. Invalid byte sequences
// become U+FFFD instead of failing; a leading BOM takes precedence over enc.
func decodeText(r io.Reader, enc encoding.Encoding) (string, error) {
	if enc == nil {
		enc = unicode.UTF8
	}
	decoder := unicode.BOMOverride(enc.NewDecoder())
	b, err := io.ReadAll(transform.NewReader(r, decoder))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
