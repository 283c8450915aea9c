package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetTokenizer_UnsupportedType(t *testing.T) {
	tk, err := getTokenizer(TokenizerOptions{Type: "sentencepiece"}, zap.NewNop())
	assert.Nil(t, tk)
	assert.ErrorContains(t, err, "unsupported tokenizer type")
}

func TestLoadHuggingFace_MissingFile(t *testing.T) {
	_, err := getTokenizer(TokenizerOptions{Type: "huggingface", File: "/nonexistent/tokenizer.json"}, zap.NewNop())
	assert.ErrorContains(t, err, "failed to load tokenizer from file")
}

func TestWrappers_NilBackends(t *testing.T) {
	assert.Equal(t, 0, (&TiktokenWrapper{}).CountTokens("hello"))
	assert.Equal(t, 0, (&HFTokenizerWrapper{logger: zap.NewNop()}).CountTokens("hello"))
}

func TestCLI_TokenizerFailureDisablesTokens(t *testing.T) {
	localisationDir(t)

	code, stdout, stderr := runCLI(t, "--tokens", "--tokenizer", "sentencepiece")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "token estimation disabled")
	assert.NotContains(t, stdout, "token数")
	assert.Contains(t, stdout, "总字符数: 24\n")
}
