package main

import (
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"go.uber.org/zap"
)

// Tokenizer estimates how many model tokens a piece of text costs.
type Tokenizer interface {
	CountTokens(text string) int
	Close()
}

// TokenizerOptions selects and configures a tokenizer backend.
type TokenizerOptions struct {
	Type  string // tiktoken or huggingface
	Model string
	File  string // local tokenizer.json, huggingface only
}

const defaultTiktokenModel = "gpt-4o" // Default if tokenizer is tiktoken
const defaultHFModel = "gpt2"         // Default if tokenizer is huggingface and no model specified

// --- Tiktoken Wrapper ---

type TiktokenWrapper struct {
	ttk *tiktoken.Tiktoken
}

func (w *TiktokenWrapper) CountTokens(text string) int {
	if w.ttk == nil {
		return 0
	}
	return len(w.ttk.EncodeOrdinary(text))
}

func (w *TiktokenWrapper) Close() {}

// --- HuggingFace (sugarme) Wrapper ---

type HFTokenizerWrapper struct {
	htk    *hf.Tokenizer
	logger *zap.Logger
}

func (w *HFTokenizerWrapper) CountTokens(text string) int {
	if w.htk == nil {
		return 0
	}
	en, err := w.htk.EncodeSingle(text)
	if err != nil {
		w.logger.Warn("HF tokenizer failed to encode text", zap.Error(err))
		return 0
	}
	return len(en.Tokens)
}

func (w *HFTokenizerWrapper) Close() {}

// getTokenizer returns a tokenizer instance based on opts.
func getTokenizer(opts TokenizerOptions, logger *zap.Logger) (Tokenizer, error) {
	logger.Debug("initializing tokenizer",
		zap.String("type", opts.Type), zap.String("model", opts.Model), zap.String("file", opts.File))

	switch strings.ToLower(opts.Type) {
	case "", "tiktoken":
		return loadTiktoken(opts.Model, logger)
	case "huggingface":
		return loadHuggingFace(opts, logger)
	default:
		return nil, fmt.Errorf("unsupported tokenizer type: %s. Use 'tiktoken' or 'huggingface'", opts.Type)
	}
}

func loadTiktoken(model string, logger *zap.Logger) (Tokenizer, error) {
	if model == "" {
		model = defaultTiktokenModel
	}

	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("tiktoken model not found, falling back to default",
			zap.String("model", model), zap.String("default", defaultTiktokenModel), zap.Error(err))
		tke, err = tiktoken.EncodingForModel(defaultTiktokenModel)
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding for default model '%s': %w", defaultTiktokenModel, err)
		}
	}
	return &TiktokenWrapper{ttk: tke}, nil
}

func loadHuggingFace(opts TokenizerOptions, logger *zap.Logger) (Tokenizer, error) {
	if opts.File != "" {
		ttk, err := pretrained.FromFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer from file %s: %w", opts.File, err)
		}
		return &HFTokenizerWrapper{htk: ttk, logger: logger}, nil
	}

	model := opts.Model
	if model == "" {
		model = defaultHFModel
	}
	logger.Debug("loading HuggingFace tokenizer (this may download files)", zap.String("model", model))

	// CachedPath downloads tokenizer.json from the Hub on first use.
	configFilePath, err := hf.CachedPath(model, "tokenizer.json")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache path for model %s: %w", model, err)
	}
	ttk, err := pretrained.FromFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pretrained tokenizer for model %s (from %s): %w", model, configFilePath, err)
	}
	return &HFTokenizerWrapper{htk: ttk, logger: logger}, nil
}
