package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
)

// Default settings for the OpenAI-compatible translator.
const (
	DefaultModel               = "qwen-plus"
	DefaultTargetLanguage      = "zh-Hans"
	DefaultMaxConcurrentSplits = 3
)

// ErrAPIKeyRequired is returned when no API key is given.
var ErrAPIKeyRequired = errors.New("translate: api key is required")

// OpenAITranslator translates through any OpenAI-compatible chat endpoint.
// All sentences are translated in a single JSON-mode request; each
// translation is then split by its own request, a bounded number at a time.
type OpenAITranslator struct {
	client         *openai.Client
	model          string
	targetLanguage string
	maxSplits      int
	translate      *Prompt
	split          *Prompt
	logger         *slog.Logger

	apiKey     string
	baseURL    string
	promptDir  string
	httpClient *http.Client
}

// OpenAIOption configures an OpenAITranslator.
type OpenAIOption func(*OpenAITranslator)

// WithBaseURL points the client at an OpenAI-compatible endpoint,
// e.g. "https://dashscope.aliyuncs.com/compatible-mode/v1".
func WithBaseURL(u string) OpenAIOption {
	return func(t *OpenAITranslator) {
		t.baseURL = u
	}
}

// WithModel sets the chat model.
func WithModel(m string) OpenAIOption {
	return func(t *OpenAITranslator) {
		if m != "" {
			t.model = m
		}
	}
}

// WithTargetLanguage sets the BCP 47 tag of the translation language.
func WithTargetLanguage(tag string) OpenAIOption {
	return func(t *OpenAITranslator) {
		if tag != "" {
			t.targetLanguage = tag
		}
	}
}

// WithPromptDir overrides the built-in prompts with files from dir.
func WithPromptDir(dir string) OpenAIOption {
	return func(t *OpenAITranslator) {
		t.promptDir = dir
	}
}

// WithMaxConcurrentSplits bounds the number of split requests in flight.
func WithMaxConcurrentSplits(n int) OpenAIOption {
	return func(t *OpenAITranslator) {
		if n > 0 {
			t.maxSplits = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) OpenAIOption {
	return func(t *OpenAITranslator) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(t *OpenAITranslator) {
		t.httpClient = c
	}
}

// NewOpenAITranslator creates a translator authenticated with apiKey.
func NewOpenAITranslator(apiKey string, opts ...OpenAIOption) (*OpenAITranslator, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	t := &OpenAITranslator{
		apiKey:         apiKey,
		model:          DefaultModel,
		targetLanguage: DefaultTargetLanguage,
		maxSplits:      DefaultMaxConcurrentSplits,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	var err error
	if t.translate, err = LoadPrompt(PromptTranslate, t.promptDir); err != nil {
		return nil, err
	}
	if t.split, err = LoadPrompt(PromptSplit, t.promptDir); err != nil {
		return nil, err
	}

	cfg := openai.DefaultConfig(t.apiKey)
	if t.baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(t.baseURL, "/")
	}
	if t.httpClient != nil {
		cfg.HTTPClient = t.httpClient
	}
	t.client = openai.NewClientWithConfig(cfg)

	return t, nil
}

// Translate implements Translator.
func (t *OpenAITranslator) Translate(ctx context.Context, texts []string, maxLen int) ([][]string, error) {
	if len(texts) == 0 {
		return [][]string{}, nil
	}
	if maxLen < 1 {
		maxLen = 1
	}

	translated, err := t.translateAll(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.logger.Warn("translation failed, using source text",
			slog.Int("sentences", len(texts)),
			slog.String("error", err.Error()),
		)
		translated = texts
	}

	out := make([][]string, len(translated))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.maxSplits)
	for i, text := range translated {
		g.Go(func() error {
			frags, err := t.splitOne(gctx, text, maxLen)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				t.logger.Warn("split failed, dropping sentence",
					slog.Int("index", i),
					slog.String("error", err.Error()),
				)
				return nil
			}
			out[i] = frags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

type translateData struct {
	Texts    []string
	Count    int
	Language string
}

type splitData struct {
	Text      string
	MaxLength int
	Language  string
}

func (t *OpenAITranslator) translateAll(ctx context.Context, texts []string) ([]string, error) {
	sys, usr, err := t.translate.Render(translateData{
		Texts:    texts,
		Count:    len(texts),
		Language: LanguageName(t.targetLanguage),
	})
	if err != nil {
		return nil, err
	}

	reply, err := t.chat(ctx, sys, usr)
	if err != nil {
		return nil, err
	}

	out, err := decodeList(reply, "translations")
	if err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, errMismatch(len(texts), len(out))
	}
	return out, nil
}

func (t *OpenAITranslator) splitOne(ctx context.Context, text string, maxLen int) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if len([]rune(text)) <= maxLen {
		return []string{text}, nil
	}

	sys, usr, err := t.split.Render(splitData{
		Text:      text,
		MaxLength: maxLen,
		Language:  LanguageName(t.targetLanguage),
	})
	if err != nil {
		return nil, err
	}

	reply, err := t.chat(ctx, sys, usr)
	if err != nil {
		return nil, err
	}

	frags, err := decodeList(reply, "split_sentences")
	if err != nil {
		return nil, err
	}
	out := frags[:0]
	for _, f := range frags {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out, nil
}

func (t *OpenAITranslator) chat(ctx context.Context, system, user string) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("translate: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("translate: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// decodeList accepts either {"<key>": [...]} or a bare JSON array.
func decodeList(reply, key string) ([]string, error) {
	reply = stripCodeFence(reply)

	var list []string
	if err := json.Unmarshal([]byte(reply), &list); err == nil {
		return list, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(reply), &obj); err != nil {
		return nil, fmt.Errorf("translate: decode reply: %w", err)
	}
	raw, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("translate: reply has no %q field", key)
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("translate: decode %q: %w", key, err)
	}
	return list, nil
}
