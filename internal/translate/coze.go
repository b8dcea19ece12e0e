package translate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/NicolasFive/VideoTingYi/internal/coze"
)

// CozeTranslator adapts a Coze workflow, which translates and splits in a
// single call, to the Translator interface.
type CozeTranslator struct {
	client coze.Client
	logger *slog.Logger
}

// NewCozeTranslator wraps client. A nil logger uses slog.Default().
func NewCozeTranslator(client coze.Client, logger *slog.Logger) *CozeTranslator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CozeTranslator{client: client, logger: logger}
}

// Translate implements Translator. When the workflow fails every sentence
// gets an empty fragment list.
func (c *CozeTranslator) Translate(ctx context.Context, texts []string, maxLen int) ([][]string, error) {
	if len(texts) == 0 {
		return [][]string{}, nil
	}
	if maxLen < 1 {
		maxLen = 1
	}

	results, err := c.client.Run(ctx, texts, maxLen)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("coze workflow failed, dropping all sentences",
			slog.Int("sentences", len(texts)),
			slog.String("error", err.Error()),
		)
		return make([][]string, len(texts)), nil
	}
	if len(results) != len(texts) {
		c.logger.Warn("coze returned unexpected result count",
			slog.Int("want", len(texts)),
			slog.Int("got", len(results)),
		)
	}

	out := make([][]string, 0, len(results))
	for _, r := range results {
		var frags []string
		for _, f := range r.SplitSentences {
			if f = strings.TrimSpace(f); f != "" {
				frags = append(frags, f)
			}
		}
		out = append(out, frags)
	}
	return padResults(out, len(texts)), nil
}
