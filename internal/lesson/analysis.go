package lesson

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/internal/generation"
	"github.com/istimaa-app/istimaa/internal/validation"
)

// Analysis is the outcome of the analyze stage. Degraded lists which
// sub-calls failed and yielded empty results.
type Analysis struct {
	Title       string
	ILRLevel    float64
	Dialect     string
	Translation string
	Vocabulary  []entities.VocabularyItem
	Degraded    []string
}

// Analyzer runs the three analysis sub-calls against the generation
// client. Each tolerates failure independently.
type Analyzer struct {
	gen       *generation.Client
	validator *validation.Validator
	logger    *zap.Logger
	vocabSize int
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(gen *generation.Client, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		gen:       gen,
		validator: validation.NewValidator(),
		logger:    logger,
		vocabSize: 10,
	}
}

// Analyze estimates difficulty and dialect, extracts vocabulary and
// translates the transcript. A failed sub-call leaves its fields empty and
// records a degraded marker instead of failing the stage.
func (a *Analyzer) Analyze(ctx context.Context, transcript string) Analysis {
	var analysis Analysis

	a.analyzeLevel(ctx, transcript, &analysis)
	if ctx.Err() != nil {
		return analysis
	}
	a.extractVocabulary(ctx, transcript, &analysis)
	if ctx.Err() != nil {
		return analysis
	}
	a.translate(ctx, transcript, &analysis)

	return analysis
}

func (a *Analyzer) analyzeLevel(ctx context.Context, transcript string, analysis *Analysis) {
	data, _, err := a.gen.JSON(ctx, analysisPrompt(transcript), generation.Options{
		System:      systemPrompt,
		Temperature: 0.2,
		MaxTokens:   500,
	})
	if err != nil || data == nil {
		a.degrade(analysis, "analysis", err)
		return
	}

	obj, ok := data.(map[string]any)
	if !ok {
		a.degrade(analysis, "analysis", nil)
		return
	}

	analysis.Title, _ = obj["title"].(string)
	analysis.Dialect, _ = obj["dialect"].(string)
	analysis.ILRLevel = numericValue(obj["ilr_level"])
}

func (a *Analyzer) extractVocabulary(ctx context.Context, transcript string, analysis *Analysis) {
	data, _, err := a.gen.JSON(ctx, vocabularyPrompt(transcript, a.vocabSize), generation.Options{
		System:      systemPrompt,
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	if err != nil || data == nil {
		a.degrade(analysis, "vocabulary", err)
		return
	}

	items, ok := data.([]any)
	if !ok {
		a.degrade(analysis, "vocabulary", nil)
		return
	}

	for _, entry := range items {
		raw, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := validation.SanitizeVocabularyItem(raw)
		verdict := a.validator.ValidateVocabularyItem(item)
		if !verdict.IsValid {
			if a.logger != nil {
				a.logger.Debug("dropping invalid vocabulary item",
					zap.String("word", item.WordAr),
					zap.Strings("errors", verdict.Errors),
				)
			}
			continue
		}
		analysis.Vocabulary = append(analysis.Vocabulary, item)
	}

	if len(analysis.Vocabulary) == 0 {
		a.degrade(analysis, "vocabulary", nil)
	}
}

func (a *Analyzer) translate(ctx context.Context, transcript string, analysis *Analysis) {
	data, res, err := a.gen.JSON(ctx, translationPrompt(transcript), generation.Options{
		System:      systemPrompt,
		Temperature: 0.2,
		MaxTokens:   4000,
	})
	if err != nil {
		a.degrade(analysis, "translation", err)
		return
	}

	if obj, ok := data.(map[string]any); ok {
		if s, ok := obj["translation"].(string); ok && s != "" {
			analysis.Translation = s
			return
		}
	}
	// Some models answer with the bare translation despite the contract
	if res.Text != "" && data == nil {
		analysis.Translation = res.Text
		return
	}
	a.degrade(analysis, "translation", nil)
}

func (a *Analyzer) degrade(analysis *Analysis, marker string, err error) {
	analysis.Degraded = append(analysis.Degraded, marker)
	if a.logger != nil {
		a.logger.Warn("analysis sub-call degraded",
			zap.String("marker", marker), zap.Error(err))
	}
}

// numericValue accepts JSON numbers and numeric strings ("2+", "2.5")
func numericValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		trimmed := n
		if len(trimmed) > 0 && trimmed[len(trimmed)-1] == '+' {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
	}
	return 0
}
