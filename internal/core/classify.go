package core

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/llm-dm-relay/internal/utils"
	"go.uber.org/zap"
)

// NoopClassifier labels every message as None. Used when no LLM provider is configured.
type NoopClassifier struct{}

// Classify always returns LabelNone
func (NoopClassifier) Classify(_ context.Context, _ string) (*ClassificationResult, error) {
	return &ClassificationResult{
		Label:        LabelNone,
		ModelUsed:    "none",
		ClassifiedAt: time.Now(),
	}, nil
}

// ClassificationService wraps an IntentClassifier with caching and a fail-open policy
type ClassificationService struct {
	classifier   IntentClassifier
	cache        LabelCache
	logger       *zap.Logger
	timeout      time.Duration
	cacheEnabled bool
	cacheTTL     time.Duration
}

// NewClassificationService creates a new classification service. cache may be nil.
func NewClassificationService(
	classifier IntentClassifier,
	cache LabelCache,
	logger *zap.Logger,
	timeout time.Duration,
	cacheEnabled bool,
	cacheTTL time.Duration,
) *ClassificationService {
	return &ClassificationService{
		classifier:   classifier,
		cache:        cache,
		logger:       logger,
		timeout:      timeout,
		cacheEnabled: cacheEnabled && cache != nil,
		cacheTTL:     cacheTTL,
	}
}

// Classify returns the label for text. It never fails: any classifier error
// or unusable result degrades to LabelNone.
func (s *ClassificationService) Classify(ctx context.Context, text string) Label {
	var digest string
	if s.cacheEnabled {
		digest = utils.DigestText(text)
		if label, ok := s.cache.Get(ctx, digest); ok {
			s.logger.Debug("Classification cache hit", zap.String("digest", digest))
			return label
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		s.logger.Warn("Classification failed, using sentinel label",
			zap.Error(fmt.Errorf("%w: %w", ErrClassification, err)),
			zap.String("label", string(LabelNone)))
		return LabelNone
	}
	if result == nil {
		s.logger.Warn("Classifier returned no result, using sentinel label",
			zap.Error(fmt.Errorf("%w: empty result", ErrClassification)))
		return LabelNone
	}

	label, ok := ParseLabel(string(result.Label))
	if !ok {
		s.logger.Warn("Unrecognised classification label",
			zap.Error(fmt.Errorf("%w: unknown label %q", ErrClassification, result.Label)),
			zap.String("processing_id", result.ProcessingID),
			zap.String("model", result.ModelUsed))
		return LabelNone
	}

	// None is not cached so that a later call may still succeed
	if s.cacheEnabled && label != LabelNone {
		s.cache.Set(ctx, digest, label, s.cacheTTL)
	}

	s.logger.Debug("Message classified",
		zap.String("label", string(label)),
		zap.String("model", result.ModelUsed),
		zap.String("processing_id", result.ProcessingID))
	return label
}
