package quality

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Service runs the validate -> classify -> recommend -> compose pipeline
// against an injected classifier.
type Service struct {
	classifier Classifier
	rules      []Rule
	logger     *zap.Logger
}

// NewService creates a Service that uses DefaultRules.
func NewService(classifier Classifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		classifier: classifier,
		rules:      DefaultRules,
		logger:     logger,
	}
}

// WithRules returns a copy of s evaluating the given rule table.
func (s *Service) WithRules(rules []Rule) *Service {
	cp := *s
	cp.rules = rules
	return &cp
}

// Evaluate runs the full pipeline. The envelope is always usable; the error
// is returned alongside it so the caller can pick a status code.
// Failures other than validation are logged with their full cause.
func (s *Service) Evaluate(raw RawInput, fields ...zap.Field) (env Envelope, err error) {
	logger := s.logger.With(fields...)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during evaluation: %v", r)
			logger.Error("prediction error", zap.Error(err), zap.Stack("stack"))
			env = ErrorEnvelope(err)
		}
	}()

	env, err = s.evaluate(raw)
	switch KindOf(err) {
	case KindNone:
	case KindValidation:
		logger.Warn("validation error", zap.Error(err))
	default:
		logger.Error("prediction error", zap.String("kind", KindOf(err).String()), zap.Error(err))
	}
	return env, err
}

func (s *Service) evaluate(raw RawInput) (Envelope, error) {
	v, err := Validate(raw)
	if err != nil {
		return ErrorEnvelope(err), err
	}

	if s.classifier == nil {
		err := errors.New("no classifier loaded")
		return ErrorEnvelope(err), err
	}

	res, err := Classify(s.classifier, v)
	if err != nil {
		return ErrorEnvelope(err), err
	}

	return Compose(v, res, RecommendWith(s.rules, v)), nil
}

// Recommendations validates raw and returns only the advisory list.
func (s *Service) Recommendations(raw RawInput) ([]string, error) {
	v, err := Validate(raw)
	if err != nil {
		return nil, err
	}
	return RecommendWith(s.rules, v), nil
}
