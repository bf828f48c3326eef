package usecase

import (
	"context"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/eventbus"
	"github.com/aalvaropc/doclane/internal/ports"
)

// ResultValidated is the payload of eventbus.TopicResultValidated.
type ResultValidated struct {
	ResultID   int64
	DocumentID int64
	Status     domain.ValidationStatus
}

// ReviewResult records a reviewer decision on an extraction result.
type ReviewResult struct {
	results ports.ResultService
	bus     ports.Publisher
}

func NewReviewResult(results ports.ResultService, bus ports.Publisher) *ReviewResult {
	return &ReviewResult{results: results, bus: bus}
}

func (uc *ReviewResult) Execute(ctx context.Context, resultID int64, status string, notes string) (domain.ExtractionResult, error) {
	st, err := domain.ParseValidationStatus(status)
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	res, err := uc.results.Validate(ctx, resultID, st, notes)
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	if uc.bus != nil {
		uc.bus.Publish(eventbus.TopicResultValidated, ResultValidated{
			ResultID:   res.ID,
			DocumentID: res.DocumentID,
			Status:     res.ValidationStatus,
		})
	}
	return res, nil
}
