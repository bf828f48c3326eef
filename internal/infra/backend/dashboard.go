package backend

import (
	"context"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ports"
)

type Dashboard struct {
	c Caller
}

var _ ports.DashboardService = (*Dashboard)(nil)

func (d *Dashboard) Stats(ctx context.Context) (domain.Stats, error) {
	var out domain.Stats
	err := d.c.Get(ctx, apiPrefix+"/status/stats", nil, &out)
	return out, err
}

// metricsDTO is the wire shape of /status/processing_metrics. Every field is optional.
type metricsDTO struct {
	ProcessingTime    *stageTimesDTO       `json:"processing_time"`
	Accuracy          *accuracyDTO         `json:"accuracy"`
	ErrorDistribution map[string]float64   `json:"error_distribution"`
	HistoricalData    []domain.VolumePoint `json:"historical_data"`
}

type stageTimesDTO struct {
	OCR      *float64 `json:"ocr_time"`
	NLP      *float64 `json:"nlp_extraction_time"`
	Database *float64 `json:"db_operation_time"`
	Total    *float64 `json:"total_time"`
}

type accuracyDTO struct {
	AvgConfidence *float64 `json:"avg_confidence"`
}

// ProcessingMetrics fetches chart data. Fields the service leaves out are filled with
// DefaultProcessingMetrics values; a failed call is returned as an error.
func (d *Dashboard) ProcessingMetrics(ctx context.Context) (domain.ProcessingMetrics, error) {
	var dto metricsDTO
	if err := d.c.Get(ctx, apiPrefix+"/status/processing_metrics", nil, &dto); err != nil {
		return domain.ProcessingMetrics{}, err
	}
	return normalizeMetrics(dto), nil
}

func normalizeMetrics(dto metricsDTO) domain.ProcessingMetrics {
	out := domain.DefaultProcessingMetrics()

	if pt := dto.ProcessingTime; pt != nil {
		setIf(&out.ProcessingTime.TextRecognition, pt.OCR)
		setIf(&out.ProcessingTime.EntityExtraction, pt.NLP)
		setIf(&out.ProcessingTime.DatabaseOperations, pt.Database)
		setIf(&out.ProcessingTime.Total, pt.Total)
	}
	if dto.Accuracy != nil {
		setIf(&out.AvgConfidence, dto.Accuracy.AvgConfidence)
	}
	if dto.ErrorDistribution != nil {
		out.ErrorDistribution = dto.ErrorDistribution
	}
	if dto.HistoricalData != nil {
		out.Volume = dto.HistoricalData
	}
	return out
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
