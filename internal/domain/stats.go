package domain

// Stats is the dashboard aggregate returned by the service.
type Stats struct {
	DocumentCounts    QueueCounts    `json:"document_counts"`
	QueueCounts       QueueStats     `json:"queue_counts"`
	ProcessingMetrics AverageMetrics `json:"processing_metrics"`
	RecentActivity    RecentActivity `json:"recent_activity"`
}

// QueueStats counts queue items; the queue reports "completed" where documents say "processed".
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

type AverageMetrics struct {
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
}

type RecentActivity struct {
	Documents []string       `json:"documents"`
	Results   []RecentResult `json:"results"`
}

// RecentResult is one entry of the dashboard recent activity.
type RecentResult struct {
	DocumentID int64   `json:"document_id"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
}

// ProcessingTime is the per-stage timing breakdown in seconds.
type ProcessingTime struct {
	TextRecognition    float64 `json:"text_recognition"`
	EntityExtraction   float64 `json:"entity_extraction"`
	DatabaseOperations float64 `json:"database_operations"`
	Total              float64 `json:"total"`
}

// VolumePoint is one bucket of historical processing volume.
type VolumePoint struct {
	Name   string `json:"name"`
	Volume int    `json:"volume"`
}

// ProcessingMetrics is the normalized chart data for the dashboard.
type ProcessingMetrics struct {
	ProcessingTime    ProcessingTime     `json:"processing_time"`
	AvgConfidence     float64            `json:"avg_confidence"`
	ErrorDistribution map[string]float64 `json:"error_distribution"`
	Volume            []VolumePoint      `json:"volume"`
}

// DefaultProcessingMetrics are the chart values shown for fields the service omits.
func DefaultProcessingMetrics() ProcessingMetrics {
	return ProcessingMetrics{
		ProcessingTime: ProcessingTime{
			TextRecognition:    1.2,
			EntityExtraction:   1.8,
			DatabaseOperations: 0.4,
			Total:              3.4,
		},
		AvgConfidence: 0.95,
		ErrorDistribution: map[string]float64{
			"format_errors":         0.5,
			"ocr_issues":            0.4,
			"classification_errors": 0.2,
			"other":                 0.1,
		},
		Volume: []VolumePoint{
			{Name: "Mon", Volume: 45},
			{Name: "Tue", Volume: 52},
			{Name: "Wed", Volume: 49},
			{Name: "Thu", Volume: 60},
			{Name: "Fri", Volume: 72},
			{Name: "Sat", Volume: 58},
			{Name: "Sun", Volume: 50},
		},
	}
}
