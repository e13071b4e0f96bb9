package metrics

// Histogram bucket layout shared by duration metrics
const (
	BucketStart1ms = 0.001
	BucketFactor2  = 2
	BucketCount15  = 15
)

// Result status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Ingestion error reasons
const (
	ReasonUnknownUser     = "unknown_user"
	ReasonUnknownSurvey   = "unknown_survey"
	ReasonUnknownQuestion = "unknown_question"
	ReasonInvalidValue    = "invalid_value"
	ReasonDatabase        = "database"
)
