package schema

import "errors"

// Sentinel errors shared by every stage of the pipeline.
var (
	ErrInvalidMetricValue = errors.New("invalid metric value")
	ErrNonNumericField    = errors.New("non-numeric field")
	ErrMixedFieldKinds    = errors.New("mixed field kinds")
	ErrNoSourceData       = errors.New("no source data")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrQuotaExhausted     = errors.New("quota exhausted")
	ErrRunTimedOut        = errors.New("run timed out")
	ErrInvalidConfig      = errors.New("invalid config")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidMetricValue, "InvalidMetricValue"},
	{ErrNonNumericField, "NonNumericField"},
	{ErrMixedFieldKinds, "MixedFieldKinds"},
	{ErrNoSourceData, "NoSourceData"},
	{ErrUnknownCategory, "UnknownCategory"},
	{ErrQuotaExhausted, "QuotaExhausted"},
	{ErrRunTimedOut, "RunTimedOut"},
	{ErrInvalidConfig, "InvalidConfig"},
}

// ErrorCode maps an error to the code recorded in the error manifest.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "Internal"
}
