package workorder

// Status is a work order status code, used as the JSON-RPC error code of
// work order responses.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusInvalidParameterFormatOrValue
	StatusAccessDenied
	StatusInvalidSignature
	StatusPending
	StatusScheduled
	StatusProcessing
	StatusBusy
	StatusInvalidDataFormat
	StatusUnknownError
)

var statusNames = [...]string{
	StatusSuccess:                       "SUCCESS",
	StatusFailed:                        "FAILED",
	StatusInvalidParameterFormatOrValue: "INVALID_PARAMETER_FORMAT_OR_VALUE",
	StatusAccessDenied:                  "ACCESS_DENIED",
	StatusInvalidSignature:              "INVALID_SIGNATURE",
	StatusPending:                       "PENDING",
	StatusScheduled:                     "SCHEDULED",
	StatusProcessing:                    "PROCESSING",
	StatusBusy:                          "BUSY",
	StatusInvalidDataFormat:             "INVALID_DATA_FORMAT",
	StatusUnknownError:                  "UNKNOWN_ERROR",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "UNKNOWN_ERROR"
	}
	return statusNames[s]
}

// Pending reports whether the work order has not finished yet, so its
// result should be polled again later.
func (s Status) Pending() bool {
	return s == StatusPending || s == StatusScheduled || s == StatusProcessing
}
