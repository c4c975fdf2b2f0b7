package zerror

// Status classifies a ZError independently of any transport.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusBadRequest
	StatusUnauthorized
	StatusForbidden
	StatusNotFound
	StatusConflict
	StatusUnprocessableEntity
	StatusValidationFailed
	StatusTooManyRequests
	StatusInternalServerError
	StatusTimeout
	StatusNotImplemented
	StatusBadGateway
	StatusServiceUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusBadRequest:
		return "BAD_REQUEST"
	case StatusUnauthorized:
		return "UNAUTHORIZED"
	case StatusForbidden:
		return "FORBIDDEN"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusConflict:
		return "CONFLICT"
	case StatusUnprocessableEntity:
		return "UNPROCESSABLE_ENTITY"
	case StatusValidationFailed:
		return "VALIDATION_FAILED"
	case StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case StatusInternalServerError:
		return "INTERNAL_SERVER_ERROR"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusNotImplemented:
		return "NOT_IMPLEMENTED"
	case StatusBadGateway:
		return "BAD_GATEWAY"
	case StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}
