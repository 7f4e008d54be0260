package engine

import (
	"errors"

	"github.com/aquactl/aquactl/pkg/config"
	"github.com/aquactl/aquactl/pkg/manager"
	"github.com/aquactl/aquactl/pkg/registry"
)

// APIError is the transport-agnostic error shape every Engine method
// returns instead of a bare error: an external HTTP adapter maps it
// straight onto a status code and JSON body without inspecting Go
// error types itself.
type APIError struct {
	Code       string `json:"code"`
	HTTPStatus int    `json:"-"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string { return e.Message }

// classify turns an internal error into the APIError a transport
// adapter renders. Unresolvable targets (registry.ErrNotFound) become
// 400s, manager backpressure (manager.ErrBusy) becomes 503, a config
// fault is 400 as well, and everything else is an opaque 500 so
// internal error text never leaks verbatim to a caller.
func classify(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return &APIError{Code: "VALIDATION_ERROR", HTTPStatus: 400, Message: err.Error()}
	case errors.Is(err, manager.ErrBusy):
		return &APIError{Code: "BUSY", HTTPStatus: 503, Message: err.Error()}
	case errors.Is(err, ErrUnknownJob):
		return &APIError{Code: "VALIDATION_ERROR", HTTPStatus: 400, Message: err.Error()}
	case errors.Is(err, ErrInvalidSchedule):
		return &APIError{Code: "VALIDATION_ERROR", HTTPStatus: 400, Message: err.Error()}
	default:
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			return &APIError{Code: "VALIDATION_ERROR", HTTPStatus: 400, Message: err.Error()}
		}
		return &APIError{Code: "INTERNAL_ERROR", HTTPStatus: 500, Message: err.Error()}
	}
}

// ErrUnknownJob is returned when a schedule mutation names a job id
// the Scheduler has never seen.
var ErrUnknownJob = errors.New("unknown scheduled job")

// ErrInvalidSchedule is returned when CreateJob/UpdateJob is given a
// malformed cron expression or an unresolvable target.
var ErrInvalidSchedule = errors.New("invalid schedule definition")

// ErrScheduleStoreUnavailable wraps a failure to open or migrate the
// durable schedule store at New, distinguishing it (exit code 3, per
// the CLI's contract) from a configuration fault (exit code 2) and
// every other startup fault (exit code 1).
var ErrScheduleStoreUnavailable = errors.New("durable schedule store unavailable")
