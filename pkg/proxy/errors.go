package proxy

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/lazyproxy/pkg/lifecycle"
	"mercator-hq/lazyproxy/pkg/proxy/types"
	"mercator-hq/lazyproxy/pkg/telemetry/metrics"
)

// HandleError converts a request error into the JSON error envelope:
//
//	*RoutingError            -> 400 missing_header / invalid_header
//	*lifecycle.StartFailure  -> 504 service_start_failed
//	*ForwardError            -> 502 upstream_unreachable
//	anything else            -> 500 internal_error
func HandleError(err error) *types.ErrorResponse {
	var routingErr *RoutingError
	if errors.As(err, &routingErr) {
		code := types.CodeInvalidHeader
		if routingErr.Missing {
			code = types.CodeMissingHeader
		}
		return types.NewInvalidRequestError(routingErr.Error(), routingErr.Header, code)
	}

	var startErr *lifecycle.StartFailure
	if errors.As(err, &startErr) {
		return types.NewGatewayTimeoutError(startErr.Error())
	}

	var forwardErr *ForwardError
	if errors.As(err, &forwardErr) {
		return types.NewBadGatewayError(forwardErr.Error())
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}

// outcomeFor returns the metrics outcome label for err.
func outcomeFor(err error) string {
	var (
		routingErr *RoutingError
		startErr   *lifecycle.StartFailure
		forwardErr *ForwardError
	)
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &routingErr):
		return metrics.OutcomeBadRequest
	case errors.As(err, &startErr):
		return metrics.OutcomeStartFailed
	case errors.As(err, &forwardErr):
		return metrics.OutcomeUpstreamErr
	default:
		return metrics.OutcomeError
	}
}

// WriteErrorResponse writes errResp as JSON with the status derived from its
// type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(errResp.Error.HTTPStatusCode())

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
