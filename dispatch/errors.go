package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/loafoe/kong-plugin-oemgateway/credentials"
	"github.com/loafoe/kong-plugin-oemgateway/oemapi"
	"github.com/loafoe/kong-plugin-oemgateway/signature"
	"github.com/loafoe/kong-plugin-oemgateway/token"
)

// UnsupportedMethodError is returned for an unknown method name.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("Unknown method: %s", e.Method)
}

// BadRequestError reports an unusable request body or endpoint parameter.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("bad request: %s", e.Reason)
}

// ErrorResponse is the envelope written for every failed dispatch.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// classify maps err onto an HTTP status, a caller facing envelope and a kind for logs.
func classify(err error) (int, ErrorResponse, string) {
	var (
		unsupported *UnsupportedMethodError
		badRequest  *BadRequestError
		cfgErr      *token.ConfigurationError
		authErr     *token.AuthError
		retriable   *oemapi.RetriableError
		apiErr      *oemapi.APIError
		transport   *oemapi.TransportError
		decodeErr   *oemapi.DecodeError
		sigErr      *signature.Error
	)
	switch {
	case errors.As(err, &sigErr):
		return http.StatusUnauthorized, ErrorResponse{
			Error:   "request signature rejected",
			Details: sigErr.Reason,
		}, "signature"
	case errors.As(err, &unsupported):
		return http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Details: "supported methods: " + supportedList(),
		}, "unsupported_method"
	case errors.As(err, &badRequest):
		return http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Details: `expected a JSON body of the form {"method": string, "endpoint"?: string}`,
		}, "bad_request"
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, ErrorResponse{
			Error:   err.Error(),
			Details: fmt.Sprintf("set %s and %s for the gateway", credentials.EnvClientID, credentials.EnvClientSecret),
		}, "configuration"
	case errors.As(err, &authErr):
		return http.StatusBadGateway, ErrorResponse{
			Error:   "OEM identity provider rejected the client credentials exchange",
			Details: fmt.Sprintf("status %d: %s", authErr.StatusCode, authErr.Body),
		}, "auth"
	case errors.As(err, &retriable):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   err.Error(),
			Details: "the OEM API kept failing after all retry attempts; try again later",
		}, "retries_exhausted"
	case errors.As(err, &transport):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   "OEM API unreachable",
			Details: "the OEM API could not be reached after all retry attempts; try again later",
		}, "transport"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, ErrorResponse{
			Error:   fmt.Sprintf("OEM API call failed: %d", apiErr.Status),
			Details: apiErr.Body,
		}, "vendor_api"
	case errors.As(err, &decodeErr):
		return http.StatusBadGateway, ErrorResponse{
			Error:   err.Error(),
			Details: "the OEM API answered with a body that is not JSON",
		}, "vendor_api"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error:   "request cancelled",
			Details: err.Error(),
		}, "cancelled"
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   err.Error(),
			Details: "Check gateway logs for more information",
		}, "internal"
	}
}
