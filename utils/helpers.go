package utils

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// ErrorResponse writes {"error": message} with status.
func ErrorResponse(re *core.RequestEvent, status int, message string) error {
	return re.JSON(status, map[string]string{"error": message})
}

func NotFoundResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusNotFound, message)
}

func BadRequestResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusBadRequest, message)
}

func InternalErrorResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusInternalServerError, message)
}

// TooManyRequestsResponse sets Retry-After in whole seconds before writing the 429.
func TooManyRequestsResponse(re *core.RequestEvent, retryAfter time.Duration) error {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	re.Response.Header().Set("Retry-After", strconv.Itoa(secs))
	return ErrorResponse(re, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// DataResponse writes data as a 200 JSON body.
func DataResponse(re *core.RequestEvent, data any) error {
	return re.JSON(http.StatusOK, data)
}
