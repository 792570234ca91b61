package apperrors

import (
	"net/http"

	server_response "rollcall.io/infrastructure/serverResponse"
)

func NotFoundError(ctx interface{}, message string) {
	server_response.Responder.Respond(ctx, http.StatusNotFound, message, nil, nil, nil)
}

func ValidationFailedError(ctx interface{}, errMessages *[]error) {
	server_response.Responder.Respond(ctx, http.StatusUnprocessableEntity, "Payload validation failed", nil, *errMessages, nil)
}

func ErrorProcessingPayload(ctx interface{}) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest, "Abnormal payload passed", nil, nil, nil)
}

// PreconditionFailedError reports requests that cannot run until some
// server-side state exists, e.g. a prediction before any gallery load.
func PreconditionFailedError(ctx interface{}, message string, responseCode *uint) {
	server_response.Responder.Respond(ctx, http.StatusPreconditionFailed, message, nil, nil, responseCode)
}

func ClientError(ctx interface{}, msg string, errs []error, responseCode *uint) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest, msg, nil, errs, responseCode)
}

func UnknownError(ctx interface{}, err error, responseCode *uint) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest,
		"Something went wrong while processing the request. Please try again later.", nil, nil, responseCode)
}

func FatalServerError(ctx interface{}, err error) {
	server_response.Responder.Respond(ctx, http.StatusInternalServerError,
		"Our service is temporarily down. Our team is working to fix it. Please check back later.", nil, nil, nil)
}
