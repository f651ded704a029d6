package apierror

import (
	"net/http"

	"github.com/zhouzirui/astra/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/astra/backend/pkg/utils"
)

const (
	MessageInvalidRequest = "Invalid request"
	MessageMalformed      = "AI response was malformed. Please try again."
	MessageFailed         = "Failed to generate analysis"
)

// Response is the client-facing form of a pipeline failure.
type Response struct {
	Status    int
	Body      utils.ErrorBody
	Retryable bool
}

// From maps err onto the status and body exposed to clients. Model output and
// upstream error text never reach the client.
func From(err error) Response {
	e, ok := sentiment.AsError(err)
	if !ok {
		return Response{Status: http.StatusInternalServerError, Body: utils.ErrorBody{Error: MessageFailed}}
	}

	switch {
	case e.ClientFault():
		issues := e.Issues
		if issues == nil {
			issues = []sentiment.Issue{}
		}
		return Response{
			Status: http.StatusBadRequest,
			Body:   utils.ErrorBody{Error: MessageInvalidRequest, Details: issues},
		}
	case e.Kind == sentiment.KindMalformedResponse:
		return Response{
			Status:    http.StatusBadGateway,
			Body:      utils.ErrorBody{Error: MessageMalformed},
			Retryable: true,
		}
	default:
		return Response{
			Status:    http.StatusInternalServerError,
			Body:      utils.ErrorBody{Error: MessageFailed},
			Retryable: e.Retryable(),
		}
	}
}
