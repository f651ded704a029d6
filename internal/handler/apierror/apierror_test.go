package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/zhouzirui/astra/backend/internal/analysis/sentiment"
)

func TestFromMapsTaxonomyToStatus(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		message   string
		retryable bool
	}{
		{"client validation", sentiment.NewValidationError(sentiment.SourceClient, sentiment.Issue{Path: "message"}), http.StatusBadRequest, MessageInvalidRequest, false},
		{"model validation", sentiment.NewValidationError(sentiment.SourceModel, sentiment.Issue{Path: "confidence"}), http.StatusInternalServerError, MessageFailed, false},
		{"malformed", sentiment.NewMalformedResponseError(errors.New("invalid character")), http.StatusBadGateway, MessageMalformed, true},
		{"upstream", sentiment.Upstreamf("status 503"), http.StatusInternalServerError, MessageFailed, true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, MessageFailed, false},
	}

	for _, tc := range cases {
		got := From(tc.err)
		if got.Status != tc.status || got.Body.Error != tc.message || got.Retryable != tc.retryable {
			t.Fatalf("%s: unexpected response %+v", tc.name, got)
		}
	}
}

func TestFromHidesModelIssues(t *testing.T) {
	got := From(sentiment.NewValidationError(sentiment.SourceModel, sentiment.Issue{Path: "sentiment", Message: "must be one of"}))
	if got.Body.Details != nil {
		t.Fatalf("model validation details must not be exposed: %+v", got.Body.Details)
	}
}
