package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/logging"
)

const maskedMessage = "Something went wrong!"

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Cause   string `json:"cause,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// ErrorResponder is the terminal formatter for every failed request.
type ErrorResponder struct {
	production bool
	log        logging.Logger
}

func NewErrorResponder(production bool, log logging.Logger) *ErrorResponder {
	return &ErrorResponder{production: production, log: log.With("module", "errors")}
}

// Write renders err. Operational errors keep their message. Non-operational
// errors are logged and, in production, replaced by a generic message.
func (e *ErrorResponder) Write(w http.ResponseWriter, r *http.Request, err error) {
	appErr := common.AsAppError(err)
	if appErr == nil {
		appErr = common.New(common.KindInternal, "internal error")
	}
	code := appErr.StatusCode()

	if !appErr.Operational() {
		e.log.Error(r.Context(), "request failed",
			"error", appErr, "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()))
	}

	body := errorBody{Status: statusText(code), Message: appErr.Message}
	switch {
	case !e.production:
		body.Kind = appErr.Kind.String()
		body.Stack = appErr.Stack()
		if appErr.Err != nil {
			body.Cause = appErr.Err.Error()
		}
	case !appErr.Operational():
		body.Message = maskedMessage
	}

	writeJSON(w, code, body)
}

func statusText(code int) string {
	if code >= 400 && code < 500 {
		return "fail"
	}
	return "error"
}
