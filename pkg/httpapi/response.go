package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/lock"
)

// Error codes for failures that are not rejections
const (
	CodeBusy     = "busy"
	CodeInternal = "internal"
)

// Response wraps an error returned to the caller
type Response struct {
	Error ResponseError `json:"error"`
}

// ResponseError carries a rejection kind (or CodeBusy/CodeInternal) and a message
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps an error to an HTTP status and response code
func statusFor(err error) (int, string) {
	if r, ok := model.AsRejection(err); ok {
		switch r.Kind {
		case model.KindNotFound:
			return http.StatusNotFound, string(r.Kind)
		case model.KindPermission, model.KindAssociation:
			return http.StatusForbidden, string(r.Kind)
		case model.KindInvalid:
			return http.StatusBadRequest, string(r.Kind)
		case model.KindPrecondition:
			return http.StatusConflict, string(r.Kind)
		default:
			return http.StatusUnprocessableEntity, string(r.Kind)
		}
	}
	if errors.Is(err, lock.ErrBusy) {
		return http.StatusServiceUnavailable, CodeBusy
	}
	return http.StatusInternalServerError, CodeInternal
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	message := err.Error()
	if rej, ok := model.AsRejection(err); ok {
		message = rej.Detail
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		message = "internal error"
	}

	render.Status(r, status)
	render.JSON(w, r, Response{Error: ResponseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
