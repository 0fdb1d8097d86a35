package opinionsserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	apierrors "github.com/Apurer/opinions-api/internal/shared/errors"
)

// domainErrorMapper maps opinion error kinds to problem responses. Infrastructure failures
// expose only the operation message; the wrapped cause is logged by respondServiceError.
func domainErrorMapper(err error) (apierrors.ProblemDetail, bool) {
	var de *domain.Error
	if !errors.As(err, &de) {
		return apierrors.ProblemDetail{}, false
	}
	msg := de.Msg
	if msg == "" {
		msg = de.Error()
	}
	switch de.Kind {
	case domain.KindNotFound:
		return apierrors.ErrNotFound.WithDetail(msg), true
	case domain.KindConflict:
		return apierrors.ErrConflict.WithDetail(msg), true
	case domain.KindInvalidOperation:
		return apierrors.ErrUnprocessable.WithDetail(msg), true
	case domain.KindRemoteService:
		return apierrors.ErrBadGateway.WithDetail(msg), true
	case domain.KindPersistence:
		return apierrors.ErrInternal.WithDetail(msg), true
	}
	return apierrors.ProblemDetail{}, false
}

// validationErrorMapper turns binding failures into a 400 with a field map.
func validationErrorMapper(err error) (apierrors.ProblemDetail, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.ProblemDetail{}, false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
	return apierrors.NewValidationProblem(fields), true
}

var responder = apierrors.NewChainedResponder("", validationErrorMapper, domainErrorMapper)

func respondBindingError(c *gin.Context, err error) {
	if problem, ok := validationErrorMapper(err); ok {
		responder.Respond(c, problem)
		return
	}
	responder.BadRequest(c, err.Error())
}

func respondServiceError(c *gin.Context, logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	if status := statusFor(err); status >= http.StatusInternalServerError && logger != nil {
		logger.LogAttrs(c.Request.Context(), slog.LevelError, "opinions request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", RequestID(c)),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
	responder.RespondError(c, err)
}

func statusFor(err error) int {
	if problem, ok := domainErrorMapper(err); ok {
		return problem.Status
	}
	return http.StatusInternalServerError
}
