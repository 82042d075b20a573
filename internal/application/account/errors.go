package account

import (
	"fmt"
	"net/http"

	apperrors "github.com/closeio/authalligator/internal/shared/errors"
	"github.com/closeio/authalligator/internal/shared/logger"
	"github.com/closeio/authalligator/sdk/authalligator"
)

// accountErrorStatus maps AuthAlligator error codes onto HTTP statuses.
func accountErrorStatus(code authalligator.AccountErrorCode) int {
	switch code {
	case authalligator.AccountErrorDoesNotExist:
		return http.StatusNotFound
	case authalligator.AccountErrorTryLater, authalligator.AccountErrorLock:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func fromAccountError(accErr *authalligator.AccountError) *apperrors.AppError {
	message := accErr.Message
	if message == "" {
		message = fmt.Sprintf("account error %s", accErr.Code)
	}
	appErr := apperrors.NewAccountError(accountErrorStatus(accErr.Code), string(accErr.Code), message)
	appErr.RetryAfterSeconds = int(accErr.RetryAfter().Seconds())
	return appErr
}

// fromClientError converts an SDK hard failure.
func fromClientError(op string, err error) error {
	if authalligator.IsInvalidInput(err) {
		return apperrors.NewValidationError("invalid "+op+" input", err.Error())
	}
	return apperrors.NewUpstreamError("authalligator request failed", err.Error())
}

// unwrapResult turns an SDK call outcome into a value or an AppError,
// logging in the severity each outcome deserves.
func unwrapResult[T any](log logger.Interface, op string, result authalligator.Result[T], err error) (*T, error) {
	if err != nil {
		log.Errorw("authalligator call failed", "operation", op, "error", err)
		return nil, fromClientError(op, err)
	}
	if accErr := result.AccountError(); accErr != nil {
		log.Warnw("authalligator returned account error",
			"operation", op,
			"code", accErr.Code,
			"message", accErr.Message,
		)
		return nil, fromAccountError(accErr)
	}
	value, _ := result.Value()
	return value, nil
}
