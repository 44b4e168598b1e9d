package conduit

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-multierror"
	"google.golang.org/api/googleapi"
)

var (
	// ErrCertificateIdentity means the PKCS12 bundle could not be decoded.
	ErrCertificateIdentity = errors.New("certificate identity error")

	// ErrConfigureHTTPClient means the HTTP client could not be built.
	ErrConfigureHTTPClient = errors.New("fail to configure http client")

	// ErrValidation means the caller passed invalid arguments.
	ErrValidation = errors.New("validation error")

	// ErrFetchSubTasks means one or more subtask fetches failed.
	ErrFetchSubTasks = errors.New("fetch sub tasks error")

	// ErrParse means the response did not have the expected shape.
	ErrParse = errors.New("parse error")

	// ErrConduit means Conduit answered with an error_code.
	ErrConduit = errors.New("conduit error")

	// ErrNotLoggedIn means OAuth is configured but no usable token is stored.
	ErrNotLoggedIn = errors.New("not logged in")
)

// joinLines formats aggregated branch failures one per line.
func joinLines(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// aggregate turns collected branch failures into a single error.
func aggregate(merr *multierror.Error) error {
	if merr == nil || len(merr.Errors) == 0 {
		return nil
	}
	merr.ErrorFormat = joinLines
	return fmt.Errorf("%w:\n%w", ErrFetchSubTasks, merr)
}

// wrapError wraps HTTP errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: phab login): %w", err)
		case http.StatusNotFound:
			return fmt.Errorf("not found: %w", err)
		}
	}

	if strings.Contains(err.Error(), "context deadline exceeded") {
		return fmt.Errorf("request timed out: %w", err)
	}

	return err
}
