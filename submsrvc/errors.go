package submsrvc

import (
	"fmt"
	"net/http"
	"time"

	"github.com/programme-lv/duel/srvcerror"
)

const ErrCodeRateLimited = "submission_rate_limited"

func ErrRateLimited(retryAfter time.Time) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeRateLimited,
		fmt.Sprintf("Too many submissions, try again after %s", retryAfter.UTC().Format(time.RFC3339)),
	).SetHttpStatusCode(http.StatusTooManyRequests).SetRetryAfter(retryAfter)
}

const ErrCodeDuplicateSubmission = "duplicate_submission"

func ErrDuplicateSubmission() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeDuplicateSubmission,
		"This submission id has already been used",
	).SetHttpStatusCode(http.StatusConflict)
}

const ErrCodeArtifactNotFound = "artifact_not_found"

func ErrArtifactNotFound() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeArtifactNotFound,
		"The source code was not uploaded",
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodeArtifactTooLarge = "artifact_too_large"

func ErrArtifactTooLarge(maxBytes int64) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeArtifactTooLarge,
		fmt.Sprintf("The source code is too large, the limit is %d KB", maxBytes/1024),
	).SetHttpStatusCode(http.StatusBadRequest)
}

const ErrCodeInvalidRole = "invalid_role"

func ErrInvalidRole(role string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidRole,
		fmt.Sprintf("Unknown role %q", role),
	).SetHttpStatusCode(http.StatusBadRequest)
}

const ErrCodeInvalidSubmissionId = "invalid_submission_id"

func ErrInvalidSubmissionId() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidSubmissionId,
		"Invalid submission id",
	).SetHttpStatusCode(http.StatusBadRequest)
}

const ErrCodeSubmissionNotFound = "submission_not_found"

func ErrSubmissionNotFound() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeSubmissionNotFound,
		"Submission not found",
	).SetHttpStatusCode(http.StatusNotFound)
}
