package dao

import (
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestStoreErrClassifiesTransientFailures(t *testing.T) {
	t.Parallel()

	for _, code := range []codes.Code{
		codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted,
	} {
		cause := status.Error(code, "backend down")
		err := storeErr(cause, "get file `%s`", "f1")
		require.ErrorIs(t, err, ErrStoreUnavailable, code.String())
		require.ErrorIs(t, err, cause, "raw cause stays in the chain")
		require.Contains(t, err.Error(), "get file `f1`")
	}
}

func TestStoreErrKeepsDataErrorsOrdinary(t *testing.T) {
	t.Parallel()

	for _, cause := range []error{
		status.Error(codes.NotFound, "no such document"),
		status.Error(codes.PermissionDenied, "nope"),
		errors.New("corrupt payload"),
	} {
		err := storeErr(cause, "get file `%s`", "f1")
		require.NotErrorIs(t, err, ErrStoreUnavailable)
		require.ErrorIs(t, err, cause)
	}
}

func TestStoreErrSentinelsStayDistinct(t *testing.T) {
	t.Parallel()

	err := storeErr(status.Error(codes.Unavailable, "backend down"), "resolve cursor `%s`", "c1")
	require.NotErrorIs(t, err, ErrNotFound)
	require.NotErrorIs(t, err, ErrInvalidCursor)
}
