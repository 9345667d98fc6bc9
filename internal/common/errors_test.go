package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKindErrors_MatchSentinelAndCause(t *testing.T) {
	cause := errors.New("line 3: unexpected EOF")
	err := InvalidFormat("malformed xml", cause)

	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInvalidFormat, KindOf(err))
	assert.Contains(t, err.Error(), "line 3")
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("process %q: %w", "a.doc", NotSupported("convert to .docx or .pdf"))

	assert.Equal(t, CodeNotSupported, KindOf(err))
	assert.True(t, IsWarning(err))
	assert.Equal(t, "", KindOf(errors.New("plain")))
}

func TestIsWarning_OnlyNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not supported", NotSupported("hint"), true},
		{"unknown format", UnknownFormat("txt"), false},
		{"missing dependency", MissingDependency("poppler", "install it", nil), false},
		{"extraction", ExtractionFailed("boom", errors.New("x")), false},
		{"archive", InvalidArchive(errors.New("zip: not a valid zip file")), false},
		{"enrichment", EnrichmentFailed("bad json", nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWarning(tt.err))
		})
	}
}

func TestUnknownFormat_Messages(t *testing.T) {
	assert.Contains(t, UnknownFormat("txt").Error(), ".txt")
	assert.Contains(t, UnknownFormat("").Error(), "no extension")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnsupportedMediaType, HTTPStatus(NotSupported("x")))
	assert.Equal(t, http.StatusUnsupportedMediaType, HTTPStatus(UnknownFormat("txt")))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(InvalidArchive(nil)))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(MissingDependency("poppler", "hint", nil)))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(EnrichmentFailed("x", nil)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("get: %w", ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestToGRPCStatus(t *testing.T) {
	require.NoError(t, ToGRPCStatus(nil))

	st, ok := status.FromError(ToGRPCStatus(InvalidFormat("bad", nil)))
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())

	st, _ = status.FromError(ToGRPCStatus(MissingDependency("poppler", "hint", nil)))
	assert.Equal(t, codes.FailedPrecondition, st.Code())

	st, _ = status.FromError(ToGRPCStatus(errors.New("boom")))
	assert.Equal(t, codes.Internal, st.Code())

	already := status.Error(codes.Canceled, "gone")
	assert.Equal(t, already, ToGRPCStatus(already))
}
