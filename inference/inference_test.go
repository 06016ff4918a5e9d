package inference

import (
	"context"
	"testing"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/platform/platformtest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeCallsOnceWithExactRequest(t *testing.T) {
	response := []byte("0.0312\n0.8734\n")
	rt := &platformtest.StubRuntime{Response: response}
	payload := []byte("45,84,60000\n54,60,10000")

	got, err := NewClient(rt).Invoke(context.Background(), "your-endpoint-name", payload)
	require.NoError(t, err)

	assert.Equal(t, response, got)
	require.Len(t, rt.Calls, 1)
	call := rt.Calls[0]
	assert.Equal(t, "your-endpoint-name", aws.ToString(call.EndpointName))
	assert.Equal(t, "text/csv", aws.ToString(call.ContentType))
	assert.Equal(t, payload, call.Body)
	assert.Nil(t, call.Accept)
}

func TestInvokeReturnsBodyUnparsed(t *testing.T) {
	for _, body := range [][]byte{{}, []byte("not,a,number"), {0xff, 0x00, 0x10}} {
		rt := &platformtest.StubRuntime{Response: body}
		got, err := NewClient(rt).Invoke(context.Background(), "ep", []byte("1,2"))
		require.NoError(t, err)
		assert.Equal(t, body, got)
	}
}

func TestInvokeErrorNotRetried(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "ModelError", Message: "Received server error (500)"}
	rt := &platformtest.StubRuntime{Err: apiErr}

	_, err := NewClient(rt).Invoke(context.Background(), "ep", []byte("1,2"))

	assert.Len(t, rt.Calls, 1)
	var rErr *errors.RemoteError
	require.True(t, errors.As(err, &rErr), "got %v", err)
	assert.Equal(t, "ep", rErr.Resource)
	var got smithy.APIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "ModelError", got.ErrorCode())
}
