// Package inference sends CSV feature rows to a hosted endpoint.
package inference

import (
	"context"
	"time"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/pkg/log"
	"github.com/YuminosukeSato/loanboost/platform"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
)

// ContentType is the only payload format sent to endpoints.
const ContentType = "text/csv"

// Client invokes endpoints through the SageMaker runtime API.
type Client struct {
	runtime platform.RuntimeAPI
	logger  log.Logger
}

// NewClient wraps a runtime client. Build it with platform.NewClients so
// that invocations are not retried.
func NewClient(runtime platform.RuntimeAPI) *Client {
	return &Client{
		runtime: runtime,
		logger:  log.GetLoggerWithName("inference"),
	}
}

// Invoke sends payload to the endpoint exactly once and returns the
// response body as received.
func (c *Client) Invoke(ctx context.Context, endpointName string, payload []byte) ([]byte, error) {
	start := time.Now()
	out, err := c.runtime.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(endpointName),
		ContentType:  aws.String(ContentType),
		Body:         payload,
	})
	if err != nil {
		return nil, errors.NewRemoteError("InvokeEndpoint", endpointName, err)
	}

	c.logger.Debug("Endpoint invoked",
		log.OperationKey, log.OperationInvoke,
		log.PhaseKey, log.PhaseInference,
		log.EndpointNameKey, endpointName,
		"request.bytes", len(payload),
		"response.bytes", len(out.Body),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out.Body, nil
}
