package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/klwxsrx/storefront-console/pkg/log"
	"github.com/klwxsrx/storefront-console/pkg/metric"
	"github.com/klwxsrx/storefront-console/pkg/observability"
)

const DefaultRequestIDHeader = "X-Request-ID"

type (
	ClientOption func(*ClientImpl)

	Client interface {
		NewRequest(ctx context.Context) *resty.Request
		With(opts ...ClientOption) Client
	}

	ClientImpl struct {
		DestinationName string
		RESTClient      *resty.Client
		trippers        Chain
		opts            []ClientOption
	}
)

func NewClient(opts ...ClientOption) Client {
	client := &ClientImpl{
		DestinationName: "",
		RESTClient:      resty.New(),
		trippers:        NewChain(),
		opts:            opts,
	}

	for _, opt := range opts {
		opt(client)
	}

	client.RESTClient.SetTransport(client.trippers.Then(nil))
	return client
}

func (c *ClientImpl) NewRequest(ctx context.Context) *resty.Request {
	return c.RESTClient.R().SetContext(ctx)
}

func (c *ClientImpl) With(opts ...ClientOption) Client {
	mergedOpts := make([]ClientOption, 0, len(c.opts)+len(opts))
	mergedOpts = append(mergedOpts, c.opts...)
	mergedOpts = append(mergedOpts, opts...)
	return NewClient(mergedOpts...)
}

func WithClientDestination(name, url string) ClientOption {
	return func(c *ClientImpl) {
		c.DestinationName = name
		c.RESTClient.SetBaseURL(url)
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientImpl) {
		if timeout > 0 {
			c.RESTClient.SetTimeout(timeout)
		}
	}
}

// WithTrippers appends round tripper constructors; the first one added sees the request first.
func WithTrippers(constructors ...Constructor) ClientOption {
	return func(c *ClientImpl) {
		c.trippers = c.trippers.Append(constructors...)
	}
}

func WithRequestObservability(observer observability.Observer, requestIDHeaderName string) ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			ctx, id := observability.EnsureRequestID(req.Context(), observer)
			req.SetContext(ctx)
			req.SetHeader(requestIDHeaderName, id)
			return nil
		})
	}
}

func WithRequestLogging(logger log.Logger, infoLevel, errorLevel log.Level) ClientOption {
	const destinationNameLogField = "destinationName"
	return func(c *ClientImpl) {
		c.RESTClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			respLogger := getRequestResponseFieldsLogger(resp.Request.RawRequest, resp.StatusCode(), logger)
			respLogger = respLogger.With(wrapFieldsWithRequestLogEntry(log.Fields{
				destinationNameLogField: getDestinationNameForLogging(c),
			}))

			if resp.StatusCode() >= http.StatusInternalServerError {
				respLogger.Log(resp.Request.Context(), errorLevel, "http call completed with internal error")
			} else {
				respLogger.Log(resp.Request.Context(), infoLevel, "http call completed")
			}

			return nil
		})

		c.RESTClient.OnError(func(req *resty.Request, err error) {
			errLogger := logger
			if req.RawRequest != nil {
				errLogger = getRequestFieldsLogger(req.RawRequest, errLogger)
			}
			errLogger = errLogger.With(wrapFieldsWithRequestLogEntry(log.Fields{
				destinationNameLogField: getDestinationNameForLogging(c),
			}))

			errLogger.
				WithError(err).
				Log(req.Context(), errorLevel, "http call completed with error")
		})
	}
}

func WithRequestMetrics(metrics metric.Metrics) ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			destinationName := c.DestinationName
			if destinationName == "" {
				destinationName = "none"
			}

			path := ""
			if resp.Request.RawRequest != nil {
				path = resp.Request.RawRequest.URL.Path
			}

			metrics.With(metric.Labels{
				"destination": destinationName,
				"method":      resp.Request.Method,
				"path":        path,
				"code":        fmt.Sprintf("%d", resp.StatusCode()),
			}).Duration("http_client_request_duration_seconds", resp.Time())
			return nil
		})
	}
}

type ClientFactory struct {
	baseOpts []ClientOption
}

func NewClientFactory(opts ...ClientOption) ClientFactory {
	return ClientFactory{
		baseOpts: opts,
	}
}

func (f ClientFactory) InitClient(destinationName, baseURL string, extraOpts ...ClientOption) Client {
	opts := make([]ClientOption, 0, len(extraOpts)+1)
	opts = append(opts, WithClientDestination(destinationName, baseURL))
	opts = append(opts, extraOpts...)

	return f.httpClient(opts...)
}

func (f ClientFactory) httpClient(extraOpts ...ClientOption) Client {
	opts := make([]ClientOption, 0, len(f.baseOpts)+len(extraOpts))
	opts = append(opts, f.baseOpts...)
	opts = append(opts, extraOpts...)

	return NewClient(opts...)
}

func getDestinationNameForLogging(c *ClientImpl) string {
	if c.DestinationName != "" {
		return c.DestinationName
	}
	return "-"
}
