package fetch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type leveledSlog struct {
	inner *slog.Logger
}

// re-writes HTTP client ERROR to WARN level (because of retries)
func (l leveledSlog) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

// retries are logged at DEBUG by the client; those are interesting enough for INFO
func (l leveledSlog) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

type HTTPConfig struct {
	// Reject connections to private, loopback and link-local addresses, and to ports other than 80/443
	PublicOnly bool
	// Zero means the default of 3
	RetryMax int
	// Zero means the default of 20 seconds
	Timeout time.Duration
	Logger  *slog.Logger
}

// Generates an HTTP client with retries on connection errors, 5xx status
// (except 501), and 429 backoff (respecting 'Retry-After'). Intermediate
// failures are logged at WARN. Each attempt is traced as an OTEL client span.
func RobustHTTPClient(cfg HTTPConfig) *http.Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("system", "http")
	}

	retryClient := retryablehttp.NewClient()
	var transport http.RoundTripper = retryClient.HTTPClient.Transport
	if cfg.PublicOnly {
		transport = PublicOnlyTransport()
	}
	retryClient.HTTPClient.Transport = otelhttp.NewTransport(transport)
	retryClient.RetryMax = 3
	if cfg.RetryMax > 0 {
		retryClient.RetryMax = cfg.RetryMax
	}
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{logger})
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return client
}
