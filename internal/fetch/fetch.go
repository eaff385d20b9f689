// Package fetch talks to the upstream open-data server: a HEAD-based update
// check against the remote Last-Modified timestamp and a streaming download
// of the source file.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"fahrzeugdaten/internal/platform/metrics"
	"fahrzeugdaten/internal/tracer"
	"fahrzeugdaten/pkg/platform/circuit"
)

// Status is the outcome of an update check.
type Status string

const (
	StatusUpToDate        Status = "up-to-date"
	StatusUpdateAvailable Status = "update-available"
	StatusStoreMissing    Status = "store-missing"
	StatusTimeout         Status = "timeout"
	StatusError           Status = "error"
)

// ErrNoLastModified is returned when the server omits the Last-Modified
// header, leaving no way to decide whether the local data is current.
var ErrNoLastModified = errors.New("response carries no Last-Modified header")

// ErrUpstreamUnavailable is returned while the circuit breaker is open after
// repeated upstream failures.
var ErrUpstreamUnavailable = errors.New("upstream temporarily unavailable")

// CheckResult carries the outcome of an update check. Err is set only for
// StatusTimeout and StatusError.
type CheckResult struct {
	Status         Status
	RemoteModified time.Time
	Err            error
}

// Client fetches the source file from the configured URL.
type Client struct {
	httpClient      *http.Client
	sourceURL       string
	checkTimeout    time.Duration
	downloadTimeout time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          tracer.Tracer
	breaker         *circuit.Breaker
}

// NewClient creates a fetch client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(httpClient *http.Client, sourceURL string, checkTimeout, downloadTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics, tr tracer.Tracer) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tr == nil {
		tr = tracer.NewNoop()
	}
	return &Client{
		httpClient:      httpClient,
		sourceURL:       sourceURL,
		checkTimeout:    checkTimeout,
		downloadTimeout: downloadTimeout,
		logger:          logger,
		metrics:         m,
		tracer:          tr,
		breaker:         circuit.New("astra-opendata"),
	}
}

// allowed consults the circuit breaker before a call goes out.
func (c *Client) allowed() bool {
	if c.breaker.Allow() {
		return true
	}
	c.logger.Warn("skipping upstream call, circuit open", "breaker", c.breaker.Name())
	return false
}

// observe feeds a call outcome back into the circuit breaker. Timeouts and
// transport errors count against the upstream; a missing header does not.
func (c *Client) observe(err error) {
	if err == nil || errors.Is(err, ErrNoLastModified) {
		if c.breaker.RecordSuccess() {
			c.logger.Info("upstream recovered, circuit closed", "breaker", c.breaker.Name())
		}
		return
	}
	if c.breaker.RecordFailure() {
		c.logger.Warn("upstream failing, circuit opened", "breaker", c.breaker.Name())
	}
}

// Check issues a HEAD request and compares the remote Last-Modified timestamp
// against localModified. A zero localModified means no local data exists yet.
func (c *Client) Check(ctx context.Context, localModified time.Time) CheckResult {
	if !c.allowed() {
		return CheckResult{Status: StatusError, Err: ErrUpstreamUnavailable}
	}

	ctx, span := c.tracer.Start(ctx, tracer.SpanFetchCheck,
		tracer.String(tracer.AttrSourceURL, c.sourceURL))

	result := c.check(ctx, localModified)
	c.observe(result.Err)
	span.SetAttributes(tracer.String("check.status", string(result.Status)))
	span.End(result.Err)

	if c.metrics != nil {
		c.metrics.RefreshChecks.WithLabelValues(string(result.Status)).Inc()
	}
	return result
}

func (c *Client) check(ctx context.Context, localModified time.Time) CheckResult {
	if c.checkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.checkTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.sourceURL, nil)
	if err != nil {
		return CheckResult{Status: StatusError, Err: fmt.Errorf("build check request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return CheckResult{Status: StatusTimeout, Err: fmt.Errorf("update check: %w", err)}
		}
		return CheckResult{Status: StatusError, Err: fmt.Errorf("update check: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CheckResult{Status: StatusError, Err: fmt.Errorf("update check: unexpected status %s", resp.Status)}
	}

	remote, err := http.ParseTime(resp.Header.Get("Last-Modified"))
	if err != nil {
		return CheckResult{Status: StatusError, Err: ErrNoLastModified}
	}

	result := CheckResult{RemoteModified: remote}
	switch {
	case localModified.IsZero():
		result.Status = StatusStoreMissing
	case remote.After(localModified):
		result.Status = StatusUpdateAvailable
	default:
		result.Status = StatusUpToDate
	}

	c.logger.Info("update check completed",
		"status", string(result.Status),
		"remote_modified", remote,
		"local_modified", localModified)
	return result
}

// Download streams the source file to dest, replacing any previous copy.
// The body is written to a temporary file first and renamed into place.
func (c *Client) Download(ctx context.Context, dest string) error {
	if !c.allowed() {
		return ErrUpstreamUnavailable
	}

	ctx, span := c.tracer.Start(ctx, tracer.SpanFetchDownload,
		tracer.String(tracer.AttrSourceURL, c.sourceURL))
	start := time.Now()

	err := c.download(ctx, dest)
	c.observe(err)
	span.End(err)
	if err != nil {
		return err
	}

	if c.metrics != nil {
		c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	c.logger.Info("source file downloaded",
		"dest", dest,
		"duration", time.Since(start).String())
	return nil
}

func (c *Client) download(ctx context.Context, dest string) error {
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download source file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download source file: unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write source file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write source file: %w", err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("replace source file: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
