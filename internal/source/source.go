// Package source fetches the raw input files of a dataset from an HTTP base
// URL or a local directory.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/covid-trends-service/internal/config"
	"github.com/couchcryptid/covid-trends-service/internal/dataset"
	"github.com/couchcryptid/covid-trends-service/internal/domain"
	"github.com/couchcryptid/covid-trends-service/internal/observability"
	"golang.org/x/sync/errgroup"
)

// maxFileSize bounds a single downloaded file.
const maxFileSize = 256 << 20

// Payload is the content of one complete set of input files.
type Payload struct {
	Format  string
	Regions []byte
	Cases   []byte
	Matrix  []dataset.MatrixFile
}

// Fetcher reads input files named in the configuration. Remote fetches are
// retried with exponential backoff; local reads are not.
type Fetcher struct {
	base       string
	remote     bool
	format     string
	regions    string
	cases      string
	matrix     map[domain.CaseType]string
	httpClient *http.Client
	maxRetries uint64
	initial    time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewFetcher creates a fetcher for the configured data source.
func NewFetcher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Fetcher {
	matrix := map[domain.CaseType]string{domain.Confirmed: cfg.MatrixFile}
	if cfg.MatrixDeathsFile != "" {
		matrix[domain.Deaths] = cfg.MatrixDeathsFile
	}
	if cfg.MatrixRecoveredFile != "" {
		matrix[domain.Recovered] = cfg.MatrixRecoveredFile
	}

	return &Fetcher{
		base:    cfg.DataSource,
		remote:  strings.HasPrefix(cfg.DataSource, "http://") || strings.HasPrefix(cfg.DataSource, "https://"),
		format:  cfg.DataFormat,
		regions: cfg.RegionsFile,
		cases:   cfg.CasesFile,
		matrix:  matrix,
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		maxRetries: uint64(cfg.FetchMaxRetries),
		initial:    500 * time.Millisecond,
		metrics:    metrics,
		logger:     logger,
	}
}

// Fetch reads every file of the configured format concurrently. The first
// failure cancels the remaining reads.
func (f *Fetcher) Fetch(ctx context.Context) (Payload, error) {
	p := Payload{Format: f.format}
	eg, egCtx := errgroup.WithContext(ctx)

	switch f.format {
	case config.FormatMatrix:
		p.Matrix = make([]dataset.MatrixFile, 0, len(f.matrix))
		results := make([][]byte, domain.NumCaseTypes)
		for ct, name := range f.matrix {
			eg.Go(func() error {
				data, err := f.fetchFile(egCtx, name)
				if err != nil {
					return err
				}
				results[ct] = data
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return Payload{}, err
		}
		for _, ct := range domain.CaseTypes {
			if results[ct] != nil {
				p.Matrix = append(p.Matrix, dataset.MatrixFile{CaseType: ct, Data: results[ct]})
			}
		}

	default:
		eg.Go(func() error {
			var err error
			p.Regions, err = f.fetchFile(egCtx, f.regions)
			return err
		})
		eg.Go(func() error {
			var err error
			p.Cases, err = f.fetchFile(egCtx, f.cases)
			return err
		})
		if err := eg.Wait(); err != nil {
			return Payload{}, err
		}
	}

	return p, nil
}

func (f *Fetcher) fetchFile(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	var err error
	if f.remote {
		data, err = f.download(ctx, name)
	} else {
		data, err = os.ReadFile(filepath.Join(f.base, name))
		if err != nil {
			err = fmt.Errorf("read %s: %w", name, err)
		}
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	f.metrics.FetchAttempts.WithLabelValues(name, outcome).Inc()
	return data, err
}

func (f *Fetcher) download(ctx context.Context, name string) ([]byte, error) {
	u, err := url.JoinPath(f.base, name)
	if err != nil {
		return nil, fmt.Errorf("build url for %s: %w", name, err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.initial
	b.MaxInterval = 10 * f.initial

	var data []byte
	err = backoff.RetryNotify(
		func() error {
			var getErr error
			data, getErr = f.get(ctx, u)
			return getErr
		},
		backoff.WithContext(backoff.WithMaxRetries(b, f.maxRetries), ctx),
		func(err error, wait time.Duration) {
			f.logger.Warn("fetch failed, retrying", "file", name, "error", err, "wait", wait)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return data, nil
}

// get performs one request. Client errors other than 429 are permanent.
func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxFileSize {
		return nil, backoff.Permanent(fmt.Errorf("file exceeds %d bytes", maxFileSize))
	}
	return data, nil
}
