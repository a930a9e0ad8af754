package blaster

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kvblast/internal/stats"
)

type setPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Blaster drives the fixed SET->GET->DELETE workload against a
// key-value HTTP endpoint. Workers share only the timing pool.
type Blaster struct {
	Cfg    Config
	Client *http.Client
	Pool   *stats.Pool

	out    io.Writer
	logger *zap.Logger
}

func New(cfg Config, pool *stats.Pool, out io.Writer, logger *zap.Logger) *Blaster {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Blaster{
		Cfg: cfg,
		Client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: t,
		},
		Pool:   pool,
		out:    out,
		logger: logger,
	}
}

// Set issues a create/update for key. Any status code is data, not an
// error; only a transport failure returns one.
func (b *Blaster) Set(ctx context.Context, key, value string) error {
	body, err := json.Marshal(setPayload{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("marshal set payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build set request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return b.do("SET", key, req)
}

func (b *Blaster) Get(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.Cfg.BaseURL+"/"+key, nil)
	if err != nil {
		return fmt.Errorf("build get request: %w", err)
	}

	return b.do("GET", key, req)
}

func (b *Blaster) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.Cfg.BaseURL+"/"+key, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	return b.do("DELETE", key, req)
}

// do times one call from request send to response fully received and
// records the sample. A transport failure records nothing.
func (b *Blaster) do(verb, key string, req *http.Request) error {
	start := time.Now()
	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", verb, key, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	b.Pool.Record(time.Since(start))

	fmt.Fprintf(b.out, "%s %s: %d\n", verb, key, resp.StatusCode)
	return nil
}

// worker runs the strictly sequential per-iteration loop for one id.
// A transport failure abandons the remaining iterations of this id only.
func (b *Blaster) worker(ctx context.Context, id int) error {
	for i := 0; i < b.Cfg.Iterations; i++ {
		key := fmt.Sprintf("key-%d-%d", id, i)
		value := fmt.Sprintf("value-%d-%d", id, i)

		if err := b.Set(ctx, key, value); err != nil {
			return fmt.Errorf("worker %d aborted at iteration %d: %w", id, i, err)
		}
		if err := b.Get(ctx, key); err != nil {
			return fmt.Errorf("worker %d aborted at iteration %d: %w", id, i, err)
		}
		if err := b.Delete(ctx, key); err != nil {
			return fmt.Errorf("worker %d aborted at iteration %d: %w", id, i, err)
		}
	}
	return nil
}

// Run fans out the workers, waits for every one of them, and returns
// the summary. The returned error is the first worker abort, if any;
// an abort never cancels sibling workers.
func (b *Blaster) Run(ctx context.Context) (stats.Summary, error) {
	var g errgroup.Group
	start := time.Now()

	for id := 0; id < b.Cfg.Workers; id++ {
		id := id
		g.Go(func() error {
			if err := b.worker(ctx, id); err != nil {
				b.logger.Error("worker aborted", zap.Int("worker", id), zap.Error(err))
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	elapsed := time.Since(start)

	return stats.Summarize(b.Pool, b.Cfg.Workers, b.Cfg.Iterations, elapsed), err
}
