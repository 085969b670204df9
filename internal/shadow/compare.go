// Package shadow replays read-only API requests against two deployments and diffs the responses.
// It is used to verify a store migration (Mongo to Postgres or back) before switching traffic.
package shadow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

// Target is one request to replay.
type Target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

// Result is the outcome of replaying one target.
type Result struct {
	Target            Target
	PrimaryStatus     int
	CandidateStatus   int
	StatusMatch       bool
	BodyMatch         bool
	Err               error
	PrimaryDuration   time.Duration
	CandidateDuration time.Duration
}

// Diff reports whether the candidate disagreed with the primary.
func (r Result) Diff() bool {
	return r.Err != nil || !r.StatusMatch || !r.BodyMatch
}

// DefaultTargets covers the read-only assignment endpoints.
var DefaultTargets = []Target{
	{Method: http.MethodGet, Path: "/health"},
	{Method: http.MethodGet, Path: "/api/assignments", Critical: true},
}

// LoadTargets reads a {"targets": [...]} file.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg struct {
		Targets []Target `json:"targets"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

// Comparer replays targets against a primary and a candidate deployment.
type Comparer struct {
	Client    *http.Client
	Primary   string
	Candidate string
	Token     string
}

// Run replays every target and returns the results plus the number of critical diffs.
func (c *Comparer) Run(ctx context.Context, targets []Target) ([]Result, int) {
	results := make([]Result, 0, len(targets))
	breaking := 0
	for _, t := range targets {
		res := c.compare(ctx, t)
		if res.Diff() && t.Critical {
			breaking++
		}
		results = append(results, res)
	}
	return results, breaking
}

func (c *Comparer) compare(ctx context.Context, tgt Target) Result {
	res := Result{Target: tgt}
	primaryBody, primaryStatus, primaryDur, err := c.fetch(ctx, c.Primary, tgt)
	if err != nil {
		res.Err = fmt.Errorf("primary request failed: %w", err)
		return res
	}
	candidateBody, candidateStatus, candidateDur, err := c.fetch(ctx, c.Candidate, tgt)
	if err != nil {
		res.Err = fmt.Errorf("candidate request failed: %w", err)
		return res
	}
	res.PrimaryStatus, res.CandidateStatus = primaryStatus, candidateStatus
	res.PrimaryDuration, res.CandidateDuration = primaryDur, candidateDur
	res.StatusMatch = primaryStatus == candidateStatus
	res.BodyMatch = bodiesEqual(primaryBody, candidateBody)
	return res
}

func (c *Comparer) fetch(ctx context.Context, base string, tgt Target) ([]byte, int, time.Duration, error) {
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, time.Since(start), nil
}

// ids and timestamps differ between stores
var volatileKeys = map[string]struct{}{
	"id":           {},
	"submissionId": {},
	"createdAt":    {},
	"updatedAt":    {},
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}
	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	return reflect.DeepEqual(normalize(aj), normalize(bj))
}

func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if _, skip := volatileKeys[k]; skip {
				continue
			}
			out[k] = normalize(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = normalize(inner)
		}
		return out
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
	}
	return v
}

// WriteReport prints a human readable summary.
func WriteReport(w io.Writer, results []Result) {
	fmt.Fprintln(w, "Shadow Compare Report")
	fmt.Fprintln(w, "======================")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if res.Diff() {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		if res.Err != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Err)
			continue
		}
		fmt.Fprintf(w, "  Primary: %d (%s) | Candidate: %d (%s)\n", res.PrimaryStatus, res.PrimaryDuration, res.CandidateStatus, res.CandidateDuration)
		fmt.Fprintf(w, "  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
	}
}
