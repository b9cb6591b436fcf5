package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"fieldbridge/pkg/models"
)

// Rest is the REST implementation of Invoker. One instance serves one
// connector definition; the underlying http.Client is safe for concurrent
// executions.
type Rest struct {
	def     models.ConnectorDefinition
	headers http.Header
	client  *http.Client
}

// NewRest builds a Rest connector. Credentials are resolved here so a missing
// environment variable fails at startup, not on the first triggered workflow.
func NewRest(def models.ConnectorDefinition) (Invoker, error) {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	for k, v := range def.Headers {
		headers.Set(k, v)
	}

	switch def.Auth.Kind {
	case models.AuthKindNone, "":
	case models.AuthKindBearer:
		cred, err := resolveCredential(def.Auth)
		if err != nil {
			return nil, err
		}
		headers.Set("Authorization", "Bearer "+cred)
	case models.AuthKindAPIKey:
		cred, err := resolveCredential(def.Auth)
		if err != nil {
			return nil, err
		}
		header := def.Auth.Header
		if header == "" {
			header = "X-API-Key"
		}
		headers.Set(header, cred)
	default:
		return nil, fmt.Errorf("unknown auth kind %q", def.Auth.Kind)
	}

	return &Rest{
		def:     def,
		headers: headers,
		// The per-attempt deadline is applied via request context; the
		// client itself carries no timeout so backoff waits are not counted
		// against it.
		client: &http.Client{},
	}, nil
}

func resolveCredential(auth models.AuthSpec) (string, error) {
	if auth.Credential != "" {
		return auth.Credential, nil
	}
	if auth.CredentialEnv == "" {
		return "", fmt.Errorf("auth kind %q requires credential or credentialEnv", auth.Kind)
	}
	cred := os.Getenv(auth.CredentialEnv)
	if cred == "" {
		return "", fmt.Errorf("credential environment variable %q is not set", auth.CredentialEnv)
	}
	return cred, nil
}

// Invoke posts body to the named endpoint. Transient failures (connection
// errors, per-attempt timeouts, HTTP 5xx) are retried per the connector's
// policy with fixed or exponential backoff; HTTP 4xx is permanent and never
// retried. Attempts are strictly sequential.
func (r *Rest) Invoke(ctx context.Context, endpoint, method string, body map[string]any) (map[string]any, int, error) {
	if method == "" {
		method = http.MethodPost
	}
	path, ok := r.def.Endpoints[endpoint]
	if !ok {
		return nil, 0, &Error{Code: "INVALID_ENDPOINT", Message: fmt.Sprintf("unknown endpoint %q", endpoint)}
	}
	url := strings.TrimRight(r.def.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, &Error{Code: "INVALID_REQUEST", Message: "request body is not serializable", Err: err}
	}

	maxAttempts := r.def.Retry.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr *Error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt, &Error{Code: "CANCELLED", Message: "execution cancelled", Attempts: attempt, Err: err}
		}

		resp, attemptErr := r.attempt(ctx, url, method, payload)
		if attemptErr == nil {
			return resp, attempt + 1, nil
		}
		attemptErr.Attempts = attempt + 1
		if ctx.Err() != nil {
			attemptErr.Code = "CANCELLED"
			attemptErr.Transient = false
		}
		if !attemptErr.Transient {
			return nil, attempt + 1, attemptErr
		}
		lastErr = attemptErr

		if attempt < maxAttempts-1 {
			if err := r.wait(ctx, attempt); err != nil {
				return nil, attempt + 1, &Error{Code: "CANCELLED", Message: "execution cancelled during backoff", Attempts: attempt + 1, Err: err}
			}
		}
	}
	return nil, maxAttempts, lastErr
}

// attempt performs one HTTP request/response cycle under the per-attempt
// timeout.
func (r *Rest) attempt(ctx context.Context, url, method string, payload []byte) (map[string]any, *Error) {
	attemptCtx := ctx
	if r.def.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.def.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Code: "INVALID_REQUEST", Message: err.Error(), Err: err}
	}
	for k, vs := range r.headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, &Error{Code: "TIMEOUT", Message: fmt.Sprintf("request timed out after %s", r.def.Timeout), Transient: true, Err: err}
		}
		return nil, &Error{Code: "CONNECTION_ERROR", Message: err.Error(), Transient: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: "CONNECTION_ERROR", Message: err.Error(), Transient: true, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, &Error{Code: "INVALID_RESPONSE", Message: "response is not a JSON object", Err: err}
		}
		return decoded, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// A 4xx means the request itself is wrong; retrying cannot fix it.
		return nil, &Error{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: truncate(string(raw), 200)}
	default:
		return nil, &Error{Code: "SERVER_ERROR", Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200)), Transient: true}
	}
}

// wait sleeps for the backoff delay of the attempt just failed, or returns
// early if the context is done.
func (r *Rest) wait(ctx context.Context, attempt int) error {
	delay := r.def.Retry.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	if r.def.Retry.Backoff == models.BackoffExponential {
		delay = delay * time.Duration(1<<attempt)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
