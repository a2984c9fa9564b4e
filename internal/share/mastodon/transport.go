package mastodon

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

type captureKey struct{}

// capturedCall carries per-request settings into the transport and brings
// the raw body of a failed response back out.
type capturedCall struct {
	idempotencyKey string

	statusCode int
	body       string
}

func withCapture(ctx context.Context, call *capturedCall) context.Context {
	return context.WithValue(ctx, captureKey{}, call)
}

// captureTransport keeps the body of non-2xx responses for requests that
// carry a capturedCall. go-mastodon only keeps the error message.
type captureTransport struct {
	base http.RoundTripper
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	call, ok := req.Context().Value(captureKey{}).(*capturedCall)
	if !ok {
		return t.base.RoundTrip(req)
	}

	if call.idempotencyKey != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Idempotency-Key", call.idempotencyKey)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return resp, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	call.statusCode = resp.StatusCode
	call.body = string(data)
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}
