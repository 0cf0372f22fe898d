package helpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type transportWithLogger struct {
	Transport http.RoundTripper
}

// NewTransportWithLogger wraps transport and logs every outgoing API call.
func NewTransportWithLogger(transport http.RoundTripper) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &transportWithLogger{Transport: transport}
}

func (t *transportWithLogger) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var reqBodyBytes []byte
	if req.Body != nil {
		reqBodyBytes, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBodyBytes))
	}

	event := log.Debug().
		Str("verb", req.Method).
		Str("method", apiMethod(req))
	event = withBody(event, reqBodyBytes)
	event.Msg("API request:")

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		log.Error().Err(err).
			Str("verb", req.Method).
			Str("method", apiMethod(req)).
			Dur("latency", time.Since(start)).
			Msg("API request failed")
		return resp, err
	}

	var respBodyBytes []byte
	if resp.Body != nil {
		respBodyBytes, _ = io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewBuffer(respBodyBytes))
	}

	switch {
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		event = log.Warn()
	case resp.StatusCode >= http.StatusInternalServerError:
		event = log.Error()
	default:
		event = log.Debug()
	}

	event = event.Str("verb", req.Method).
		Str("method", apiMethod(req)).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start))
	event = withBody(event, respBodyBytes)
	event.Msg("API response:")

	return resp, nil
}

func withBody(event *zerolog.Event, body []byte) *zerolog.Event {
	if len(body) == 0 {
		return event
	}
	if json.Valid(body) {
		return event.RawJSON("body", body)
	}
	return event.Bytes("body", body)
}

// apiMethod keeps only the last path segment so bot tokens embedded in the
// path never reach the logs.
func apiMethod(req *http.Request) string {
	return path.Base(req.URL.Path)
}
