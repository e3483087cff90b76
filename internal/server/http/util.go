package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/leshachaplin/sitetrack/internal/analytics"
	"github.com/leshachaplin/sitetrack/internal/apierror"
)

const maxBodyBytes = 64 << 10

func encodeJSONResponse[T any](w http.ResponseWriter, code int, data T) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if code == http.StatusNoContent {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

func decodeJSONRequest[T any](r *http.Request) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&out); err != nil {
		return out, apierror.NewAPIError(fmt.Sprintf("malformed request body: %v", err), http.StatusBadRequest)
	}
	return out, nil
}

func parseEnum[T interface {
	~string
	Valid() bool
}](field, raw string) (T, error) {
	v, err := analytics.ParseEnum[T](raw)
	if err != nil {
		apiErr := apierror.NewAPIError(fmt.Sprintf("invalid %s", field), http.StatusBadRequest)
		apiErr.Details = map[string]interface{}{field: raw}
		return v, apiErr
	}
	return v, nil
}

func getClientIP(req *http.Request) string {
	out, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		if xoff := req.Header.Get("X-Original-Forwarded-For"); xoff != "" {
			out = xoff
		} else {
			xff := strings.Split(req.Header.Get("X-Forwarded-For"), ",")
			if len(xff) == 0 {
				return ""
			}

			if xff[0] != req.Header.Get("X-Envoy-External-Address") {
				out = strings.TrimSpace(xff[0])
			}
		}
	}

	if ip := net.ParseIP(out); out != "" && ip != nil {
		if ip.IsLoopback() {
			return "127.0.0.1"
		}

		return out
	}

	return "0.0.0.0"
}
