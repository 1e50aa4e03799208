package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// replayable returns a shallow copy of r whose body can be read any number
// of times through GetBody.
func replayable(r *http.Request) (*http.Request, error) {
	ret := r.Clone(r.Context())
	if r.Body == nil || r.Body == http.NoBody {
		ret.Body = http.NoBody
		ret.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return ret, nil
	}
	if r.GetBody != nil {
		_ = r.Body.Close()
		return ret, nil
	}
	buf, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	ret.Body = io.NopCloser(bytes.NewReader(buf))
	ret.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	ret.ContentLength = int64(len(buf))
	return ret, nil
}

// outgoing clones r with a fresh body and the given bearer credential.
func outgoing(r *http.Request, accessToken string) (*http.Request, error) {
	ret := r.Clone(r.Context())
	if r.GetBody != nil {
		body, err := r.GetBody()
		if err != nil {
			return nil, err
		}
		ret.Body = body
	}
	ret.Header.Del("Authorization")
	if accessToken != "" {
		ret.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return ret, nil
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// ErrorDetail extracts the backend message ({"detail": ...} or
// {"message": ...}) and closes the body.
func ErrorDetail(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	defer discard(resp)
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return ""
	}
	return ParseDetail(data)
}

// ParseDetail returns the backend message of an error body.
func ParseDetail(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var payload struct {
		Detail  interface{} `json:"detail"`
		Message string      `json:"message"`
	}
	if json.Unmarshal(data, &payload) != nil {
		return strings.TrimSpace(string(data))
	}
	if detail, ok := payload.Detail.(string); ok && detail != "" {
		return detail
	}
	return payload.Message
}
