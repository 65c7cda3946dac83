package utils

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"umlgen-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

var (
	sensitiveHeaders = []string{"Authorization", "X-Api-Key", "X-Auth-Token", "Cookie", "Api-Key"}
	sensitiveFields  = regexp.MustCompile(`(?i)("(?:api_key|apikey|password|secret|token|access_code|accesscode)"\s*:\s*)"[^"]*"`)
)

// DebugTransport 在 debug 级别输出出站请求，用于排查模型调用问题
type DebugTransport struct {
	base http.RoundTripper
}

func NewDebugTransport(base http.RoundTripper) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		logger.Warnf("upstream request to %s failed: %v", req.URL.Host, err)
		return nil, err
	}
	logger.Debugf("upstream %s %s -> %d", req.Method, req.URL.Path, resp.StatusCode)
	return resp, nil
}

func (t *DebugTransport) logRequest(req *http.Request) {
	fields := logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	}
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			fields["header."+name] = "[REDACTED]"
			continue
		}
		fields["header."+name] = strings.Join(values, ", ")
	}

	if req.Body != nil && req.Body != http.NoBody {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			logger.Errorf("failed to read upstream request body: %v", err)
			return
		}
		// 还原请求体，避免影响实际发送
		req.Body = io.NopCloser(bytes.NewReader(body))
		fields["body_size"] = len(body)
		fields["body"] = RedactJSON(string(body))
	}

	logger.WithFields(fields).Debug("upstream request")
}

// RedactJSON 隐藏 JSON 中敏感字段的取值
func RedactJSON(s string) string {
	return sensitiveFields.ReplaceAllString(s, `$1"[REDACTED]"`)
}

func isSensitiveHeader(name string) bool {
	for _, h := range sensitiveHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}
