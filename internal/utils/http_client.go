package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewHTTPClient 创建模型调用使用的 HTTP 客户端，debug 为 true 时记录请求体（敏感字段脱敏）
func NewHTTPClient(timeout time.Duration, debug bool) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if debug {
		transport = NewDebugTransport(transport)
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
