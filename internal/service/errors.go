package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"umlgen-backend/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// 错误类型，通过 errors.Is 判断
var (
	ErrMissingInput          = errors.New("missing input")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrUpstreamRateLimited   = errors.New("upstream rate limited")
	ErrUpstreamInvalidOutput = errors.New("upstream invalid output")
	ErrUpstreamAuthFailure   = errors.New("upstream auth failure")
	ErrServerMisconfigured   = errors.New("server misconfigured")
	ErrUpstreamTransport     = errors.New("upstream transport")
	ErrUpstreamTimeout       = errors.New("upstream timeout")
)

// Error 携带错误类型、面向调用方的提示以及内部原因
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

var statusByKind = []struct {
	kind   error
	status int
	name   string
}{
	{ErrMissingInput, http.StatusBadRequest, "missing_input"},
	{ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{ErrUpstreamRateLimited, http.StatusTooManyRequests, "upstream_rate_limited"},
	{ErrUpstreamTimeout, http.StatusInternalServerError, "upstream_timeout"},
	{ErrUpstreamInvalidOutput, http.StatusInternalServerError, "upstream_invalid_output"},
	{ErrUpstreamAuthFailure, http.StatusInternalServerError, "upstream_auth_failure"},
	{ErrServerMisconfigured, http.StatusInternalServerError, "server_misconfigured"},
	{ErrUpstreamTransport, http.StatusInternalServerError, "upstream_transport"},
}

// StatusCode 将错误映射为 HTTP 状态码，未知错误为 500
func StatusCode(err error) int {
	for _, k := range statusByKind {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// KindName 返回错误类型名，用于日志和指标
func KindName(err error) string {
	if err == nil {
		return "success"
	}
	for _, k := range statusByKind {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "internal"
}

// PublicMessage 返回可以直接展示给调用方的提示，不包含上游细节
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error."
}

// classifyUpstream 将模型调用失败归类
func classifyUpstream(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newError(ErrUpstreamTimeout, "The model provider did not respond in time. Please try again.", err)
	}
	if errors.Is(err, model.ErrEmptyCompletion) || errors.Is(err, model.ErrRefusal) {
		return newError(ErrUpstreamInvalidOutput, "The model did not return a diagram. Please rephrase your prompt.", err)
	}

	status := upstreamStatus(err)
	switch {
	case status == http.StatusTooManyRequests:
		return newError(ErrUpstreamRateLimited, "The model provider is rate limiting requests. Please try again later.", err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newError(ErrUpstreamAuthFailure, "The model provider rejected the server credentials.", err)
	}
	return newError(ErrUpstreamTransport, "Failed to reach the model provider. Please try again.", err)
}

// upstreamStatus 提取上游 HTTP 状态码；eino 的 ark/qwen 不暴露类型化错误，只能匹配错误文本
func upstreamStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status code: 429"), strings.Contains(msg, "statuscode=429"),
		strings.Contains(msg, "rate limit"), strings.Contains(msg, "ratelimit"):
		return http.StatusTooManyRequests
	case strings.Contains(msg, "status code: 401"), strings.Contains(msg, "statuscode=401"),
		strings.Contains(msg, "invalid api key"), strings.Contains(msg, "incorrect api key"),
		strings.Contains(msg, "unauthorized"):
		return http.StatusUnauthorized
	}
	return 0
}
