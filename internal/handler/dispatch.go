package handler

import (
	"encoding/json"
)

type Route int

const (
	RouteGenerate Route = iota
	RouteRender
)

func (r Route) String() string {
	if r == RouteRender {
		return "render"
	}
	return "generate"
}

// RouteFor 按请求体字段决定处理方式：有源码字段且没有 prompt 字段时走渲染，否则走生成。
// 无法解析的请求体按空对象处理，即走生成并因缺少 prompt 失败。
func RouteFor(body []byte) Route {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		fields = nil
	}

	_, hasPrompt := fields["prompt"]
	_, hasCode := fields["plantuml_code"]
	_, hasSource := fields["diagramSource"]

	if (hasCode || hasSource) && !hasPrompt {
		return RouteRender
	}
	return RouteGenerate
}
