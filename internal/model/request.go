package model

// GenerateRequest 自然语言生成图表请求
type GenerateRequest struct {
	Prompt     string `json:"prompt"`
	AccessCode string `json:"accessCode"`
}

// RenderRequest 直接渲染 PlantUML 源码请求，diagramSource 为 plantuml_code 的别名
type RenderRequest struct {
	PlantUMLCode  string `json:"plantuml_code"`
	DiagramSource string `json:"diagramSource"`
}

func (r RenderRequest) Source() string {
	if r.PlantUMLCode != "" {
		return r.PlantUMLCode
	}
	return r.DiagramSource
}
