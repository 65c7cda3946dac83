package model

type GenerateResponse struct {
	URL          string `json:"url"`
	PlantUMLCode string `json:"plantuml_code"`
	Explanation  string `json:"explanation"`
}

type RenderResponse struct {
	URL          string `json:"url"`
	PlantUMLCode string `json:"plantuml_code"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// DiagramPayload 是模型结构化输出的固定格式
type DiagramPayload struct {
	PlantUMLCode string `json:"plantuml_code" description:"Complete PlantUML source starting with @startuml and ending with @enduml"`
	Explanation  string `json:"explanation" description:"Short explanation of the diagram"`
}

// DiagramResult 单次请求的结果，URL 始终由源码计算得出
type DiagramResult struct {
	Source      string
	Explanation string
	URL         string
}
