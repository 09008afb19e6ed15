package analyzer

import (
	"tinhk-server-go/src/core/types"
)

// AnalyzeRequest 案例分析请求结构
type AnalyzeRequest struct {
	CaseTitle         string               `json:"case_title"`         // 案例标题，必填
	ScreenshotURLs    []string             `json:"screenshot_urls"`    // 截图列表，base64/data URI/URL，必填非空
	AdditionalContext string               `json:"additional_context"` // 额外上下文，可选
	Config            *types.RequestConfig `json:"config"`             // 请求级配置，可选
}

// AnalyzeResponse 案例分析成功响应。
// 入库失败时CaseID为null，分析结果照常返回。
type AnalyzeResponse struct {
	CaseID   *uint               `json:"case_id"`
	Title    string              `json:"title"`
	Analysis *types.CaseAnalysis `json:"analysis"`
}

// ErrorResponse 错误响应，detail为面向用户的描述，不暴露内部细节
type ErrorResponse struct {
	Detail string `json:"detail"`
}
