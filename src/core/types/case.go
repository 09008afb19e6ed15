package types

// Confidence 翻译可信度枚举
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IsValid 判断可信度取值是否合法
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// RequestConfig 单次请求的可选配置，仅由提示词构建使用
type RequestConfig struct {
	AuthorMapping string `json:"author_mapping"` // 会话角色到显示名的映射说明，可为空
	SingleAuthor  bool   `json:"single_author"`  // 为true时摘要聚焦单一作者
}

// Translation 单张截图的翻译条目，只由模型结构化输出解码产生
type Translation struct {
	Index          int        `json:"index"`           // 截图序号
	Author         string     `json:"author"`          // 消息作者
	VietnameseText string     `json:"vietnamese_text"` // 截图中提取的越南语原文
	EnglishText    string     `json:"english_text"`    // 对应的英语译文
	Confidence     Confidence `json:"confidence"`      // 翻译可信度 high/medium/low
}

// CaseAnalysis 模型生成的结构化分析结果
type CaseAnalysis struct {
	Translations []Translation `json:"translations"` // 按截图顺序的翻译列表
	Summary      string        `json:"summary"`      // 英文整体摘要
	KeyPoints    string        `json:"key_points"`   // markdown格式的要点
}
