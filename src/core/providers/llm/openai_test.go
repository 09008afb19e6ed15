package llm

import (
	"errors"
	"testing"

	"tinhk-server-go/src/configs"
	"tinhk-server-go/src/core/types"
)

const validOutput = `{
	"translations": [
		{"index": 0, "author": "minh89", "vietnamese_text": "xin chào", "english_text": "hello", "confidence": "high"},
		{"index": 1, "author": "linh_t", "vietnamese_text": "bạn khỏe không", "english_text": "how are you", "confidence": "medium"}
	],
	"summary": "A short greeting exchange.",
	"key_points": "- greeting\n- small talk"
}`

func TestDecodeAnalysis(t *testing.T) {
	t.Run("合法输出", func(t *testing.T) {
		analysis, err := DecodeAnalysis(validOutput)
		if err != nil {
			t.Fatalf("DecodeAnalysis() 意外失败: %v", err)
		}
		if len(analysis.Translations) != 2 {
			t.Fatalf("翻译条数 = %d, want 2", len(analysis.Translations))
		}
		if analysis.Translations[0].Index != 0 || analysis.Translations[1].Index != 1 {
			t.Error("翻译序号未按原样保留")
		}
		if analysis.Translations[1].Confidence != types.ConfidenceMedium {
			t.Errorf("confidence = %q, want medium", analysis.Translations[1].Confidence)
		}
		if analysis.Summary == "" || analysis.KeyPoints == "" {
			t.Error("summary或key_points为空")
		}
	})

	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "不是JSON",
			raw:  "Sure! Here is the analysis you asked for.",
		},
		{
			name: "未知字段不纠偏直接报错",
			raw:  `{"translations": [], "summary": "s", "key_points": "k", "mood": "happy"}`,
		},
		{
			name: "confidence取值非法",
			raw:  `{"translations": [{"index": 0, "author": "a", "vietnamese_text": "v", "english_text": "e", "confidence": "certain"}], "summary": "s", "key_points": "k"}`,
		},
		{
			name: "缺少translations字段",
			raw:  `{"summary": "s", "key_points": "k"}`,
		},
		{
			name: "字段类型错误",
			raw:  `{"translations": "none", "summary": "s", "key_points": "k"}`,
		},
		{
			name: "空字符串",
			raw:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAnalysis(tt.raw)
			if !errors.Is(err, ErrModel) {
				t.Fatalf("DecodeAnalysis() error = %v, want ErrModel", err)
			}
		})
	}
}

func TestDecodeAnalysisEmptyTranslations(t *testing.T) {
	// 空数组是合法的：比如截图全是表情没有文字
	analysis, err := DecodeAnalysis(`{"translations": [], "summary": "s", "key_points": "k"}`)
	if err != nil {
		t.Fatalf("DecodeAnalysis() 意外失败: %v", err)
	}
	if len(analysis.Translations) != 0 {
		t.Errorf("翻译条数 = %d, want 0", len(analysis.Translations))
	}
}

func TestNewProviderRequiresAPIKey(t *testing.T) {
	_, err := NewProvider(&configs.LLMConfig{ModelName: "gpt-4o-2024-08-06"}, nil)
	if err == nil {
		t.Fatal("缺少API key时应报错")
	}
}
