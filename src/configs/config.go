package configs

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config 主配置结构
type Config struct {
	Server struct {
		IP   string `yaml:"ip"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Log struct {
		LogFormat string `yaml:"log_format"`
		LogLevel  string `yaml:"log_level"`
		LogDir    string `yaml:"log_dir"`
		LogFile   string `yaml:"log_file"`
	} `yaml:"log"`

	LLM     LLMConfig     `yaml:"LLM"`
	Storage StorageConfig `yaml:"storage"`
	Image   ImageConfig   `yaml:"image"`
}

// LLMConfig 视觉语言模型配置结构
type LLMConfig struct {
	ModelName   string  `yaml:"model_name"`  // 模型名称，必须支持视觉输入与结构化输出
	BaseURL     string  `yaml:"url"`         // API地址，留空使用官方地址
	APIKey      string  `yaml:"api_key"`     // API密钥，优先从环境变量读取
	Temperature float64 `yaml:"temperature"` // 温度参数
	MaxTokens   int     `yaml:"max_tokens"`  // 最大令牌数
}

// StorageConfig 对象存储配置结构
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`   // S3兼容存储地址，如 sgp1.digitaloceanspaces.com
	Region    string `yaml:"region"`     // 区域
	Bucket    string `yaml:"bucket"`     // 存储桶名称
	AccessKey string `yaml:"access_key"` // 访问密钥，优先从环境变量读取
	SecretKey string `yaml:"secret_key"` // 私密密钥，优先从环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`    // 是否使用HTTPS
}

// ImageConfig 图片处理配置结构
type ImageConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`    // 最大文件大小（字节）
	AllowedFormats []string `yaml:"allowed_formats"`  // 允许的图片格式
	EnableDeepScan bool     `yaml:"enable_deep_scan"` // 启用解码级深度校验
}

// LoadConfig 从文件加载配置，密钥类字段允许环境变量覆盖
func LoadConfig() (*Config, string, error) {
	path := ".config.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, path, err
	}

	// 密钥不建议写进配置文件，环境变量优先
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if key := os.Getenv("STORAGE_ACCESS_KEY"); key != "" {
		config.Storage.AccessKey = key
	}
	if key := os.Getenv("STORAGE_SECRET_KEY"); key != "" {
		config.Storage.SecretKey = key
	}

	applyDefaults(config)
	return config, path, nil
}

// applyDefaults 填充缺省值
func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Log.LogDir == "" {
		config.Log.LogDir = "logs"
	}
	if config.Log.LogFile == "" {
		config.Log.LogFile = "server.log"
	}
	if config.LLM.ModelName == "" {
		// 与线上版本保持一致的默认模型
		config.LLM.ModelName = "gpt-4o-2024-08-06"
	}
	if config.Image.MaxFileSize == 0 {
		config.Image.MaxFileSize = 10 * 1024 * 1024
	}
	if len(config.Image.AllowedFormats) == 0 {
		config.Image.AllowedFormats = []string{"png", "jpeg", "gif", "webp"}
	}
}
