package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gitlab.com/tozd/go/errors"
)

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	ListenAddr   string
	TemplatesDir string
	AssetsDir    string
	LogLevel     string
	Watch        bool
}

// DefaultEnvFiles 默认加载的环境文件，已存在的环境变量不会被覆盖
var DefaultEnvFiles = []string{".env.local", ".env"}

// LoadEnvFiles 依次加载环境文件，不存在的文件会被忽略
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return errors.Errorf("加载环境文件 %s 失败: %w", file, err)
		}
	}
	return nil
}

// LoadServerConfig 从环境变量读取服务配置
func LoadServerConfig(files ...string) (*ServerConfig, error) {
	if files == nil {
		files = DefaultEnvFiles
	}
	if err := LoadEnvFiles(files...); err != nil {
		return nil, err
	}

	cfg := &ServerConfig{
		ListenAddr:   getEnv("PPTX_LISTEN_ADDR", ":8080"),
		TemplatesDir: getEnv("PPTX_TEMPLATES_DIR", "templates"),
		AssetsDir:    getEnv("PPTX_ASSETS_DIR", "assets"),
		LogLevel:     getEnv("PPTX_LOG_LEVEL", "info"),
	}
	if v := os.Getenv("PPTX_WATCH"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Errorf("PPTX_WATCH 取值无效 %q: %w", v, err)
		}
		cfg.Watch = watch
	}
	return cfg, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
