package config

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv 本地开发从 .env 读环境变量；没有该文件就依赖系统环境
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v (using system environment)", err)
	}
}
