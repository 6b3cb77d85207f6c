package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"marketplace-chatbot-server/internal/config"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "chatbot-server",
	Short: "商城 AI 聊天助手服务端",
	Long: `商城 AI 聊天助手服务端

为买家和卖家提供基于角色的 AI 对话接口，对话上下文来自宿主商城的 REST API。

不带子命令运行时等同于 serve。`,
	RunE: runServe,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "./configs", "配置文件目录")
}

// loadConfig 按 --config 指定的目录加载配置
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
