package cmd

import (
	"fmt"
	"solveit_backend/internal/config"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "solveit",
	Short: "SolveIT 客服平台后端",
	Long: `SolveIT 后端服务：公司登记服务与知识文档，用户以文字或语音提问，
检索增强的模型能答复时直接返回答案，否则转入公司的人工审核队列。`,
	SilenceUsage: true,
	// 不带子命令时直接启动服务
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "configs", "directory containing config.yaml")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
