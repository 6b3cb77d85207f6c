package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"marketplace-chatbot-server/internal/repository"
	"marketplace-chatbot-server/internal/service"
)

var pruneDays int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "删除超过保留期的聊天记录",
	Long: `删除超过保留期的聊天记录。

默认使用配置中的 chatbot.retention_days，保留期为 0 时不删除任何记录。
建议通过 cron 每天执行一次。`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().IntVar(&pruneDays, "days", -1, "保留天数，覆盖配置文件")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	days := cfg.Chatbot.RetentionDays
	if pruneDays >= 0 {
		days = pruneDays
	}
	if days <= 0 {
		fmt.Println("Retention disabled, nothing to prune")
		return nil
	}

	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	history := service.NewHistoryService(repository.NewConversationRepository(db))
	deleted := history.PruneOlderThan(cmd.Context(), days)
	fmt.Printf("Pruned %d conversations older than %d days\n", deleted, days)
	return nil
}
