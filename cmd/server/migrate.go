package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "创建或更新数据库表",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := initDatabase(cfg)
		if err != nil {
			return err
		}
		return autoMigrate(db)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
