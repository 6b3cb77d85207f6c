package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"marketplace-chatbot-server/pkg/jwt"
)

var (
	tokenUserID   int64
	tokenUsername string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "签发测试用的访问令牌",
	Long: `使用配置中的 jwt.secret 为指定用户签发访问令牌。

生产环境的令牌由宿主商城签发，该命令用于本地联调。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUserID <= 0 {
			return fmt.Errorf("--user must be a positive user id")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpire)
		token, err := svc.GenerateAccessToken(tokenUserID, tokenUsername)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Println(token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires in %s\n", svc.GetAccessExpire())
		return nil
	},
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user", 0, "用户 ID")
	tokenCmd.Flags().StringVar(&tokenUsername, "name", "", "用户名")
	rootCmd.AddCommand(tokenCmd)
}
