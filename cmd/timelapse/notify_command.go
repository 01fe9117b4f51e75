package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"timelapse/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the configured backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" && strings.TrimSpace(cfg.Notifications.RedisAddr) == "" {
				fmt.Fprintln(out, "No notification backends configured (set notifications.ntfy_topic or notifications.redis_addr)")
				return nil
			}

			svc := notifications.NewService(cfg)
			defer svc.Close()
			if err := svc.TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	}
}
