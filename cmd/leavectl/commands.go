package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"leave-tracker/internal/bootstrap"
	"leave-tracker/internal/service"
	"leave-tracker/pkg/database"
)

type envOpener func() (*env, error)

func newMigrateCmd(open envOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行未应用的数据库迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			return database.RunMigrations(e.sqlDB, e.logger)
		},
	}
}

func newResetCmd(open envOpener) *cobra.Command {
	var (
		seed    bool
		confirm bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "删除全部数据并重建表结构（破坏性操作）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("reset 会删除全部账号与请假记录，确认请加 --yes")
			}

			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			if err := database.ResetSchema(e.sqlDB, e.logger); err != nil {
				return err
			}
			if !seed {
				fmt.Fprintln(cmd.OutOrStdout(), "表结构已重建")
				return nil
			}

			accounts, repo := e.accounts()
			result, err := bootstrap.Seed(cmd.Context(), accounts, repo.Leave, time.Now(), e.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "已写入 %d 条示例请假申请\n", result.Leaves)
			fmt.Fprintf(out, "管理员: %s / %s\n", service.DefaultAdminUsername, service.DefaultAdminPassword)
			for _, s := range result.Students {
				fmt.Fprintf(out, "学生: %s / %s\n", s.Username, bootstrap.SampleStudentPassword)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "重建后写入示例账号与请假申请")
	cmd.Flags().BoolVar(&confirm, "yes", false, "确认执行破坏性操作")
	return cmd
}

func newBootstrapAdminCmd(open envOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "创建唯一的管理员账号（已存在时不做任何修改）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open()
			if err != nil {
				return err
			}
			defer e.close()

			if err := database.RunMigrations(e.sqlDB, e.logger); err != nil {
				return err
			}

			accounts, _ := e.accounts()
			admin, err := accounts.EnsureSingleAdmin(cmd.Context())
			if errors.Is(err, service.ErrAdminExists) {
				fmt.Fprintln(cmd.OutOrStdout(), "管理员账号已存在")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "管理员已创建: %s / %s\n", admin.Username, service.DefaultAdminPassword)
			return nil
		},
	}
}
