package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leave-tracker/config"
	"leave-tracker/internal/repository"
	"leave-tracker/internal/service"
	"leave-tracker/pkg/database"
	applogger "leave-tracker/pkg/logger"
)

// env 子命令共享的运行环境
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
}

func (e *env) close() {
	if e.sqlDB != nil {
		e.sqlDB.Close()
	}
	e.logger.Sync()
}

// accounts 基于当前连接构造账号服务
func (e *env) accounts() (service.AccountService, *repository.Repository) {
	repo := repository.NewRepository(e.db)
	return service.NewAccountService(repo, e.logger), repo
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "leavectl",
		Short:         "请假系统运维命令",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")

	open := func() (*env, error) {
		return openEnv(configPath)
	}

	root.AddCommand(
		newMigrateCmd(open),
		newResetCmd(open),
		newBootstrapAdminCmd(open),
	)
	return root
}

func openEnv(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	return &env{cfg: cfg, logger: logger, db: db, sqlDB: sqlDB}, nil
}
