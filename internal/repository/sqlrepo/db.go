package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"campaign-ledger/internal/util"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// 表结构同时兼容 MySQL 与 SQLite，金额以十进制字符串保存
var schema = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
		id BIGINT NOT NULL PRIMARY KEY,
		owner VARCHAR(42) NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		image TEXT NOT NULL,
		target VARCHAR(78) NOT NULL,
		deadline BIGINT NOT NULL,
		creation_time BIGINT NOT NULL,
		amount_collected VARCHAR(78) NOT NULL,
		amount_refunded VARCHAR(78) NOT NULL,
		funds_withdrawn BOOLEAN NOT NULL DEFAULT FALSE,
		cancelled BOOLEAN NOT NULL DEFAULT FALSE,
		withdrawing BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS donations (
		campaign_id BIGINT NOT NULL,
		idx INT NOT NULL,
		donor VARCHAR(42) NOT NULL,
		amount VARCHAR(78) NOT NULL,
		donated_at BIGINT NOT NULL,
		refunded BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (campaign_id, idx)
	)`,
	`CREATE TABLE IF NOT EXISTS payouts (
		payout_key VARCHAR(128) NOT NULL PRIMARY KEY,
		campaign_id BIGINT NOT NULL,
		operation VARCHAR(16) NOT NULL,
		recipient VARCHAR(42) NOT NULL,
		amount VARCHAR(78) NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}

// MySQLOptions MySQL 连接参数
type MySQLOptions struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// OpenMySQL 连接 MySQL 并确保表结构存在
func OpenMySQL(ctx context.Context, opts MySQLOptions) (*sql.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = opts.User
	cfg.Passwd = opts.Password
	cfg.Net = "tcp"
	cfg.Addr = opts.Host + ":" + opts.Port
	cfg.DBName = opts.DBName
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := prepare(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	util.Logger.Info("数据库连接成功", zap.String("driver", "mysql"), zap.String("addr", cfg.Addr))
	return db, nil
}

// OpenSQLite 打开嵌入式 SQLite 数据库并确保表结构存在
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开 SQLite 失败: %w", err)
	}
	// 单连接，避免写锁竞争
	db.SetMaxOpenConns(1)

	if err := prepare(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	util.Logger.Info("数据库连接成功", zap.String("driver", "sqlite"), zap.String("path", path))
	return db, nil
}

func prepare(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("数据库连接测试失败: %w", err)
	}
	return EnsureSchema(ctx, db)
}

// EnsureSchema 创建缺失的表
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			util.Logger.Error("创建表结构失败", zap.Error(err))
			return fmt.Errorf("创建表结构失败: %w", err)
		}
	}
	return nil
}
