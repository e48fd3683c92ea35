package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// 存储驱动
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
	StoreSQLite = "sqlite"
)

// Config 结构体用于存储应用程序的配置信息
type Config struct {
	ServerAddr          string
	StoreDriver         string
	DBHost              string
	DBPort              string
	DBUser              string
	DBPassword          string
	DBName              string
	SQLitePath          string
	JWTSecret           string
	AdminAddresses      []string
	LogLevel            string
	FrontendURL         string
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	AlertEmail          string
	StorageBackend      string
	LocalStoragePath    string
	S3Region            string
	S3Bucket            string
	GCSBucketName       string
	GCSCredentialsFile  string
	SnapshotInterval    time.Duration
	ExpiryCheckInterval time.Duration
	TransferMaxRetries  int
	Debug               bool // 是否开启调试模式
}

// AppConfig 是全局配置变量
var AppConfig Config

// Init 函数用于初始化配置
func Init() {
	// 加载 .env 文件
	err := godotenv.Load()
	if err != nil {
		log.Printf("警告：无法加载 .env 文件: %v", err)
	}

	AppConfig = Load()

	if err := Validate(AppConfig); err != "" {
		log.Fatal("错误：" + err)
	}

	if AppConfig.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("应用程序运行在调试模式")
	} else {
		gin.SetMode(gin.ReleaseMode)
		log.Println("应用程序运行在生产模式")
	}

	log.Printf("配置加载完成。存储驱动：%s，监听地址：%s", AppConfig.StoreDriver, AppConfig.ServerAddr)
}

// Load 从环境变量中读取配置
func Load() Config {
	return Config{
		ServerAddr:          getEnv("SERVER_ADDR", ":8080"),
		StoreDriver:         strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		DBHost:              getEnv("DB_HOST", ""),
		DBPort:              getEnv("DB_PORT", "3306"),
		DBUser:              getEnv("DB_USER", ""),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBName:              getEnv("DB_NAME", ""),
		SQLitePath:          getEnv("SQLITE_PATH", "./data/ledger.db"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		AdminAddresses:      getEnvAsList("ADMIN_ADDRESSES"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		SMTPHost:            getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:            getEnvAsInt("SMTP_PORT", 465),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		AlertEmail:          getEnv("ALERT_EMAIL", ""),
		StorageBackend:      strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		LocalStoragePath:    getEnv("LOCAL_STORAGE_PATH", "./data"),
		S3Region:            getEnv("S3_REGION", "us-west-2"),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		GCSBucketName:       getEnv("GCS_BUCKET_NAME", ""),
		GCSCredentialsFile:  getEnv("GCS_CREDENTIALS_FILE", ""),
		SnapshotInterval:    getEnvAsDuration("SNAPSHOT_INTERVAL", time.Hour),
		ExpiryCheckInterval: getEnvAsDuration("EXPIRY_CHECK_INTERVAL", time.Minute),
		TransferMaxRetries:  getEnvAsInt("TRANSFER_MAX_RETRIES", 3),
		Debug:               getEnvAsBool("DEBUG", false),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(key, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	return defaultVal
}

// 逗号分隔，忽略空项
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate 返回第一个配置错误，配置完整时返回空串
func Validate(cfg Config) string {
	switch cfg.StoreDriver {
	case StoreMemory:
	case StoreMySQL:
		if cfg.DBHost == "" || cfg.DBPort == "" || cfg.DBUser == "" || cfg.DBPassword == "" || cfg.DBName == "" {
			return "数据库配置不完整"
		}
	case StoreSQLite:
		if cfg.SQLitePath == "" {
			return "SQLite 路径未设置"
		}
	default:
		return "未知的存储驱动: " + cfg.StoreDriver
	}
	if cfg.JWTSecret == "" {
		return "JWT密钥未设置"
	}
	switch cfg.StorageBackend {
	case "local":
	case "s3":
		if cfg.S3Bucket == "" {
			return "S3 存储桶未设置"
		}
	case "gcs":
		if cfg.GCSBucketName == "" || cfg.GCSCredentialsFile == "" {
			return "GCS 配置不完整"
		}
	default:
		return "未知的存储后端: " + cfg.StorageBackend
	}
	if cfg.AlertEmail != "" && (cfg.SMTPHost == "" || cfg.SMTPUsername == "" || cfg.SMTPPassword == "") {
		return "SMTP配置不完整"
	}
	return ""
}
