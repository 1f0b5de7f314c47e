package config

import (
	"github.com/blues/qfs/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Bank       BankConfig       `mapstructure:"bank"`
	Governance GovernanceConfig `mapstructure:"governance"`
	Task       TaskConfig       `mapstructure:"task"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 链上转账配置
type ChainConfig struct {
	RpcUrl        string `mapstructure:"rpc_url"`       // RPC节点URL
	ChainId       int64  `mapstructure:"chain_id"`      // 链ID
	PrivateKey    string `mapstructure:"private_key"`   // 平台出款私钥
	Confirmations uint64 `mapstructure:"confirmations"` // 确认区块数
}

// BankConfig 银行转账网关配置
type BankConfig struct {
	BaseUrl string `mapstructure:"base_url"` // 网关地址
	ApiKey  string `mapstructure:"api_key"`  // 访问密钥
	Timeout int    `mapstructure:"timeout"`  // 单次调用超时（秒）
}

// GovernanceConfig 提案治理配置
type GovernanceConfig struct {
	AiApproveThreshold  int     `mapstructure:"ai_approve_threshold"`  // AI评分自动通过阈值
	AiReviewThreshold   int     `mapstructure:"ai_review_threshold"`   // AI评分人工复核下限，低于此值直接拒绝
	ApproveRatio        float64 `mapstructure:"approve_ratio"`         // 赞成比例阈值
	MinParticipation    int64   `mapstructure:"min_participation"`     // 最低参与票数
	VotingPeriodHours   int     `mapstructure:"voting_period_hours"`   // 投票窗口（小时）
	TransferTimeout     int     `mapstructure:"transfer_timeout"`      // 外部转账调用超时（秒）
	TransferMaxAttempts int     `mapstructure:"transfer_max_attempts"` // 转账重试预算
	DispatchPoolSize    int     `mapstructure:"dispatch_pool_size"`    // 转账派发协程池大小
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/qfs")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "qfs")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("chain.confirmations", 12)
	viper.SetDefault("bank.timeout", 15)
	viper.SetDefault("governance.ai_approve_threshold", 70)
	viper.SetDefault("governance.ai_review_threshold", 50)
	viper.SetDefault("governance.approve_ratio", 0.51)
	viper.SetDefault("governance.min_participation", 5)
	viper.SetDefault("governance.voting_period_hours", 72)
	viper.SetDefault("governance.transfer_timeout", 30)
	viper.SetDefault("governance.transfer_max_attempts", 3)
	viper.SetDefault("governance.dispatch_pool_size", 16)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
