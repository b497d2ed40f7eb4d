package config

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Redis       Redis         `yaml:"redis"`
	Events      *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Provider    Provider      `yaml:"provider"`
	Queue       Queue         `yaml:"queue"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

type Provider struct {
	VideoBaseURL string `yaml:"video_base_url"`
	PrintBaseURL string `yaml:"print_base_url"`
	APIKey       string `yaml:"api_key"`
}

// Queue holds the per-queue delivery policy: retry attempts, backoff bases and
// how long finished tasks are retained for introspection.
type Queue struct {
	MaxRetry          int `yaml:"max_retry"`
	RenderBackoffSec  int `yaml:"render_backoff_sec"`
	PublishBackoffSec int `yaml:"publish_backoff_sec"`
	RetentionHours    int `yaml:"retention_hours"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.workers", 4)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("queue.max_retry", 3)
	viper.SetDefault("queue.render_backoff_sec", 2)
	viper.SetDefault("queue.publish_backoff_sec", 1)
	viper.SetDefault("queue.retention_hours", 24)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host:         viper.GetString("rabbitmq_host"),
		Port:         viper.GetInt("rabbitmq_port"),
		User:         viper.GetString("rabbitmq_user"),
		Pass:         viper.GetString("rabbitmq_pass"),
		ExchangeName: viper.GetString("rabbitmq_exchange"),
		Kind:         viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Redis: Redis{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Provider: Provider{
			VideoBaseURL: viper.GetString("provider.video_base_url"),
			PrintBaseURL: viper.GetString("provider.print_base_url"),
			APIKey:       viper.GetString("provider.api_key"),
		},
		Queue: Queue{
			MaxRetry:          viper.GetInt("queue.max_retry"),
			RenderBackoffSec:  viper.GetInt("queue.render_backoff_sec"),
			PublishBackoffSec: viper.GetInt("queue.publish_backoff_sec"),
			RetentionHours:    viper.GetInt("queue.retention_hours"),
		},
		DB:      db,
		Events:  rabbitmq,
		Storage: minioClient,
	}, nil
}
