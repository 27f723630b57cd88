package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
	"github.com/amankumarsingh77/slideshow-encoder/internal/server"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/db/aws"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/db/redis"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	goredis "github.com/go-redis/redis/v8"
)

const connectTimeout = 10 * time.Second

func main() {
	log.Println("Starting server")
	configFile := os.Getenv("CONFIG_PATH")
	if configFile == "" {
		configFile = "config.yml"
	}
	cfgFile, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}

	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	if err := cfg.EnsureDirs(); err != nil {
		appLogger.Fatalf("could not create storage directories: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var redisClient *goredis.Client
	if cfg.Registry.Backend == config.RegistryRedis {
		redisClient, err = redis.NewRedisClient(ctx, cfg)
		if err != nil {
			appLogger.Fatalf("could not connect to redis: %s", err)
		}
		defer redisClient.Close()
		appLogger.Infof("redis connected")
	}

	var s3Client *s3.Client
	if cfg.S3.Enabled {
		s3Client, err = aws.NewAWSClient(ctx, cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
		if err != nil {
			appLogger.Fatalf("could not connect to s3: %s", err)
		}
		appLogger.Infof("s3 publishing to bucket %s", cfg.S3.OutputBucket)
	}

	s := server.NewServer(cfg, redisClient, s3Client, appLogger)
	if err = s.Run(); err != nil {
		appLogger.Errorf("server stopped with error: %s", err)
	}
}
