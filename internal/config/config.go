package config

import "github.com/notes-bin/slotbed/internal/model"

type Config struct {
	Port          string               `json:"port"`
	JWTSecret     string               `json:"jwt_secret"`
	MaxUploadSize int64                `json:"max_upload_size"`
	Namespace     string               `json:"namespace"`
	Admin         AdminConfig          `json:"admin"`
	Redis         RedisConfig          `json:"redis"`
	S3            S3Config             `json:"s3"`
	Pages         []model.PageRegistry `json:"pages"`
	RateLimit     struct {
		Requests int `json:"requests"`
		Duration int `json:"duration"`
	} `json:"rate_limit"`
}

// AdminConfig 全局唯一的管理员身份，系统没有更细粒度的权限
type AdminConfig struct {
	ID          string `json:"id"`
	PasswordMD5 string `json:"password_md5"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type S3Config struct {
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl"`
	BucketName      string `json:"bucket_name"`
	Region          string `json:"region"`
	PublicBaseURL   string `json:"public_base_url"` // 为空时按 endpoint 拼接
}
