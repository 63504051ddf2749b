package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	ShipGate ShipGateConfig `yaml:"shipgate"`
}

type BackendConfig struct {
	// Mode: "http" — реальный shipping-бэкенд, "fake" — детерминированная заглушка.
	Mode        string `yaml:"mode"`
	BaseURL     string `yaml:"base_url"`
	BearerToken string `yaml:"bearer_token"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	ShipmentUpdatedTopicName string `yaml:"shipment_updated_topic_name"`
	ShipmentViewedTopicName  string `yaml:"shipment_viewed_topic_name"`
}

type ShipGateConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	ShipmentCacheTTLSeconds int `yaml:"shipment_cache_ttl_seconds"`

	ServiceabilityRateLimitPerMinute int `yaml:"serviceability_rate_limit_per_minute"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
