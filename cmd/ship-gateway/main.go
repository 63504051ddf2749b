package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumocart/shipgate/config"
	"github.com/lumocart/shipgate/internal/backend/fakebackend"
	"github.com/lumocart/shipgate/internal/backend/shippinghttp"
	"github.com/lumocart/shipgate/internal/broker/kafka"
	"github.com/lumocart/shipgate/internal/cache/rediscache"
	"github.com/lumocart/shipgate/internal/correlation"
	"github.com/lumocart/shipgate/internal/services/rates"
	"github.com/lumocart/shipgate/internal/services/serviceability"
	"github.com/lumocart/shipgate/internal/services/shipments"
	"github.com/lumocart/shipgate/internal/services/slots"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.ShipGate.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.ShipGate.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "ship-gateway"
	}
	updatedTopic := cfg.Kafka.ShipmentUpdatedTopicName
	if updatedTopic == "" {
		updatedTopic = "shipment.updated"
	}
	viewedTopic := cfg.Kafka.ShipmentViewedTopicName
	if viewedTopic == "" {
		viewedTopic = "shipment.viewed"
	}
	cacheTTL := time.Duration(cfg.ShipGate.ShipmentCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	rlPerMin := int64(cfg.ShipGate.ServiceabilityRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 30
	}

	corr := correlation.New()

	var backend shippingBackend
	switch cfg.Backend.Mode {
	case "fake":
		backend = fakebackend.New()
	default:
		backend = shippinghttp.New(cfg.Backend.BaseURL, cfg.Backend.BearerToken, corr)
	}

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	rl := rediscache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	consumer := kafka.NewConsumer(brokers, updatedTopic, consumerGroup)
	defer func() { _ = consumer.Close() }()

	sv := serviceability.New(backend, rl, rlPerMin, time.Minute)
	sl := slots.New(backend, nil)
	rt := rates.New(backend)
	sh := shipments.New(backend, rc, cacheTTL)
	sh.EnableViewedEvents(producer, viewedTopic, corr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runShipGateway(ctx, shipGatewayOpts{
		httpAddr:      httpAddr,
		topic:         updatedTopic,
		consumerGroup: consumerGroup,
	}, gatewayServices{
		serviceability: sv,
		slots:          sl,
		rates:          rt,
		shipments:      sh,
	}, consumer); err != nil && err != context.Canceled {
		panic(err)
	}
}
