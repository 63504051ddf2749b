package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumocart/shipgate/internal/api/shippingapi"
	"github.com/lumocart/shipgate/internal/broker/messages"
	"github.com/lumocart/shipgate/internal/metrics"
	"github.com/lumocart/shipgate/internal/services/rates"
	"github.com/lumocart/shipgate/internal/services/serviceability"
	"github.com/lumocart/shipgate/internal/services/shipments"
	"github.com/lumocart/shipgate/internal/services/slots"
)

type shipGatewayOpts struct {
	httpAddr string

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

// shippingBackend объединяет четыре клиентских интерфейса: один и тот же
// бэкенд обслуживает все сервисы шлюза.
type shippingBackend interface {
	serviceability.Backend
	slots.Backend
	rates.Backend
	shipments.Backend
}

type gatewayServices struct {
	serviceability *serviceability.Service
	slots          *slots.Service
	rates          *rates.Service
	shipments      *shipments.Service
}

func runShipGateway(ctx context.Context, opts shipGatewayOpts, svcs gatewayServices, consumer kafkaConsumer) error {
	api := shippingapi.New(svcs.serviceability, svcs.slots, svcs.rates, svcs.shipments)

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	r := chi.NewRouter()
	r.Mount("/api/v1", api.Router())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}

	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- serveHTTP(ctx, lis, r)
	}()

	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		_ = consumer.Consume(ctx, func(_key, value []byte) error {
			var m messages.ShipmentUpdated
			if err := json.Unmarshal(value, &m); err != nil {
				// битое сообщение коммитим и идём дальше
				slog.Warn("malformed shipment.updated message skipped", "error", err)
				return nil
			}
			metrics.ShipmentUpdatesTotal.Inc()
			return svcs.shipments.ApplyShipmentUpdated(ctx, m)
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

func serveHTTP(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}
