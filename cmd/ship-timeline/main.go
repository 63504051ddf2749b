package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lumocart/shipgate/config"
	"github.com/lumocart/shipgate/internal/backend/fakebackend"
	"github.com/lumocart/shipgate/internal/backend/shippinghttp"
	"github.com/lumocart/shipgate/internal/correlation"
	"github.com/lumocart/shipgate/internal/render"
	"github.com/lumocart/shipgate/internal/services/shipments"
)

// ship-timeline печатает таймлайн отгрузки в терминал. Бэкенд берётся из
// того же конфига, что и у шлюза.
func main() {
	ref := flag.String("ref", "", "order id or tracking number")
	flag.Parse()
	if *ref == "" && flag.NArg() > 0 {
		*ref = flag.Arg(0)
	}
	if *ref == "" {
		fmt.Fprintln(os.Stderr, "usage: ship-timeline -ref <order id or tracking number>")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	var backend shipments.Backend
	switch cfg.Backend.Mode {
	case "fake":
		backend = fakebackend.New()
	default:
		backend = shippinghttp.New(cfg.Backend.BaseURL, cfg.Backend.BearerToken, correlation.New())
	}

	svc := shipments.New(backend, nil, 0)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	view, err := svc.Track(ctx, *ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "track %s: %v\n", *ref, err)
		os.Exit(1)
	}

	fmt.Print(render.Timeline(view))
}
