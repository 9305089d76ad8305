package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/dig"

	"quickbites-dispatch/internal/config"
	"quickbites-dispatch/internal/logx"
	"quickbites-dispatch/internal/repository"
	"quickbites-dispatch/internal/service/order"
	"quickbites-dispatch/internal/transport/kafka"
)

// MustBuildWorkerContainer wires the checkout intake worker: Kafka consumer
// feeding the order service.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuildWorker(ctx)
}

// MustBuildWorker builds the worker container.
func (b *ContainerBuilder) MustBuildWorker(ctx context.Context) *dig.Container {
	container, err := b.buildWorker(ctx)
	if err != nil {
		b.logFatalf("failed to build worker container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) buildWorker(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerWorker(container); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return container, nil
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		repository.NewOrderRepo,
		repository.NewShopDirectory,
		func() time.Duration { return 3 * time.Second },
		func(repo *repository.OrderRepo, shops *repository.ShopDirectory, timeout time.Duration, logger logx.Logger) *order.Service {
			return order.NewService(repo, shops, timeout, logger)
		},
		makeCheckoutHandler,
		func(cfg *config.Config, h kafka.HandleFunc, logger logx.Logger) (*kafka.Consumer, error) {
			return kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.CheckoutTopic, h, logger)
		},
	)
}

func makeCheckoutHandler(svc *order.Service, logger logx.Logger) kafka.HandleFunc {
	return func(ctx context.Context, in order.CheckoutInput) error {
		o, err := svc.Checkout(ctx, in)
		if err != nil {
			return err
		}
		logger.Info("checkout consumed",
			logx.String("order_id", o.ID.String()),
			logx.Int("shop_orders", len(o.ShopOrders)),
		)
		return nil
	}
}
