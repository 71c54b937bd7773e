package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/platewire/platewire/app"
	"github.com/platewire/platewire/config"
	"github.com/platewire/platewire/core/dispatch"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <order.json>",
	Short: "Dispatch an order's unsent items to their printers",
	Args:  cobra.ExactArgs(1),
	RunE:  dispatchOrder,
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
}

func dispatchOrder(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	orders := &fileOrderStore{}
	svc, err := app.New(cfg, orders)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	order, err := loadOrder(args[0])
	if err != nil {
		return err
	}
	orders.track(order.ID, args[0])

	res := svc.Manager.Dispatch(dispatch.WithActor(ctx, "cli"), &order)
	fmt.Println(res.Message)
	for id, ok := range res.PerTarget {
		state := "ok"
		if !ok {
			state = "failed"
		}
		fmt.Printf("  %s: %s\n", id, state)
	}
	if !res.Success {
		return fmt.Errorf("dispatch failed")
	}
	return nil
}
