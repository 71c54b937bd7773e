package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platewire/platewire/config"
	"github.com/platewire/platewire/core/model"
	"github.com/platewire/platewire/infra/configstore"
	"github.com/platewire/platewire/infra/logger"
	"github.com/platewire/platewire/infra/transport"
)

var printersCmd = &cobra.Command{
	Use:   "printers",
	Short: "Printer related commands",
}

var printersLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List configured printers and probe reachability",
	RunE:  runPrintersLs,
}

func init() {
	printersCmd.AddCommand(printersLsCmd)
	rootCmd.AddCommand(printersCmd)
}

func runPrintersLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := configstore.NewFileStore(cfg.Store.PrintersPath, logger.New("printers"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tcp := transport.NewTCPSender()
	for _, t := range store.ActiveTargets() {
		state := "offline"
		if t.Transport == model.TransportRelay {
			state = "relay"
		} else if tcp.Reachable(t) {
			state = "online"
		}
		fmt.Printf("%-12s %-20s %-21s prio=%d %s\n", t.ID, t.Name, t.Addr(), t.Priority, state)
	}
	return nil
}
