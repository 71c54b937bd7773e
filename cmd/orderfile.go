package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/platewire/platewire/core/model"
)

// fileOrderStore is the CLI's stand-in for the order-management
// collaborator: orders live in JSON files and MarkSent writes the updated
// flags back so a repeated dispatch of the same file finds nothing new.
type fileOrderStore struct {
	mu    sync.Mutex
	paths map[string]string // order id -> file path
}

func (s *fileOrderStore) track(orderID, path string) {
	s.mu.Lock()
	if s.paths == nil {
		s.paths = make(map[string]string)
	}
	s.paths[orderID] = path
	s.mu.Unlock()
}

func loadOrder(path string) (model.Order, error) {
	var order model.Order
	data, err := os.ReadFile(path)
	if err != nil {
		return order, err
	}
	if err := json.Unmarshal(data, &order); err != nil {
		return order, fmt.Errorf("parse order file %s: %w", path, err)
	}
	return order, nil
}

func (s *fileOrderStore) MarkSent(ctx context.Context, orderID string, itemIDs []string) error {
	s.mu.Lock()
	path, ok := s.paths[orderID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown order %s", orderID)
	}
	order, err := loadOrder(path)
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		set[id] = true
	}
	for i := range order.Items {
		if set[order.Items[i].ID] {
			order.Items[i].SentToKitchen = true
		}
	}
	data, err := json.MarshalIndent(order, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
