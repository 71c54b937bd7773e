// Package scenarios runs table-driven dispatch scenarios described in YAML
// files next to this package. Each file sets up printers, assignments and an
// order, lists which printers reject transmissions, and states the expected
// dispatch outcome.
package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/platewire/platewire/core/model"
)

type PrinterDef struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Active   bool   `yaml:"active"`
	Priority int    `yaml:"priority"`
}

func (p PrinterDef) ToModel() model.PrinterTarget {
	host := p.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return model.PrinterTarget{
		ID:       p.ID,
		Name:     p.Name,
		Host:     host,
		Port:     p.Port,
		Active:   p.Active,
		Priority: p.Priority,
	}
}

type AssignmentDef struct {
	Level    string `yaml:"level"`
	TargetID string `yaml:"target_id"`
	Printer  string `yaml:"printer"`
	Priority int    `yaml:"priority"`
}

func (a AssignmentDef) ToModel(ordinal int) model.Assignment {
	level := model.AssignmentLevel(a.Level)
	if level == "" {
		level = model.LevelItem
	}
	return model.Assignment{
		Level:    level,
		TargetID: a.TargetID,
		Printer:  a.Printer,
		Priority: a.Priority,
		Active:   true,
		Ordinal:  ordinal,
	}
}

type ItemDef struct {
	ID         string `yaml:"id"`
	MenuItemID string `yaml:"menu_item_id"`
	CategoryID string `yaml:"category_id"`
	Name       string `yaml:"name"`
	Quantity   int    `yaml:"quantity"`
	Sent       bool   `yaml:"sent"`
}

func (i ItemDef) ToModel() model.OrderItem {
	qty := i.Quantity
	if qty == 0 {
		qty = 1
	}
	return model.OrderItem{
		ID:            i.ID,
		MenuItemID:    i.MenuItemID,
		CategoryID:    i.CategoryID,
		Name:          i.Name,
		Quantity:      qty,
		SentToKitchen: i.Sent,
	}
}

type OrderDef struct {
	ID     string    `yaml:"id"`
	Number string    `yaml:"number"`
	Items  []ItemDef `yaml:"items"`
}

func (o OrderDef) ToModel() model.Order {
	order := model.Order{ID: o.ID, Number: o.Number}
	for _, it := range o.Items {
		order.Items = append(order.Items, it.ToModel())
	}
	return order
}

type Expected struct {
	Success      bool `yaml:"success"`
	ItemsSent    int  `yaml:"items_sent"`
	PrinterCount int  `yaml:"printer_count"`
	Queued       int  `yaml:"queued"`
}

type Scenario struct {
	Name            string          `yaml:"name"`
	Description     string          `yaml:"description,omitempty"`
	Printers        []PrinterDef    `yaml:"printers"`
	Assignments     []AssignmentDef `yaml:"assignments"`
	Order           OrderDef        `yaml:"order"`
	OfflinePrinters []string        `yaml:"offline_printers,omitempty"`
	Expected        Expected        `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
