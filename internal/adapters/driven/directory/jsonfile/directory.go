// Package jsonfile provides a customer directory backed by flat JSON or YAML files.
//
// Files are re-read on every lookup, so edits apply without a restart.
// A customers file holds a list of records:
//
//	[{"id": "cust_42", "token": "<EMAIL_1>", "name": "Asha",
//	  "preferences": ["oat latte"], "history": [{"item": "Latte", "count": 3, "last_order": "2024-11-02"}]}]
//
// A stores file holds a list of stores; the first one is treated as nearest.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure Directory implements the interface.
var _ driven.CustomerDirectory = (*Directory)(nil)

// Directory reads customer and store records from files.
type Directory struct {
	customersPath string
	storesPath    string
}

// New creates a directory. Either path may be empty or point at a missing file.
func New(customersPath, storesPath string) *Directory {
	return &Directory{customersPath: customersPath, storesPath: storesPath}
}

type purchaseRecord struct {
	Item      string `json:"item" yaml:"item"`
	Count     int    `json:"count" yaml:"count"`
	LastOrder string `json:"last_order" yaml:"last_order"`
}

type customerRecord struct {
	ID          string           `json:"id" yaml:"id"`
	Token       string           `json:"token" yaml:"token"`
	Name        string           `json:"name" yaml:"name"`
	Preferences []string         `json:"preferences" yaml:"preferences"`
	History     []purchaseRecord `json:"history" yaml:"history"`
}

type storeRecord struct {
	Name      string   `json:"name" yaml:"name"`
	DistanceM int      `json:"distance_m" yaml:"distance_m"`
	Inventory []string `json:"inventory" yaml:"inventory"`
	Offers    []string `json:"offers" yaml:"offers"`
}

// CustomerByToken returns the first customer whose token matches exactly.
func (d *Directory) CustomerByToken(_ context.Context, token string) (*domain.Customer, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}

	var records []customerRecord
	found, err := decodeFile(d.customersPath, &records)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}

	for _, r := range records {
		if r.Token != token {
			continue
		}
		c := &domain.Customer{
			ID:          r.ID,
			Token:       r.Token,
			Name:        r.Name,
			Preferences: r.Preferences,
		}
		for _, h := range r.History {
			c.History = append(c.History, domain.Purchase{Item: h.Item, Count: h.Count, LastOrder: h.LastOrder})
		}
		return c, nil
	}
	return nil, domain.ErrNotFound
}

// NearestStore returns the first store in the file, or the demo store when
// the file is missing or empty.
func (d *Directory) NearestStore(_ context.Context) (domain.Store, error) {
	var records []storeRecord
	found, err := decodeFile(d.storesPath, &records)
	if err != nil {
		return domain.Store{}, err
	}
	if !found || len(records) == 0 {
		return domain.DefaultStore(), nil
	}

	r := records[0]
	return domain.Store{
		Name:      r.Name,
		DistanceM: r.DistanceM,
		Inventory: r.Inventory,
		Offers:    r.Offers,
	}, nil
}

// decodeFile reports found=false for an empty path or a missing file.
func decodeFile(path string, v any) (bool, error) {
	if path == "" {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("directory: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return false, fmt.Errorf("directory: parse %s: %w", path, err)
	}
	return true, nil
}
