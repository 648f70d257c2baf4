// Package store saves and loads a whole paper-trading session as one
// document: wallet, watchlist, order log, positions and holdings.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("no saved session")

// Document is the persisted session. Holdings are carried through untouched.
type Document struct {
	Wallet    ledger.Wallet       `json:"wallet" yaml:"wallet"`
	Watchlist []market.Instrument `json:"watchlist" yaml:"watchlist"`
	Orders    []ledger.Order      `json:"orders" yaml:"orders"`
	Positions []ledger.Position   `json:"positions" yaml:"positions"`
	Holdings  []ledger.Position   `json:"holdings" yaml:"holdings"`
}

// NewDocument is a fresh session with balance in the wallet.
func NewDocument(balance float64, watchlist []market.Instrument) Document {
	return Document{
		Wallet:    ledger.Wallet{Balance: balance, InitialBalance: balance},
		Watchlist: append([]market.Instrument{}, watchlist...),
		Orders:    []ledger.Order{},
		Positions: []ledger.Position{},
		Holdings:  []ledger.Position{},
	}
}

// State is the ledger part of the document.
func (d Document) State() ledger.State {
	st := ledger.State{
		Wallet:    d.Wallet,
		Positions: d.Positions,
		Orders:    d.Orders,
	}
	return st.Clone()
}

// WithState returns a copy of d carrying st and watchlist.
func (d Document) WithState(st ledger.State, watchlist []market.Instrument) Document {
	st = st.Clone()
	d.Wallet = st.Wallet
	d.Positions = st.Positions
	d.Orders = st.Orders
	d.Watchlist = append([]market.Instrument{}, watchlist...)
	if d.Holdings == nil {
		d.Holdings = []ledger.Position{}
	}
	return d
}

// FileStore keeps the document in a single file. The encoding follows the
// extension: .yaml and .yml are YAML, anything else is JSON.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.Path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the document. A missing file is ErrNotFound.
func (s *FileStore) Load() (Document, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Document{}, fmt.Errorf("load %s: %w", s.Path, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("load %s: %w", s.Path, err)
	}

	var doc Document
	if s.isYAML() {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	normalize(&doc)
	return doc, nil
}

// Save writes the document to a temporary file next to Path and renames it
// into place, so a crash never leaves a half-written session behind.
func (s *FileStore) Save(doc Document) error {
	normalize(&doc)

	var (
		data []byte
		err  error
	)
	if s.isYAML() {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("save %s: %w", s.Path, err)
	}
	return nil
}

// normalize replaces nil lists with empty ones so the saved document always
// has every key.
func normalize(d *Document) {
	if d.Watchlist == nil {
		d.Watchlist = []market.Instrument{}
	}
	if d.Orders == nil {
		d.Orders = []ledger.Order{}
	}
	if d.Positions == nil {
		d.Positions = []ledger.Position{}
	}
	if d.Holdings == nil {
		d.Holdings = []ledger.Position{}
	}
}
