package storage

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"

	"charfred/pkg/jsonstore"
)

//go:embed keywords_default.json
var defaultKeywordsJSON []byte

// Keywords holds the canned lines used for error replies.
type Keywords struct {
	ErrorMsgs []string `json:"errormsgs"`
	Nacks     []string `json:"nacks"`
}

func defaultKeywords() Keywords {
	var kw Keywords
	if err := json.Unmarshal(defaultKeywordsJSON, &kw); err != nil {
		panic(fmt.Sprintf("storage: bad embedded keywords: %v", err))
	}
	return kw
}

// KeywordStore serves random keyword lines from a JSON file that is seeded
// with the built-in defaults.
type KeywordStore struct {
	store *jsonstore.Store[Keywords]
}

func NewKeywords(path string) (*KeywordStore, error) {
	st, err := jsonstore.Open(jsonstore.Config{Path: path}, defaultKeywords)
	if err != nil {
		return nil, err
	}
	return &KeywordStore{store: st}, nil
}

// Reload re-reads the keyword file.
func (k *KeywordStore) Reload() error { return k.store.Load() }

// ErrorMsg returns a random refusal line.
func (k *KeywordStore) ErrorMsg() string {
	var out string
	k.store.View(func(kw *Keywords) { out = pick(kw.ErrorMsgs, "Access denied!") })
	return out
}

// Nack returns a random "that did not work" line.
func (k *KeywordStore) Nack() string {
	var out string
	k.store.View(func(kw *Keywords) { out = pick(kw.Nacks, "Something went wrong!") })
	return out
}

func pick(lines []string, fallback string) string {
	if len(lines) == 0 {
		return fallback
	}
	return lines[rand.Intn(len(lines))]
}
