// Package statejson persists state snapshots to a local JSON file.
// Durability is best-effort: the file is rewritten on every save so a
// cleared session cannot be resurrected by a reload.
package statejson

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

// JSONState is a file-backed snapshot keeper. All snapshots live in one
// file, keyed by namespace. The mutex covers both the cache map and the
// file rewrite: the write-behind flusher and a logout write-through may
// save concurrently.
type JSONState struct {
	mu       sync.Mutex
	fileName string
	Cache    CacheStruct
}

type CacheStruct struct {
	Snapshots map[string]*models.StateSnapshot
}

func initStateFile(fileName string) error {
	stateFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stateFile, `{
	"Snapshots": {}
}`)
	if err != nil {
		return err
	}
	return stateFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cacheMap *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cacheMap)
	if err != nil {
		return err
	}

	return nil
}

// New opens or initializes the state file and loads its content.
func New(fileName string) (*JSONState, error) {
	jsonState := JSONState{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(jsonState.fileName, &jsonState.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		err := initStateFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(jsonState.fileName, &jsonState.Cache)
		if err != nil {
			return nil, err
		}
	}
	if jsonState.Cache.Snapshots == nil {
		jsonState.Cache.Snapshots = map[string]*models.StateSnapshot{}
	}

	return &jsonState, nil
}

func (s *JSONState) Ping(ctx context.Context) error {
	return nil
}

// LoadSnapshot returns the stored snapshot for the namespace, or
// models.ErrNoSnapshot when none exists.
func (s *JSONState) LoadSnapshot(ctx context.Context, namespace string) (*models.StateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, found := s.Cache.Snapshots[namespace]
	if !found {
		return nil, models.ErrNoSnapshot
	}

	return snapshot, nil
}

// SaveSnapshot stores the snapshot and rewrites the backing file.
func (s *JSONState) SaveSnapshot(ctx context.Context, namespace string, snapshot *models.StateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Cache.Snapshots[namespace] = snapshot

	return writeToJSONFile(s.fileName, s.Cache)
}

func (s *JSONState) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeToJSONFile(s.fileName, s.Cache)
}
