// Config presets are read-only JSON documents dropped into a directory on
// disk (shipped defaults or hand-written ones). The service keeps an
// in-memory list, watches the directory for changes and tells connected
// consoles to refresh when it reloads.

package presets

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/akirol/trainwatch/internal/models"
	"github.com/akirol/trainwatch/internal/websocket"
)

// Service loads and watches the preset directory.
type Service struct {
	path string
	hub  *websocket.Hub

	mu      sync.RWMutex
	presets []models.Preset

	watcher       *fsnotify.Watcher
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
}

// NewService creates a preset service for the given directory. hub may be nil
// (changes are then not broadcast), which tests use.
func NewService(path string, hub *websocket.Hub) *Service {
	return &Service{
		path:          path,
		hub:           hub,
		debounceDelay: 2 * time.Second, // Wait for copy bursts to settle before reloading
		stopChan:      make(chan struct{}),
	}
}

// Start performs the initial load and begins watching the directory. A
// missing directory is not fatal; the preset list is simply empty.
func (s *Service) Start() error {
	if err := s.reload(); err != nil {
		log.Printf("Initial preset load failed: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	if err := watcher.Add(s.path); err != nil {
		// Keep running without a watcher; List still serves the initial load.
		log.Printf("Preset directory %s not watchable: %v", s.path, err)
		watcher.Close()
		s.watcher = nil
		return nil
	}

	log.Printf("Preset watcher started for: %s", s.path)
	go s.processEvents()
	return nil
}

// Stop shuts down the watcher.
func (s *Service) Stop() {
	close(s.stopChan)
	if s.watcher != nil {
		s.watcher.Close()
	}
}

// List returns the currently loaded presets, sorted by name.
func (s *Service) List() []models.Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Preset, len(s.presets))
	copy(out, s.presets)
	return out
}

func (s *Service) processEvents() {
	for {
		select {
		case <-s.stopChan:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			s.scheduleReload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Preset watcher error: %v", err)
		}
	}
}

// scheduleReload debounces bursts of filesystem events into one reload.
func (s *Service) scheduleReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounceDelay, func() {
		if err := s.reload(); err != nil {
			log.Printf("Preset reload failed: %v", err)
			return
		}
		if s.hub != nil {
			s.hub.BroadcastJSON(map[string]string{"event": "presets_changed"})
		}
	})
}

// reload reads every .json file in the preset directory.
func (s *Service) reload() error {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.presets = nil
			s.mu.Unlock()
			return nil
		}
		return err
	}

	var presets []models.Preset
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.path, entry.Name()))
		if err != nil {
			log.Printf("Skipping unreadable preset %s: %v", entry.Name(), err)
			continue
		}
		presets = append(presets, models.Preset{
			Name:     strings.TrimSuffix(entry.Name(), ".json"),
			FileName: entry.Name(),
			Data:     string(data),
		})
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })

	s.mu.Lock()
	s.presets = presets
	s.mu.Unlock()
	log.Printf("Loaded %d config presets from %s", len(presets), s.path)
	return nil
}
