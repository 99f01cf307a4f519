/*
 * Copyright 2025 the magpie authors.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// LoadFile reads one interop JSON document (or a JSON array of documents)
// and registers its items.
func (r *Registry) LoadFile(path string) error {
	_, err := r.loadFile(path)
	return err
}

// loadFile registers a file's items and returns their names.
func (r *Registry) loadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: read %s: %w", path, err)
	}

	docs, err := parseDocuments(data)
	if err != nil {
		return nil, fmt.Errorf("metadata: parse %s: %w", path, err)
	}
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		item, err := DecodeDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("metadata: %s: %w", path, err)
		}
		r.Register(item)
		names = append(names, item.ItemName())
	}
	return names, nil
}

// LoadDir registers every *.json document under dir, in name order so that
// loading is deterministic.
func (r *Registry) LoadDir(dir string) error {
	paths, err := listDocuments(dir)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := r.LoadFile(path); err != nil {
			return err
		}
	}
	return nil
}

func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("metadata: read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func parseDocuments(data []byte) ([]*Document, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var docs []*Document
		if err := json.Unmarshal([]byte(trimmed), &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return []*Document{&doc}, nil
}

// Watcher re-registers metadata documents when their files change on disk.
type Watcher struct {
	registry *Registry
	dir      string
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	files map[string][]string // path -> registered item names

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Watch loads dir into the registry and keeps it in sync: a write or create
// of a *.json file re-registers that file's items, and deleting or renaming
// a file removes the items it had registered. Close stops the watch.
func (r *Registry) Watch(dir string) (*Watcher, error) {
	paths, err := listDocuments(dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string][]string, len(paths))
	for _, path := range paths {
		names, err := r.loadFile(path)
		if err != nil {
			return nil, err
		}
		files[path] = names
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("metadata: fsnotify.NewWatcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("metadata: watch %s: %w", dir, err)
	}

	w := &Watcher{
		registry: r,
		dir:      dir,
		watcher:  fw,
		files:    files,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				w.reload(event.Name)
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				w.unload(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.registry.logger.Warnf("metadata watch error: %v", err)
		case <-w.done:
			return
		}
	}
}

// reload re-registers a changed file and removes items the new revision of
// the document no longer declares.
func (w *Watcher) reload(path string) {
	names, err := w.registry.loadFile(path)
	if err != nil {
		w.registry.logger.Warnf("metadata reload failed: %v", err)
		return
	}

	current := make(map[string]struct{}, len(names))
	for _, n := range names {
		current[n] = struct{}{}
	}
	w.mu.Lock()
	previous := w.files[path]
	w.files[path] = names
	w.mu.Unlock()

	for _, n := range previous {
		if _, ok := current[n]; !ok {
			w.registry.Remove(n)
		}
	}
}

// unload removes every item a deleted or renamed file had registered.
func (w *Watcher) unload(path string) {
	w.mu.Lock()
	names := w.files[path]
	delete(w.files, path)
	w.mu.Unlock()

	for _, n := range names {
		w.registry.Remove(n)
	}
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
