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
	"sort"
	"sync"
	"time"

	"github.com/magpie-io/magpie/utils"
)

// Event classifies a registry change notification.
type Event string

const (
	EventAdd    Event = "add"
	EventUpdate Event = "update"
	EventRemove Event = "remove"
)

// Notification describes one registry change. Notifications are delivered
// synchronously, in listener-registration order, before the mutating call
// returns.
type Notification struct {
	Event Event
	Type  string
	Name  string
}

// Listener receives registry change notifications. Listeners may read from
// the registry but should register or remove items only through derivations.
type Listener func(Notification)

// DeriveFunc recomputes all items of a derived type from the current registry
// contents.
type DeriveFunc func(r *Registry) []Item

// TypeConfig declares an extension item type. A type with a Derive function
// is recomputed whenever an item of one of its Sources types changes.
type TypeConfig struct {
	Name    string
	Layer   string
	Derive  DeriveFunc
	Sources []string
}

type entry struct {
	typ          string
	item         Item
	registeredAt time.Time
}

var builtinTypes = map[string]struct{}{
	ItemTypeEntity:      {},
	ItemTypeValueObject: {},
	ItemTypeTable:       {},
}

// Registry is the process-wide catalog of declared metadata: entities, value
// objects, tables, and extension types. It is read-mostly; mutation happens
// at declaration time and during derivation recomputation.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]entry
	byType    map[string]map[string]struct{}
	listeners []Listener
	typeCfgs  []TypeConfig

	deriveMu sync.Mutex
	deriving bool

	logger *utils.Logger
}

// NewRegistry returns an empty registry. Use it directly for test isolation;
// production code usually goes through the package-level default instance.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
		byType:  make(map[string]map[string]struct{}),
		logger:  utils.NewLogger("METADATA"),
	}
}

// Register inserts or updates one named, typed metadata item and notifies
// listeners. Registration is idempotent by name: the second registration of a
// name is an update, never a duplicate. Malformed items (empty name or type)
// are dropped with a log line instead of an error, so that module-load-time
// registration chains never break.
func (r *Registry) Register(item Item) {
	if item == nil {
		r.logger.Warn("metadata registration dropped: nil item")
		return
	}
	name, typ := item.ItemName(), item.ItemType()
	if name == "" || typ == "" {
		r.logger.Warnf("metadata registration dropped: missing name or type (name=%q type=%q)", name, typ)
		return
	}
	if ed, ok := item.(*EntityDescriptor); ok {
		if err := ed.Validate(); err != nil {
			r.logger.Warnf("metadata registration dropped: %v", err)
			return
		}
	}

	r.mu.Lock()
	event := EventAdd
	if prev, ok := r.entries[name]; ok {
		event = EventUpdate
		if prev.typ != typ {
			delete(r.byType[prev.typ], name)
		}
	}
	r.entries[name] = entry{typ: typ, item: item, registeredAt: time.Now()}
	if r.byType[typ] == nil {
		r.byType[typ] = make(map[string]struct{})
	}
	r.byType[typ][name] = struct{}{}
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	r.notify(listeners, Notification{Event: event, Type: typ, Name: name})
	r.triggerDerivations(typ)
}

// Get returns the item registered under name.
func (r *Registry) Get(name string) (Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.item, true
}

// GetEntity returns the entity or value object descriptor registered under
// name.
func (r *Registry) GetEntity(name string) (*EntityDescriptor, bool) {
	item, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	ed, ok := item.(*EntityDescriptor)
	return ed, ok
}

// GetTable returns the table descriptor registered under name.
func (r *Registry) GetTable(name string) (*TableDescriptor, bool) {
	item, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	td, ok := item.(*TableDescriptor)
	return td, ok
}

// GetByType returns all items of the given type, sorted by name.
func (r *Registry) GetByType(typ string) []Item {
	r.mu.RLock()
	names := make([]string, 0, len(r.byType[typ]))
	for name := range r.byType[typ] {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	items := make([]Item, 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		if e, ok := r.entries[name]; ok {
			items = append(items, e.item)
		}
	}
	return items
}

// GetAll returns every registered item, sorted by name.
func (r *Registry) GetAll() []Item {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	items := make([]Item, 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		if e, ok := r.entries[name]; ok {
			items = append(items, e.item)
		}
	}
	return items
}

// Remove deletes the named item from both indices and notifies listeners.
// Removing an unknown name is a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.entries, name)
	delete(r.byType[e.typ], name)
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	r.notify(listeners, Notification{Event: EventRemove, Type: e.typ, Name: name})
	r.triggerDerivations(e.typ)
}

// Clear removes every item and listener. Intended for tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.entries = make(map[string]entry)
	r.byType = make(map[string]map[string]struct{})
	r.listeners = nil
	r.typeCfgs = nil
	r.mu.Unlock()
}

// Subscribe adds a change listener. Listeners are invoked in subscription
// order.
func (r *Registry) Subscribe(l Listener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// RegisterType declares an extension type. Declaring a type whose name
// collides with a built-in type is rejected with a warning and no mutation.
// If the type carries a derivation, its items are recomputed immediately and
// then whenever an item of one of its source types changes.
func (r *Registry) RegisterType(cfg TypeConfig) {
	if cfg.Name == "" {
		r.logger.Warn("metadata type registration dropped: missing name")
		return
	}
	if _, ok := builtinTypes[cfg.Name]; ok {
		r.logger.Warnf("metadata type registration rejected: %q collides with a built-in type", cfg.Name)
		return
	}

	r.mu.Lock()
	replaced := false
	for i := range r.typeCfgs {
		if r.typeCfgs[i].Name == cfg.Name {
			r.typeCfgs[i] = cfg
			replaced = true
			break
		}
	}
	if !replaced {
		r.typeCfgs = append(r.typeCfgs, cfg)
	}
	r.mu.Unlock()

	if cfg.Derive != nil {
		r.runDerivation(cfg)
	}
}

// triggerDerivations recomputes every derived type that lists typ among its
// sources. A deriving flag suppresses re-entrant triggering so that a derived
// type which is, transitively, its own trigger cannot recurse.
func (r *Registry) triggerDerivations(typ string) {
	r.deriveMu.Lock()
	if r.deriving {
		r.deriveMu.Unlock()
		return
	}
	r.deriving = true
	r.deriveMu.Unlock()
	defer func() {
		r.deriveMu.Lock()
		r.deriving = false
		r.deriveMu.Unlock()
	}()

	r.mu.RLock()
	cfgs := append([]TypeConfig(nil), r.typeCfgs...)
	r.mu.RUnlock()

	for _, cfg := range cfgs {
		if cfg.Derive == nil {
			continue
		}
		for _, src := range cfg.Sources {
			if src == typ {
				r.rederive(cfg)
				break
			}
		}
	}
}

// runDerivation recomputes one derived type under the deriving guard. Used
// for the initial computation at type-registration time.
func (r *Registry) runDerivation(cfg TypeConfig) {
	r.deriveMu.Lock()
	if r.deriving {
		r.deriveMu.Unlock()
		return
	}
	r.deriving = true
	r.deriveMu.Unlock()
	defer func() {
		r.deriveMu.Lock()
		r.deriving = false
		r.deriveMu.Unlock()
	}()

	r.rederive(cfg)
}

// rederive clears the previously derived items of cfg's type and re-registers
// the freshly computed set. Callers must hold the deriving guard.
func (r *Registry) rederive(cfg TypeConfig) {
	for _, item := range r.GetByType(cfg.Name) {
		r.Remove(item.ItemName())
	}
	items := cfg.Derive(r)
	r.logger.Debugf("metadata derivation %q produced %d items", cfg.Name, len(items))
	for _, item := range items {
		r.Register(item)
	}
}

func (r *Registry) notify(listeners []Listener, n Notification) {
	for _, l := range listeners {
		l(n)
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry instance.
func Default() *Registry { return defaultRegistry }

// Register registers an item with the default registry.
func Register(item Item) { defaultRegistry.Register(item) }

// Get looks up an item in the default registry.
func Get(name string) (Item, bool) { return defaultRegistry.Get(name) }

// GetByType lists items of one type from the default registry.
func GetByType(typ string) []Item { return defaultRegistry.GetByType(typ) }
