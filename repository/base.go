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

package repository

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/magpie-io/magpie/database"
	"github.com/magpie-io/magpie/mapper"
	"github.com/magpie-io/magpie/metadata"
	"github.com/magpie-io/magpie/types"
)

// Repository lifecycle states.
const (
	StateUninitialized = "uninitialized"
	StateInitializing  = "initializing"
	StateReady         = "ready"
)

// BaseRepository is the metadata-driven generic repository. It is constructed
// from an entity name alone; on first use it resolves the entity's registered
// metadata, builds the field mapping, and transitions to ready. Missing
// metadata degrades to the fallback table with identity column mapping, it
// never blocks basic I/O.
type BaseRepository[T any] struct {
	entity        string
	executor      database.Executor
	registry      *metadata.Registry
	fallbackTable string
	constructor   func() *T
	logger        database.Logger

	initOnce sync.Once
	initErr  error

	mu      sync.RWMutex
	state   string
	table   string
	mapping *mapper.FieldMapping
	access  *mapper.Accessor
}

var _ Repository[types.Record] = (*BaseRepository[types.Record])(nil)

// NewRepository returns a generic repository for the named entity.
func NewRepository[T any](entity string, opts ...Option[T]) *BaseRepository[T] {
	r := &BaseRepository[T]{
		entity:      entity,
		registry:    metadata.Default(),
		constructor: defaultConstructor[T],
		logger:      database.GetLogger(),
		state:       StateUninitialized,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultConstructor[T any]() *T {
	v := new(T)
	rv := reflect.ValueOf(v).Elem()
	if rv.Kind() == reflect.Map && rv.IsNil() {
		rv.Set(reflect.MakeMap(rv.Type()))
	}
	return v
}

// State returns the repository lifecycle state.
func (r *BaseRepository[T]) State() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Entity returns the entity name the repository serves.
func (r *BaseRepository[T]) Entity() string { return r.entity }

// initialize resolves metadata and builds the field mapping exactly once.
// Every public operation calls it first; a failed initialization is cached
// and surfaced on each subsequent call.
func (r *BaseRepository[T]) initialize() error {
	r.initOnce.Do(func() {
		r.mu.Lock()
		r.state = StateInitializing
		r.mu.Unlock()

		r.initErr = r.doInitialize()

		r.mu.Lock()
		if r.initErr == nil {
			r.state = StateReady
		} else {
			r.state = StateUninitialized
		}
		r.mu.Unlock()
	})
	return r.initErr
}

func (r *BaseRepository[T]) doInitialize() error {
	access, err := mapper.For[T]()
	if err != nil {
		return err
	}

	if r.executor == nil {
		r.executor = database.DefaultExecutor()
	}

	ed, ok := r.registry.GetEntity(r.entity)
	if !ok {
		if r.fallbackTable == "" {
			return &mapper.ConfigurationError{
				Entity: r.entity,
				Reason: "no registered metadata and no fallback table",
			}
		}
		// Degraded mode: identity column mapping against the fallback table.
		r.mu.Lock()
		r.table = r.fallbackTable
		r.access = access
		r.mu.Unlock()
		r.logger.Warn("Repository running without metadata",
			"entity", r.entity, "table", r.fallbackTable)
		return nil
	}

	table := ed.TableName
	if table == "" {
		table = mapper.ToSnake(ed.Name)
	}
	td, _ := r.registry.GetTable(table)
	mapping, err := mapper.Build(ed, td)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.table = table
	r.mapping = mapping
	r.access = access
	r.mu.Unlock()
	r.logger.Debug("Repository initialized", "entity", r.entity, "table", table)
	return nil
}

// columns returns the mapped column list in deterministic order, or nil in
// degraded mode (select every column).
func (r *BaseRepository[T]) columns() []string {
	if r.mapping == nil {
		return nil
	}
	cols := r.mapping.Columns()
	sort.Strings(cols)
	return cols
}

// pkColumn returns the primary key column; "id" in degraded mode.
func (r *BaseRepository[T]) pkColumn() string {
	if r.mapping != nil && r.mapping.PKColumn() != "" {
		return r.mapping.PKColumn()
	}
	return "id"
}

// idValue converts id to its storage representation using the primary key's
// declared semantic type.
func (r *BaseRepository[T]) idValue(id any) (any, error) {
	if r.mapping == nil || r.mapping.PKAttribute() == "" {
		return id, nil
	}
	attr := r.mapping.PKAttribute()
	typ, _ := r.mapping.SemanticType(attr)
	return mapper.ToStorageValue(r.entity, attr, typ, id)
}

// toRow converts an attribute-keyed record into a storage row; identity in
// degraded mode.
func (r *BaseRepository[T]) toRow(attrs types.Record) (types.Record, error) {
	if r.mapping == nil {
		return attrs.Clone(), nil
	}
	return r.mapping.ToRow(attrs)
}

// entityFromRow rebuilds a domain object from a storage row.
func (r *BaseRepository[T]) entityFromRow(row types.Record) (*T, error) {
	attrs := row
	if r.mapping != nil {
		var err error
		attrs, err = r.mapping.ToAttributes(row)
		if err != nil {
			return nil, err
		}
	}
	obj := r.constructor()
	for attr, v := range attrs {
		if !r.access.Has(attr) {
			continue
		}
		if err := r.access.Set(obj, attr, v); err != nil {
			return nil, &mapper.ConversionError{Entity: r.entity, Field: attr, Value: v, Err: err}
		}
	}
	return obj, nil
}

func (r *BaseRepository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	if err := r.initialize(); err != nil {
		return nil, err
	}
	idv, err := r.idValue(id)
	if err != nil {
		return nil, err
	}
	row, err := r.executor.SelectOne(ctx, r.table, r.columns(), types.Record{r.pkColumn(): idv})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return r.entityFromRow(row)
}

func (r *BaseRepository[T]) FindAll(ctx context.Context, opts *FindOptions) ([]*T, error) {
	if err := r.initialize(); err != nil {
		return nil, err
	}
	var selOpts *database.SelectOptions
	if opts != nil {
		selOpts = &database.SelectOptions{
			Limit:     opts.Limit,
			Offset:    opts.Offset,
			OrderBy:   r.orderColumn(opts.OrderBy),
			OrderDesc: opts.OrderDesc,
		}
	}
	rows, err := r.executor.SelectAll(ctx, r.table, r.columns(), nil, selOpts)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0, len(rows))
	for _, row := range rows {
		entity, err := r.entityFromRow(row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// orderColumn translates an order-by attribute to its column name. Unmapped
// attributes fall back to the snake-case transform.
func (r *BaseRepository[T]) orderColumn(attr string) string {
	if attr == "" {
		return ""
	}
	if r.mapping != nil {
		if col, ok := r.mapping.Column(attr); ok {
			return col
		}
	}
	return mapper.ToSnake(attr)
}

func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	if err := r.initialize(); err != nil {
		return nil, err
	}

	rec := r.access.Record(entity)
	// Struct fields cannot tell an explicit zero from an unset one, so a
	// zero-valued attribute counts as absent and storage defaults apply.
	// Map records carry presence in the keys themselves: present zeros are
	// deliberate and must be stored.
	if !r.access.IsMap() {
		for attr, v := range rec {
			if v == nil || reflect.ValueOf(v).IsZero() {
				delete(rec, attr)
			}
		}
	}

	// Generate a string primary key when none was supplied.
	var idv any
	if r.mapping != nil && r.mapping.PKAttribute() != "" {
		pkAttr := r.mapping.PKAttribute()
		if _, ok := rec[pkAttr]; !ok {
			if typ, _ := r.mapping.SemanticType(pkAttr); typ == metadata.TypeString {
				rec[pkAttr] = uuid.NewString()
			}
		}
		idv = rec[pkAttr]
	} else if v, ok := rec["id"]; ok {
		idv = v
	}

	row, err := r.toRow(rec)
	if err != nil {
		return nil, err
	}
	if err := r.executor.Insert(ctx, r.table, row); err != nil {
		return nil, err
	}

	// Rebuild from the stored row so server-computed defaults are reflected.
	if idv != nil {
		stored, err := r.FindByID(ctx, idv)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			return stored, nil
		}
	}
	return r.entityFromRow(row)
}

func (r *BaseRepository[T]) Update(ctx context.Context, id any, patch types.Record) (*T, error) {
	if err := r.initialize(); err != nil {
		return nil, err
	}
	idv, err := r.idValue(id)
	if err != nil {
		return nil, err
	}
	row, err := r.toRow(patch)
	if err != nil {
		return nil, err
	}
	delete(row, r.pkColumn())
	if len(row) > 0 {
		if _, err := r.executor.Update(ctx, r.table, types.Record{r.pkColumn(): idv}, row); err != nil {
			return nil, err
		}
	}
	// Re-read rather than trust rows-affected: engines report zero for
	// no-change updates.
	return r.FindByID(ctx, id)
}

func (r *BaseRepository[T]) Delete(ctx context.Context, id any) (bool, error) {
	if err := r.initialize(); err != nil {
		return false, err
	}
	idv, err := r.idValue(id)
	if err != nil {
		return false, err
	}
	affected, err := r.executor.Delete(ctx, r.table, types.Record{r.pkColumn(): idv})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *BaseRepository[T]) Count(ctx context.Context, filter types.Record) (int, error) {
	if err := r.initialize(); err != nil {
		return 0, err
	}
	where, err := r.toRow(filter)
	if err != nil {
		return 0, err
	}
	return r.executor.Count(ctx, r.table, where)
}

func (r *BaseRepository[T]) Exists(ctx context.Context, id any) (bool, error) {
	if err := r.initialize(); err != nil {
		return false, err
	}
	idv, err := r.idValue(id)
	if err != nil {
		return false, err
	}
	count, err := r.executor.Count(ctx, r.table, types.Record{r.pkColumn(): idv})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *BaseRepository[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	if err := r.initialize(); err != nil {
		return nil, err
	}
	where, err := r.toRow(page.GetFilter())
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[T](page.GetPage(), page.GetPageSize())
	total, err := r.executor.Count(ctx, r.table, where)
	if err != nil || total == 0 {
		return pagination, err
	}
	rows, err := r.executor.SelectAll(ctx, r.table, r.columns(), where, &database.SelectOptions{
		Limit:     page.GetPageSize(),
		Offset:    page.GetOffset(),
		OrderBy:   r.orderColumn(page.GetOrderBy()),
		OrderDesc: page.OrderDesc(),
	})
	if err != nil {
		return nil, err
	}
	items := make([]*T, 0, len(rows))
	for _, row := range rows {
		entity, err := r.entityFromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, entity)
	}
	pagination.Total = total
	pagination.Items = items
	return pagination, nil
}

func (r *BaseRepository[T]) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := r.initialize(); err != nil {
		return err
	}
	return r.executor.RunInTransaction(ctx, fn)
}
