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

	"github.com/magpie-io/magpie/database"
	"github.com/magpie-io/magpie/metadata"
	"github.com/magpie-io/magpie/types"
)

// FindOptions bound and order a FindAll scan. There is no implicit limit.
// OrderBy names an attribute; translation to the column name is automatic.
type FindOptions struct {
	Limit     int
	Offset    int
	OrderBy   string
	OrderDesc bool
}

// ReadRepository defines lookup operations for a generic entity type.
// Lookups on missing rows return typed absence, never an error.
type ReadRepository[T any] interface {
	FindByID(ctx context.Context, id any) (*T, error)

	FindAll(ctx context.Context, opts *FindOptions) ([]*T, error)

	Count(ctx context.Context, filter types.Record) (int, error)

	Exists(ctx context.Context, id any) (bool, error)
}

// WriteRepository defines mutation operations for a generic entity type.
type WriteRepository[T any] interface {
	// Create maps the entity to a storage row, inserts it, and returns the
	// domain object rebuilt from the stored row so server-computed defaults
	// are reflected.
	Create(ctx context.Context, entity *T) (*T, error)

	// Update sends only the attributes present in patch to storage and
	// returns the updated entity, or nil when no row matched id.
	Update(ctx context.Context, id any, patch types.Record) (*T, error)

	// Delete reports whether a row was actually removed.
	Delete(ctx context.Context, id any) (bool, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// TransactionRepository runs a body inside a relational transaction whose
// handle propagates ambiently: every repository call inside fn joins it
// without extra parameters.
type TransactionRepository interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repository combines lookup, mutation, pagination, and transactional
// operations for one named entity type.
type Repository[T any] interface {
	ReadRepository[T]
	WriteRepository[T]
	PageQueryRepository[T]
	TransactionRepository
}

// Option configures a BaseRepository at construction time.
type Option[T any] func(*BaseRepository[T])

// WithExecutor sets the relational query executor. Defaults to an executor
// over the globally initialized database.
func WithExecutor[T any](exec database.Executor) Option[T] {
	return func(r *BaseRepository[T]) { r.executor = exec }
}

// WithRegistry sets the metadata registry consulted at initialization.
// Defaults to the process-wide registry.
func WithRegistry[T any](reg *metadata.Registry) Option[T] {
	return func(r *BaseRepository[T]) { r.registry = reg }
}

// WithFallbackTable names the table used when the entity has no registered
// metadata. Without it, missing metadata is a configuration error on first use.
func WithFallbackTable[T any](table string) Option[T] {
	return func(r *BaseRepository[T]) { r.fallbackTable = table }
}

// WithConstructor sets the zero-argument factory producing blank domain
// objects. Defaults to new(T).
func WithConstructor[T any](fn func() *T) Option[T] {
	return func(r *BaseRepository[T]) { r.constructor = fn }
}

// WithLogger sets the repository logger.
func WithLogger[T any](logger database.Logger) Option[T] {
	return func(r *BaseRepository[T]) { r.logger = logger }
}
