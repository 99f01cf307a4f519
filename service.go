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

package magpie

import (
	"context"
	"sync"

	"github.com/magpie-io/magpie/repository"
	"github.com/magpie-io/magpie/types"
)

// Service is the application-service facade over a generic repository. It is
// created from an entity name alone; the repository underneath resolves that
// name against the metadata registry on first use. A transaction opened with
// Transaction propagates ambiently: every Service or repository call inside
// the body joins it without extra parameters.
type Service[T any] interface {
	// Get returns a single entity by its identifier, or nil when absent.
	Get(ctx context.Context, id any) (*T, error)

	// All returns entities with optional ordering and bounds.
	All(ctx context.Context, opts *repository.FindOptions) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts a new entity and returns it rebuilt from the stored row.
	Save(ctx context.Context, model *T) (*T, error)

	// Update applies a partial patch to the entity with the given identifier
	// and returns the updated entity, or nil when no row matched.
	Update(ctx context.Context, id any, patch types.Record) (*T, error)

	// Delete removes an entity by its identifier, reporting whether a row
	// was actually removed.
	Delete(ctx context.Context, id any) (bool, error)

	// Count returns the number of entities matching the equality filter.
	Count(ctx context.Context, filter types.Record) (int, error)

	// Exists reports whether an entity with the given identifier exists.
	Exists(ctx context.Context, id any) (bool, error)

	// Transaction runs fn inside a relational transaction shared by every
	// repository call beneath it.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type baseServiceImpl[T any] struct {
	entity string
	opts   []repository.Option[T]
	repo   repository.Repository[T]
	once   sync.Once
}

// NewService returns a default Service implementation for the named entity,
// using the generic repository backed by the global database connection.
func NewService[T any](entity string, opts ...repository.Option[T]) Service[T] {
	return &baseServiceImpl[T]{entity: entity, opts: opts}
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	s.once.Do(func() { s.repo = repository.NewRepository[T](s.entity, s.opts...) })
	return s.repo
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.baseRepo().FindByID(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context, opts *repository.FindOptions) ([]*T, error) {
	return s.baseRepo().FindAll(ctx, opts)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.baseRepo().Page(ctx, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model *T) (*T, error) {
	return s.baseRepo().Create(ctx, model)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, id any, patch types.Record) (*T, error) {
	return s.baseRepo().Update(ctx, id, patch)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) (bool, error) {
	return s.baseRepo().Delete(ctx, id)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter types.Record) (int, error) {
	return s.baseRepo().Count(ctx, filter)
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, id any) (bool, error) {
	return s.baseRepo().Exists(ctx, id)
}

func (s *baseServiceImpl[T]) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.baseRepo().Transaction(ctx, fn)
}
