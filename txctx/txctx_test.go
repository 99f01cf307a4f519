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

package txctx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoActiveHandleByDefault(t *testing.T) {
	ctx := context.Background()
	_, ok := Active(ctx)
	assert.False(t, ok)
	assert.False(t, HasActive(ctx))
	assert.Equal(t, 0, Depth(ctx))
}

func TestNestedScopes(t *testing.T) {
	ctx := context.Background()
	h1, h2 := "outer", "inner"

	err := Run(ctx, h1, func(ctx context.Context) error {
		got, ok := Active(ctx)
		require.True(t, ok)
		require.Equal(t, h1, got)
		require.Equal(t, 1, Depth(ctx))

		err := Run(ctx, h2, func(ctx context.Context) error {
			got, ok := Active(ctx)
			require.True(t, ok)
			require.Equal(t, h2, got)
			require.Equal(t, 2, Depth(ctx))
			return nil
		})
		require.NoError(t, err)

		// Inner scope gone, outer handle authoritative again.
		got, ok = Active(ctx)
		require.True(t, ok)
		require.Equal(t, h1, got)
		return nil
	})
	require.NoError(t, err)

	_, ok := Active(ctx)
	assert.False(t, ok)
}

func TestScopeReleasedOnError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := Run(ctx, "outer", func(outer context.Context) error {
		inner := Run(outer, "inner", func(ctx context.Context) error {
			return boom
		})
		require.ErrorIs(t, inner, boom)

		got, ok := Active(outer)
		require.True(t, ok)
		require.Equal(t, "outer", got)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, HasActive(ctx))
}

func TestScopeReleasedOnPanic(t *testing.T) {
	ctx := With(context.Background(), "outer")

	func() {
		defer func() { _ = recover() }()
		_ = Run(ctx, "inner", func(context.Context) error {
			panic("bang")
		})
	}()

	got, ok := Active(ctx)
	require.True(t, ok)
	assert.Equal(t, "outer", got)
}

func TestConcurrentScopesAreIsolated(t *testing.T) {
	base := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		handle := i
		go func() {
			defer wg.Done()
			_ = Run(base, handle, func(ctx context.Context) error {
				got, ok := Active(ctx)
				assert.True(t, ok)
				assert.Equal(t, handle, got)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.False(t, HasActive(base))
}
