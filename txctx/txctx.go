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

// Package txctx propagates the currently active transaction handle down a
// call chain without explicit parameter passing. Handles ride on
// context.Context, Go's per-logical-task ambient store, as a LIFO stack:
// the innermost active handle is authoritative, two concurrent requests
// never observe each other's handles, and a scope's handle is released on
// every exit path because the derived context simply goes out of scope.
package txctx

import "context"

type ctxKey struct{}

type frame struct {
	handle any
	parent *frame
}

// With returns a child context with handle pushed as the innermost active
// transaction handle.
func With(ctx context.Context, handle any) context.Context {
	parent, _ := ctx.Value(ctxKey{}).(*frame)
	return context.WithValue(ctx, ctxKey{}, &frame{handle: handle, parent: parent})
}

// Active returns the innermost active handle, or false when no transaction
// scope is open.
func Active(ctx context.Context) (any, bool) {
	f, ok := ctx.Value(ctxKey{}).(*frame)
	if !ok || f == nil {
		return nil, false
	}
	return f.handle, true
}

// HasActive reports whether a transaction scope is open on ctx.
func HasActive(ctx context.Context) bool {
	_, ok := Active(ctx)
	return ok
}

// Depth returns the number of nested transaction scopes on ctx.
func Depth(ctx context.Context) int {
	f, _ := ctx.Value(ctxKey{}).(*frame)
	n := 0
	for ; f != nil; f = f.parent {
		n++
	}
	return n
}

// Run invokes body with handle pushed onto the context stack. The handle is
// scoped to the call: whether body returns normally, returns an error, or
// panics, the caller's context is untouched afterwards.
func Run(ctx context.Context, handle any, body func(ctx context.Context) error) error {
	return body(With(ctx, handle))
}
