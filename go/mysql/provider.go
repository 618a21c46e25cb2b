/*
Copyright 2019 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mysql

import (
	"context"
)

// Provider dials connections from a fixed ConnParams and brackets
// their use with optional hooks. Before runs right after a successful
// connect and may produce a per-connection value of type T (a session
// token, a lease, a tracing span). After receives that value once the
// connection is done, whether the body succeeded or not.
type Provider[T any] struct {
	Params ConnParams

	// Before runs exactly once per acquired connection, before the
	// body. A non-nil error aborts the acquisition and closes the
	// connection without running the body or After.
	Before func(ctx context.Context, conn *Conn) (T, error)

	// After runs exactly once per connection on which Before
	// succeeded, after the body returns, before the connection is
	// closed.
	After func(ctx context.Context, val T, conn *Conn)
}

// NewProvider returns a Provider with no hooks.
func NewProvider[T any](params ConnParams) *Provider[T] {
	return &Provider[T]{Params: params}
}

// WithConnection dials a connection from the provider's params, runs
// the hooks around body, and closes the connection on every exit
// path. The body's error is returned unless connecting or Before
// failed first.
func WithConnection[T any](ctx context.Context, p *Provider[T], body func(conn *Conn) error) error {
	params := p.Params
	conn, err := Connect(ctx, &params)
	if err != nil {
		return err
	}
	defer conn.Close()

	var val T
	if p.Before != nil {
		val, err = p.Before(ctx, conn)
		if err != nil {
			return err
		}
	}
	if p.After != nil {
		defer p.After(ctx, val, conn)
	}
	return body(conn)
}
