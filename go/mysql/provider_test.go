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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithConnection(t *testing.T) {
	s := newFakeServer(t)

	var beforeCalls, afterCalls, bodyCalls int
	var closedConn *Conn
	p := &Provider[string]{
		Params: *s.connParams(),
		Before: func(ctx context.Context, conn *Conn) (string, error) {
			beforeCalls++
			closedConn = conn
			return "lease-1", nil
		},
		After: func(ctx context.Context, val string, conn *Conn) {
			afterCalls++
			assert.Equal(t, "lease-1", val)
			assert.False(t, conn.IsClosed(), "After must run before the connection closes")
		},
	}

	err := WithConnection(context.Background(), p, func(conn *Conn) error {
		bodyCalls++
		return conn.Ping()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, beforeCalls)
	assert.Equal(t, 1, afterCalls)
	assert.Equal(t, 1, bodyCalls)
	assert.True(t, closedConn.IsClosed(), "connection must be closed on exit")
}

func TestWithConnectionBodyError(t *testing.T) {
	s := newFakeServer(t)

	var beforeCalls, afterCalls int
	var conn *Conn
	p := &Provider[int]{
		Params: *s.connParams(),
		Before: func(ctx context.Context, c *Conn) (int, error) {
			beforeCalls++
			conn = c
			return 9, nil
		},
		After: func(ctx context.Context, val int, c *Conn) {
			afterCalls++
			assert.Equal(t, 9, val)
		},
	}

	bodyErr := fmt.Errorf("body exploded")
	err := WithConnection(context.Background(), p, func(conn *Conn) error {
		return bodyErr
	})
	require.ErrorIs(t, err, bodyErr)
	assert.Equal(t, 1, beforeCalls)
	assert.Equal(t, 1, afterCalls, "After runs exactly once even when the body fails")
	assert.True(t, conn.IsClosed())
}

func TestWithConnectionBeforeError(t *testing.T) {
	s := newFakeServer(t)

	var conn *Conn
	var afterCalls, bodyCalls int
	beforeErr := fmt.Errorf("lease denied")
	p := &Provider[struct{}]{
		Params: *s.connParams(),
		Before: func(ctx context.Context, c *Conn) (struct{}, error) {
			conn = c
			return struct{}{}, beforeErr
		},
		After: func(ctx context.Context, val struct{}, c *Conn) {
			afterCalls++
		},
	}

	err := WithConnection(context.Background(), p, func(conn *Conn) error {
		bodyCalls++
		return nil
	})
	require.ErrorIs(t, err, beforeErr)
	assert.Zero(t, bodyCalls, "body must not run when Before fails")
	assert.Zero(t, afterCalls, "After must not run when Before fails")
	assert.True(t, conn.IsClosed())
}

func TestWithConnectionConnectError(t *testing.T) {
	var hookCalls int
	p := &Provider[struct{}]{
		Params: ConnParams{Host: "127.0.0.1", Port: 1}, // nothing listens here
		Before: func(ctx context.Context, c *Conn) (struct{}, error) {
			hookCalls++
			return struct{}{}, nil
		},
		After: func(ctx context.Context, val struct{}, c *Conn) {
			hookCalls++
		},
	}

	err := WithConnection(context.Background(), p, func(conn *Conn) error {
		hookCalls++
		return nil
	})
	require.Error(t, err)
	assert.Zero(t, hookCalls, "nothing runs when the dial fails")
}

func TestWithConnectionNoHooks(t *testing.T) {
	s := newFakeServer(t)

	p := NewProvider[struct{}](*s.connParams())
	err := WithConnection(context.Background(), p, func(conn *Conn) error {
		return conn.Ping()
	})
	require.NoError(t, err)
}
