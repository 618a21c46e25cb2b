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

package log

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Listener receives a copy of every context-carrying log call. Listeners
// must not block; slow consumers should buffer internally.
type Listener interface {
	Listen(ctx context.Context, level, format string, args ...interface{})
}

var (
	listenersMu sync.RWMutex
	listeners   []Listener
)

// Subscribe registers a Listener for all *C logging calls.
func Subscribe(l Listener) {
	listenersMu.Lock()
	defer listenersMu.Unlock()
	listeners = append(listeners, l)
}

func notify(ctx context.Context, level, format string, args ...interface{}) {
	listenersMu.RLock()
	defer listenersMu.RUnlock()
	for _, l := range listeners {
		l.Listen(ctx, level, format, args...)
	}
}

// InfofC logs at the Info level and forwards the call, with its context,
// to all subscribed listeners.
func InfofC(ctx context.Context, format string, args ...interface{}) {
	notify(ctx, "info", format, args...)
	glog.InfoDepthf(1, format, args...)
}

// WarningfC logs at the Warning level and forwards the call, with its
// context, to all subscribed listeners.
func WarningfC(ctx context.Context, format string, args ...interface{}) {
	notify(ctx, "warning", format, args...)
	glog.WarningDepthf(1, format, args...)
}

// ErrorfC logs at the Error level and forwards the call, with its context,
// to all subscribed listeners.
func ErrorfC(ctx context.Context, format string, args ...interface{}) {
	notify(ctx, "error", format, args...)
	glog.ErrorDepthf(1, format, args...)
}
