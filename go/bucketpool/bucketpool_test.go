/*
Copyright 2019 The Vitess Authors

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

package bucketpool

import (
	"math/rand"
	"testing"
)

func checkBuf(t *testing.T, buf *[]byte, wantLen, wantCap int) {
	t.Helper()
	if len(*buf) != wantLen {
		t.Fatalf("unexpected buf length: %d, expected %d", len(*buf), wantLen)
	}
	if cap(*buf) != wantCap {
		t.Fatalf("unexpected buf cap: %d, expected %d", cap(*buf), wantCap)
	}
}

func TestPool(t *testing.T) {
	maxSize := 16384
	pool := New(1024, maxSize)
	if pool.maxSize != maxSize {
		t.Fatalf("invalid max pool size: %d, expected %d", pool.maxSize, maxSize)
	}
	if len(pool.pools) != 5 {
		t.Fatalf("invalid number of pools: %d, expected %d", len(pool.pools), 5)
	}

	// Both sizes land in the smallest bucket.
	buf := pool.Get(64)
	checkBuf(t, buf, 64, 1024)
	buf = pool.Get(128)
	checkBuf(t, buf, 128, 1024)
	pool.Put(buf)

	// Exactly on a bucket boundary.
	buf = pool.Get(1024)
	checkBuf(t, buf, 1024, 1024)
	pool.Put(buf)

	// A middle bucket.
	buf = pool.Get(5000)
	checkBuf(t, buf, 5000, 8192)
	pool.Put(buf)

	// The last bucket.
	buf = pool.Get(16383)
	checkBuf(t, buf, 16383, 16384)
	pool.Put(buf)

	// Bigger than any bucket: allocated exactly, still accepted back.
	buf = pool.Get(16385)
	checkBuf(t, buf, 16385, 16385)
	pool.Put(buf)
}

func TestPoolOneSize(t *testing.T) {
	pool := New(1024, 1024)
	buf := pool.Get(64)
	checkBuf(t, buf, 64, 1024)
	pool.Put(buf)

	buf = pool.Get(1025)
	checkBuf(t, buf, 1025, 1025)
	pool.Put(buf)
}

func TestPoolTwoSizeNotMultiplier(t *testing.T) {
	pool := New(1024, 2000)
	buf := pool.Get(64)
	checkBuf(t, buf, 64, 1024)
	pool.Put(buf)

	buf = pool.Get(2001)
	checkBuf(t, buf, 2001, 2001)
	pool.Put(buf)
}

func TestPoolWeirdMaxSize(t *testing.T) {
	// The max size is not a power-of-two multiple of the min size, so
	// the last bucket is capped at exactly maxSize.
	pool := New(1024, 15000)
	buf := pool.Get(14000)
	checkBuf(t, buf, 14000, 15000)
	pool.Put(buf)

	buf = pool.Get(16383)
	checkBuf(t, buf, 16383, 16383)
	pool.Put(buf)
}

func TestRandomSizes(t *testing.T) {
	maxTestSize := 16384
	for i := 0; i < 20000; i++ {
		minSize := rand.Intn(maxTestSize)
		maxSize := rand.Intn(maxTestSize-minSize) + minSize
		p := New(minSize, maxSize)
		bufSize := rand.Intn(maxTestSize)
		buf := p.Get(bufSize)
		if len(*buf) != bufSize {
			t.Fatalf("invalid length %d, expected %d", len(*buf), bufSize)
		}
		sPool := p.findPool(bufSize)
		if sPool == nil {
			checkBuf(t, buf, bufSize, len(*buf))
		} else {
			checkBuf(t, buf, bufSize, sPool.size)
		}
		p.Put(buf)
	}
}

func BenchmarkPool(b *testing.B) {
	pool := New(2, 16384)
	b.SetParallelism(16)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			randomSize := rand.Intn(pool.maxSize)
			data := pool.Get(randomSize)
			pool.Put(data)
		}
	})
}

func BenchmarkPoolGet(b *testing.B) {
	pool := New(2, 16384)
	b.SetParallelism(16)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			randomSize := rand.Intn(pool.maxSize)
			data := pool.Get(randomSize)
			_ = data
		}
	})
}
