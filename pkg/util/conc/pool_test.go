// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conc

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
)

func TestPool(t *testing.T) {
	pool := NewPool[any](4)
	defer pool.Release()

	taskNum := pool.Cap() * 2
	futures := make([]*Future[any], 0, taskNum)
	for i := 0; i < taskNum; i++ {
		res := i
		futures = append(futures, pool.Submit(func() (any, error) {
			return res, nil
		}))
	}

	assert.NoError(t, AwaitAll(futures...))
	for i, future := range futures {
		assert.True(t, future.Done())
		assert.Equal(t, i, future.Value().(int))
	}
}

func TestPoolPreHandler(t *testing.T) {
	var calls atomic.Int32
	pool := NewPool[int](1, WithPreAlloc(true), WithDisablePurge(true), WithPreHandler(func() {
		calls.Inc()
	}))
	defer pool.Release()

	for i := 0; i < 3; i++ {
		v, err := pool.Submit(func() (int, error) { return 1, nil }).Await()
		assert.NoError(t, err)
		assert.Equal(t, 1, v)
	}
	assert.EqualValues(t, 3, calls.Load())
}

func TestPoolOptions(t *testing.T) {
	opt := defaultPoolOption()
	assert.False(t, opt.preAlloc)
	assert.Nil(t, opt.preHandler)

	for _, o := range []PoolOption{WithPreAlloc(true), WithDisablePurge(true), WithConcealPanic(true), WithPreHandler(func() {})} {
		o(opt)
	}
	assert.True(t, opt.preAlloc)
	assert.True(t, opt.disablePurge)
	assert.True(t, opt.concealPanic)
	assert.NotNil(t, opt.preHandler)
	assert.Len(t, opt.antsOptions(), 3)
}

func TestPoolError(t *testing.T) {
	pool := NewPool[int](1)
	defer pool.Release()

	boom := errors.New("boom")
	future := pool.Submit(func() (int, error) { return 0, boom })
	assert.ErrorIs(t, future.Err(), boom)
}

func TestPoolConcealPanic(t *testing.T) {
	pool := NewPool[int](1, WithConcealPanic(true))
	defer pool.Release()

	future := pool.Submit(func() (int, error) { panic("oops") })
	_, err := future.Await()
	assert.Error(t, err)
}

func TestGo(t *testing.T) {
	future := Go(func() (string, error) { return "ok", nil })
	<-future.Inner()
	v, err := future.Await()
	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
}
