package audiosession

import (
	"fmt"
	"runtime"

	"github.com/lk2023060901/mixdeck-go/pkg/util/conc"
	"github.com/lk2023060901/mixdeck-go/pkg/util/merr"
)

// apartment 是一个只有一个 worker 的协程池，worker 锁定在固定的系统线程上。
// 混音器后端的初始化、全部阻塞调用以及反初始化都在这个线程上执行，
// 满足 COM 单线程套间对线程亲和性的要求。
type apartment struct {
	pool *conc.Pool[any]
}

func newApartment() *apartment {
	return &apartment{
		pool: conc.NewPool[any](1,
			conc.WithPreAlloc(true),
			conc.WithDisablePurge(true),
			conc.WithPreHandler(runtime.LockOSThread),
		),
	}
}

// run 在套间线程上同步执行 fn。fn 中的 panic 被转换为错误，worker 不会退出。
func (a *apartment) run(fn func() error) error {
	_, err := a.pool.Submit(func() (_ any, err error) {
		defer func() {
			if x := recover(); x != nil {
				err = merr.WrapErrServiceInternal(fmt.Sprint(x), "apartment task panicked")
			}
		}()
		return nil, fn()
	}).Await()
	return err
}

func (a *apartment) release() {
	a.pool.Release()
}

func call[T any](a *apartment, fn func() (T, error)) (T, error) {
	var out T
	err := a.run(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}
