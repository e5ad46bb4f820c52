package atomicfloat

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFloat64(t *testing.T) {
	Convey("Given a Float64", t, func() {
		f := New(1.5)

		Convey("Load returns the initial value", func() {
			So(f.Load(), ShouldEqual, 1.5)
		})

		Convey("Store overwrites the value", func() {
			f.Store(-2.0)
			So(f.Load(), ShouldEqual, -2.0)
		})

		Convey("Add accumulates under concurrent writers", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					f.Add(1.0)
				}()
			}
			wg.Wait()
			So(f.Load(), ShouldEqual, 101.5)
		})

		Convey("CompareAndSwap only succeeds against the expected old value", func() {
			So(f.CompareAndSwap(1.5, 9.0), ShouldBeTrue)
			So(f.Load(), ShouldEqual, 9.0)
			So(f.CompareAndSwap(1.5, 3.0), ShouldBeFalse)
			So(f.Load(), ShouldEqual, 9.0)
		})
	})
}
