package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestChannelFreshness(t *testing.T) {
	Convey("Given a buffered-watch channel with one consumer", t, func() {
		ch := New[int](DefaultSlots, 1)

		Convey("a read immediately following a commit sees exactly that value", func() {
			w, err := ch.Write()
			So(err, ShouldBeNil)
			*w.Value() = 42
			w.Release()

			got, age := ch.Latest()
			So(got, ShouldEqual, 42)
			So(age, ShouldEqual, 1)
		})

		Convey("successive commits are monotonically aged", func() {
			for i := 1; i <= 5; i++ {
				w, _ := ch.Write()
				*w.Value() = i
				w.Release()
			}
			got, age := ch.Latest()
			So(got, ShouldEqual, 5)
			So(age, ShouldEqual, 5)
		})

		Convey("a reader holding a guard does not block the writer", func() {
			w, _ := ch.Write()
			*w.Value() = 1
			w.Release()

			r := ch.Read()
			defer r.Release()

			w2, err := ch.Write()
			So(err, ShouldBeNil)
			*w2.Value() = 2
			w2.Release()

			// the held read guard still observes its original value
			So(r.Value(), ShouldEqual, 1)
		})
	})
}

func TestChannelAwaitChange(t *testing.T) {
	Convey("Given a channel with a pending consumer", t, func() {
		ch := New[int](DefaultSlots, 1)

		Convey("AwaitChange unblocks when a new value commits", func() {
			_, startAge := ch.Latest()

			done := make(chan struct{})
			var got int
			var gotAge uint64
			go func() {
				got, gotAge, _ = ch.AwaitChange(context.Background(), startAge)
				close(done)
			}()

			time.Sleep(10 * time.Millisecond)
			w, _ := ch.Write()
			*w.Value() = 7
			w.Release()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("AwaitChange never returned")
			}

			So(got, ShouldEqual, 7)
			So(gotAge, ShouldBeGreaterThan, startAge)
		})

		Convey("AwaitChange returns ErrNoSender once the sender closes", func() {
			_, startAge := ch.Latest()
			ch.Close()

			_, _, err := ch.AwaitChange(context.Background(), startAge)
			So(err, ShouldEqual, ErrNoSender)
		})

		Convey("AwaitChange respects context cancellation", func() {
			_, startAge := ch.Latest()
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, _, err := ch.AwaitChange(ctx, startAge)
			So(err, ShouldEqual, context.Canceled)
		})
	})
}

func TestChannelConcurrency(t *testing.T) {
	Convey("Given many concurrent readers and one writer", t, func() {
		ch := New[int](8, 6)

		var wg sync.WaitGroup
		stop := make(chan struct{})
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
						g := ch.Read()
						_ = g.Value()
						g.Release()
					}
				}
			}()
		}

		Convey("the writer commits without blocking", func() {
			for i := 0; i < 1000; i++ {
				w, err := ch.Write()
				So(err, ShouldBeNil)
				*w.Value() = i
				w.Release()
			}
			close(stop)
			wg.Wait()

			got, _ := ch.Latest()
			So(got, ShouldEqual, 999)
		})
	})
}
