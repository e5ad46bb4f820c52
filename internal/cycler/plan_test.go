package cycler

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type recordingNode struct {
	name  string
	order *[]string
}

func (n *recordingNode) Cycle(tc *TickContext) error {
	*n.order = append(*n.order, n.name)
	return nil
}

func TestBuildPlanOrdering(t *testing.T) {
	Convey("When nodes declare Reads/Writes dependencies", t, func() {
		var order []string

		producer := NodeSpec{Name: "producer", Node: &recordingNode{name: "producer", order: &order}, Writes: []string{"x"}}
		consumer := NodeSpec{Name: "consumer", Node: &recordingNode{name: "consumer", order: &order}, Reads: []string{"x"}, Writes: []string{"y"}}
		independent := NodeSpec{Name: "independent", Node: &recordingNode{name: "independent", order: &order}}

		Convey("BuildPlan orders the consumer after its producer regardless of input order", func() {
			plan, err := BuildPlan(nil, []NodeSpec{consumer, producer, independent})
			So(err, ShouldBeNil)
			So(len(plan.Cycle), ShouldEqual, 3)

			producerIdx, consumerIdx := -1, -1
			for i, s := range plan.Cycle {
				if s.Name == "producer" {
					producerIdx = i
				}
				if s.Name == "consumer" {
					consumerIdx = i
				}
			}
			So(producerIdx, ShouldBeLessThan, consumerIdx)
		})

		Convey("A dependency cycle is rejected", func() {
			a := NodeSpec{Name: "a", Node: &recordingNode{name: "a", order: &order}, Reads: []string{"b_out"}, Writes: []string{"a_out"}}
			b := NodeSpec{Name: "b", Node: &recordingNode{name: "b", order: &order}, Reads: []string{"a_out"}, Writes: []string{"b_out"}}
			_, err := BuildPlan(nil, []NodeSpec{a, b})
			So(err, ShouldNotBeNil)
		})
	})
}
