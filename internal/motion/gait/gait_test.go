package gait

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hulks-go/motioncore/internal/motion"
)

func writeTempPresets(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gait.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPresets(t *testing.T) {
	Convey("Given a gait preset file with a forward kick", t, func() {
		path := writeTempPresets(t, `
walk_geometry:
  left_foot_base_offset_x: 0.0
  left_foot_base_offset_y: 0.05
  right_foot_base_offset_x: 0.0
  right_foot_base_offset_y: -0.05
  step_duration: 0.25
  foot_lift_apex: 0.02
  midpoint: 0.5
kicks:
  forward:
    - step_duration: 0.3
      foot_lift_apex: 0.03
      midpoint: 0.4
      base_step_forward: 0.0
      base_step_left: 0.0
      base_step_turn: 0.0
    - step_duration: 0.2
      foot_lift_apex: 0.05
      midpoint: 0.6
      base_step_forward: 0.08
      base_step_left: 0.0
      base_step_turn: 0.0
`)

		p, err := Load(path)
		So(err, ShouldBeNil)

		Convey("The walk geometry converts cleanly", func() {
			geom := p.WalkGeometry.ToGeometry()
			So(geom.StepDuration, ShouldEqual, 0.25)
			So(geom.LeftFootBaseOffset.Y, ShouldEqual, 0.05)
		})

		Convey("The kick library has two forward kick-steps", func() {
			lib := p.KickLibrary()
			So(len(lib[motion.KickForward]), ShouldEqual, 2)
			So(lib[motion.KickForward][1].BaseStep.Forward, ShouldEqual, 0.08)
		})
	})
}
