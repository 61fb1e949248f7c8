package logger

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	Convey("Given level names from config or flags", t, func() {
		So(ParseLevel("debug"), ShouldEqual, zap.DebugLevel)
		So(ParseLevel(" WARN "), ShouldEqual, zap.WarnLevel)
		So(ParseLevel("error"), ShouldEqual, zap.ErrorLevel)
		So(ParseLevel("verbose"), ShouldEqual, zap.InfoLevel)
	})

	Convey("Given Init with a level", t, func() {
		Init("error")
		So(Level(), ShouldEqual, zap.ErrorLevel)
		So(Log.Core().Enabled(zap.WarnLevel), ShouldBeFalse)
		Init("info")
	})
}
