package util_test

import (
	"testing"

	"github.com/jmehdipour/customers-api/internal/util"
	"github.com/oklog/ulid/v2"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewID(t *testing.T) {
	Convey("Given a burst of generated ids", t, func() {
		ids := make([]string, 0, 100)
		for i := 0; i < 100; i++ {
			ids = append(ids, util.NewID())
		}

		Convey("Then each is a valid ULID", func() {
			for _, id := range ids {
				_, err := ulid.Parse(id)
				So(err, ShouldBeNil)
			}
		})

		Convey("Then they sort in generation order", func() {
			for i := 1; i < len(ids); i++ {
				So(ids[i] > ids[i-1], ShouldBeTrue)
			}
		})
	})
}
