// Package testutil holds helpers shared by tests. Importing it silences
// logrus unless the test binary runs verbose.
package testutil

import (
	"io"
	"os"
	"slices"

	"github.com/sirupsen/logrus"
)

func init() {
	logrus.SetLevel(logrus.TraceLevel)

	if !slices.Contains(os.Args, "-test.v=true") {
		logrus.SetOutput(io.Discard)
	}
}
