//go:build statsview

package statsview

import (
	"fmt"
	"io"

	echartsview "github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Address is where the dashboard listens.
const Address = "localhost:12600"

const path = "/debug/statsview"

// Launch starts the dashboard in the background and writes a confirmation
// line to output once it's listening.
func Launch(output io.Writer) {
	viewer.SetConfiguration(viewer.WithAddr(Address), viewer.WithPattern(path))
	go echartsview.New().Start()
	fmt.Fprintf(output, "statsview dashboard: http://%s%s\n", Address, path)
}

// Available reports whether this build was compiled with the statsview tag.
func Available() bool { return true }
