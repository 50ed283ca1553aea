package cli

import (
	"github.com/schollz/progressbar/v3"
)

// NewFilingProgressBar builds the terminal progress bar used while the
// filing stage walks its validate/package/sign/transmit/confirm steps.
func NewFilingProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Filing return"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
