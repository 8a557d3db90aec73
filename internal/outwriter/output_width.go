package outwriter

import (
	"os"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/schema"
	"golang.org/x/term"
)

// getMaxTableIDWidth calculates the maximum width for repository ids in table output
// based on terminal width and table configuration.
func getMaxTableIDWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Rank + Category + Score + Label + Status with borders/padding
	baseWidth := 55

	if cfg.Explain {
		baseWidth += 35
	}
	if cfg.Algorithm == schema.ParetoRank {
		baseWidth += 8 // Front column
	}

	// Table borders, separators, and padding
	baseWidth += 20

	available := termWidth - baseWidth
	if available < 15 {
		return 15
	}
	if available > 60 {
		return 60
	}
	return available
}
