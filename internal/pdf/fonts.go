package pdf

import _ "embed"

// DejaVu Sans covers Latin, Greek and Cyrillic; see fonts/LICENSE.
var (
	//go:embed fonts/DejaVuSans.ttf
	dejaVuSans []byte
	//go:embed fonts/DejaVuSans-Bold.ttf
	dejaVuSansBold []byte
)
