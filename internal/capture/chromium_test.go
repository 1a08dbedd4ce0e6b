package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatPDF, FormatFromPath("out/calendar.PDF"))
	assert.Equal(t, FormatPNG, FormatFromPath("out/calendar.png"))
	assert.Equal(t, FormatPNG, FormatFromPath("calendar"))
}

func TestCalendarValidatesOptions(t *testing.T) {
	ctx := context.Background()
	assert.ErrorContains(t, Calendar(ctx, Options{OutputPath: "x.png"}), "URL is required")
	assert.ErrorContains(t, Calendar(ctx, Options{URL: "http://127.0.0.1/calendar"}), "OutputPath is required")
	assert.ErrorContains(t, Calendar(ctx, Options{
		URL:        "http://127.0.0.1/calendar",
		OutputPath: "x.bin",
		Format:     "gif",
	}), "unsupported format")
}
