package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterMarkersAreDistinct(t *testing.T) {
	out := CaptureOutput(func(p *Printer) {
		p.Success("run finished")
		p.Failure("run failed")
		p.Skip("folder missing")
	})

	assert.Contains(t, out, MarkerSuccess+" run finished")
	assert.Contains(t, out, MarkerFailure+" run failed")
	assert.Contains(t, out, MarkerSkip+" folder missing")

	// No marker doubles as another
	assert.NotEqual(t, MarkerSuccess, MarkerFailure)
	assert.NotEqual(t, MarkerFailure, MarkerSkip)
	assert.NotEqual(t, MarkerSuccess, MarkerSkip)
}

func TestPrinterPlainLines(t *testing.T) {
	buffer := NewCaptureBuffer()
	p := NewPrinter(WithWriter(buffer), Plain())

	p.Printf("[%d/%d] %s\n", 1, 3, "qwen2.5:7b")
	p.Println("All 3 experiments finished")

	lines := buffer.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "[1/3] qwen2.5:7b", lines[0])
	assert.Equal(t, "All 3 experiments finished", lines[1])
}

func TestCaptureBuffer(t *testing.T) {
	buffer := NewCaptureBuffer()

	_, err := buffer.Write([]byte("one\ntwo\n"))
	require.NoError(t, err)

	assert.True(t, buffer.Contains("two"))
	assert.Equal(t, 2, buffer.CountOccurrences("o"))
	assert.Equal(t, []string{"one", "two"}, buffer.Lines())

	buffer.Reset()
	assert.Equal(t, "", buffer.String())
	assert.Empty(t, buffer.Lines())
}
