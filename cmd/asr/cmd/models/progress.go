package models

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// BarProgress draws one bar per transferred file
type BarProgress struct {
	container *mpb.Progress
}

// NewBarProgress renders transfers into container
func NewBarProgress(container *mpb.Progress) *BarProgress {
	return &BarProgress{container: container}
}

// Track wraps r so reads advance a new bar. A size <= 0 means the length is unknown.
func (p *BarProgress) Track(file string, size int64, r io.Reader) io.Reader {
	if size < 0 {
		size = 0
	}
	bar := p.container.AddBar(size,
		mpb.PrependDecorators(
			decor.Name(file+" ", decor.WC{W: len(file) + 1, C: decor.DindentRight}),
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.NewPercentage("%.1f", decor.WCSyncSpace), " ✓"),
			decor.AverageSpeed(decor.SizeB1024(0), "% .1f", decor.WCSyncSpace),
		),
	)
	return &barReader{r: bar.ProxyReader(r), bar: bar}
}

// barReader settles the bar when the body ends, whether or not its size was known
type barReader struct {
	r   io.Reader
	bar *mpb.Bar
}

func (b *barReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	switch {
	case err == io.EOF:
		b.bar.SetTotal(-1, true)
	case err != nil:
		b.bar.Abort(true)
	}
	return n, err
}
