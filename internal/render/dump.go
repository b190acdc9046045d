package render

import (
	"encoding/json"
	"fmt"

	"github.com/malei-pku/exposure-render/internal/buffer"
)

// Dump is the JSON form of a buffer.
type Dump[T Element] struct {
	Name    string `json:"name"`
	Space   string `json:"space"`
	Element string `json:"element"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Dirty   bool   `json:"dirty"`
	Rows    [][]T  `json:"rows"`
}

// NewDump captures the state and contents of b.
func NewDump[T Element](b *buffer.Buffer2D[T]) (*Dump[T], error) {
	values, err := b.Snapshot()
	if err != nil {
		return nil, err
	}

	var zero T
	res := b.Resolution()
	d := &Dump[T]{
		Name:    b.Name(),
		Space:   b.MemorySpace().String(),
		Element: fmt.Sprintf("%T", zero),
		Width:   res.Width,
		Height:  res.Height,
		Dirty:   b.Dirty(),
		Rows:    [][]T{},
	}
	if len(values) == 0 {
		return d, nil
	}
	for y := 0; y < res.Height; y++ {
		d.Rows = append(d.Rows, values[y*res.Width:(y+1)*res.Width])
	}
	return d, nil
}

// DumpJSON renders b as indented JSON, highlighted when opts.Color is set.
func DumpJSON[T Element](b *buffer.Buffer2D[T], opts Options) (string, error) {
	d, err := NewDump(b)
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", b.Name(), err)
	}
	if !opts.Color {
		return string(out), nil
	}
	return Highlight(string(out), "json", opts.Style), nil
}
