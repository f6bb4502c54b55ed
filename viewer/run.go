package viewer

import (
	"context"
	"io"
)

func (ro RunOptions) viewer() *Viewer {
	return New(ro.Container, ro.Options)
}

// RunFromJSON creates a viewer and loads document into it. The viewer is
// returned even when the load fails.
func RunFromJSON(document interface{}, opts RunOptions) (*Viewer, error) {
	v := opts.viewer()
	return v, v.LoadFromJSON(document)
}

func RunFromFile(ctx context.Context, location string, opts RunOptions) (*Viewer, error) {
	v := opts.viewer()
	return v, v.LoadFromFile(ctx, location)
}

func RunFromFileObject(ctx context.Context, r io.Reader, opts RunOptions) (*Viewer, error) {
	v := opts.viewer()
	return v, v.LoadFromFileObject(ctx, r)
}
