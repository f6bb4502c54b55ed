package viewer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// loop renders sess until ctx is cancelled. The first frame is drawn
// right away.
func (v *Viewer) loop(ctx context.Context, sess *session) {
	defer close(sess.done)

	v.renderFrame(sess)

	ticker := time.NewTicker(v.opts.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.renderFrame(sess)
		}
	}
}

func (v *Viewer) renderFrame(sess *session) {
	v.mu.Lock()
	if v.session != sess {
		v.mu.Unlock()
		return
	}
	sess.controls.Update()
	err := sess.surface.Render(sess.scene, sess.camera)
	if err == nil {
		atomic.AddUint64(&sess.frames, 1)
	}
	// only the first failure of a session is reported
	firstFailure := err != nil && !sess.renderFailed
	if err != nil {
		sess.renderFailed = true
	}
	v.mu.Unlock()

	v.opts.Metrics.RecordFrame(err)
	if firstFailure {
		v.report(errors.Wrapf(err, "session %s: render", sess.id))
	}
}
