package handler

import (
	"bytes"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"ppemonitor/internal/capture"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/service/stream"
)

// idleFrameAfter is how long a viewer waits for a frame before it is sent a
// blank one to keep the connection alive.
const idleFrameAfter = 5 * time.Second

var blankJPEG = sync.OnceValue(func() []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, capture.BlankFrame(), &jpeg.Options{Quality: 75})
	return buf.Bytes()
})

// VideoFeedHandler handles GET /video_feed as an MJPEG stream of annotated
// frames.
func VideoFeedHandler(broadcaster *stream.Broadcaster, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		id, frames := broadcaster.Subscribe()
		defer broadcaster.Unsubscribe(id)

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache")

		logger.Info("Stream viewer %s connected", id)
		defer logger.Info("Stream viewer %s disconnected", id)

		timer := time.NewTimer(idleFrameAfter)
		defer timer.Stop()

		for {
			var frame []byte
			select {
			case <-r.Context().Done():
				return
			case data, ok := <-frames:
				if !ok {
					return
				}
				frame = data
			case <-timer.C:
				frame = blankJPEG()
			}
			timer.Reset(idleFrameAfter)

			if err := writePart(w, frame); err != nil {
				logger.Debug("Stream viewer %s write failed: %v", id, err)
				return
			}
			flusher.Flush()
		}
	}
}

func writePart(w http.ResponseWriter, frame []byte) error {
	if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
