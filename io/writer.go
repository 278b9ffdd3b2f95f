package io

import (
	"fmt"
	"os"
)

// SequenceWriter buffers the frames of a single sequence in memory and writes
// them out as one stacked .npy array with shape (frames, *frame shape) when it
// is closed.
//
// The file is written to a temporary name and renamed into place, so a path
// either holds a complete sequence or nothing.
type SequenceWriter struct {
	path   string
	frames []*Array
}

// NewSequenceWriter returns a closed writer.
func NewSequenceWriter() *SequenceWriter { return &SequenceWriter{} }

// Open starts a new sequence which will be written to path. Any sequence which
// was already open is closed first.
func (w *SequenceWriter) Open(path string) error {
	if path == "" {
		return fmt.Errorf("empty sequence path")
	}
	if err := w.Close(); err != nil {
		return err
	}
	w.path = path
	return nil
}

// IsOpen returns true if the writer has somewhere to write frames.
func (w *SequenceWriter) IsOpen() bool { return w.path != "" }

// Frames returns the number of frames buffered since the last Open.
func (w *SequenceWriter) Frames() int { return len(w.frames) }

// Path returns the target of the open sequence.
func (w *SequenceWriter) Path() string { return w.path }

// Write appends a copy of frame to the sequence. Every frame in a sequence
// must have the same shape and type.
func (w *SequenceWriter) Write(frame *Array) error {
	if !w.IsOpen() {
		return fmt.Errorf("write to a closed SequenceWriter")
	}
	if err := frame.check(); err != nil {
		return err
	}
	if len(w.frames) > 0 && !w.frames[0].SameLayout(frame) {
		first := w.frames[0]
		return fmt.Errorf(
			"frame %d of %s has layout %s%v, but frame 0 has %s%v",
			len(w.frames), w.path, frame.Type, frame.Shape,
			first.Type, first.Shape,
		)
	}

	w.frames = append(w.frames, frame.Copy())
	return nil
}

// Close stacks the buffered frames and writes them to disk. Closing a writer
// which is already closed, or which has no frames, does nothing.
func (w *SequenceWriter) Close() error {
	if !w.IsOpen() {
		return nil
	}
	path, frames := w.path, w.frames
	w.path, w.frames = "", nil

	if len(frames) == 0 {
		return nil
	}

	seq, err := Stack(frames)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := WriteNpyFile(tmp, seq); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
