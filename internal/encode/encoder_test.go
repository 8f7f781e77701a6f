package encode

import (
	"context"
	"testing"
)

func TestAvailableMissingBinary(t *testing.T) {
	e := NewSlideshowEncoder("clearly-not-a-real-encoder-binary")
	if e.Available() {
		t.Error("Available() = true for a missing binary")
	}
}

func TestAvailableEmptyCommand(t *testing.T) {
	e := NewSlideshowEncoder("")
	if e.Available() {
		t.Error("Available() = true for an empty command")
	}
}

func TestEncodeRejectsEmptyScenes(t *testing.T) {
	e := NewSlideshowEncoder("ffmpeg")
	if _, err := e.Encode(context.Background(), nil, 10); err == nil {
		t.Error("Encode with no scenes did not fail")
	}
}

func TestEncodeMissingBinaryFails(t *testing.T) {
	e := NewSlideshowEncoder("clearly-not-a-real-encoder-binary")
	if _, err := e.Encode(context.Background(), [][]byte{[]byte("png")}, 5); err == nil {
		t.Error("Encode with a missing binary did not fail")
	}
}
