package orchestration

import (
	"testing"
	"time"
)

func TestUtteranceBufferJoinsFinalFragments(t *testing.T) {
	buffer := utteranceBuffer{}
	now := time.Now()

	buffer.appendFinal("hello", now)
	buffer.appendFinal("world", now)

	if got := buffer.snapshot(); got != "hello world" {
		t.Fatalf("expected \"hello world\", got %q", got)
	}
}

func TestUtteranceBufferInterimReplacesSuffix(t *testing.T) {
	buffer := utteranceBuffer{}
	start := time.Now()

	buffer.appendFinal("turn on", start)
	buffer.setInterim("the", start.Add(100*time.Millisecond))
	buffer.setInterim("the lights", start.Add(200*time.Millisecond))

	if got := buffer.display(); got != "turn on the lights" {
		t.Fatalf("expected display \"turn on the lights\", got %q", got)
	}
	if got := buffer.snapshot(); got != "turn on" {
		t.Fatalf("expected interim text to stay out of the snapshot, got %q", got)
	}
	if !buffer.lastUpdateAt.Equal(start.Add(200 * time.Millisecond)) {
		t.Fatalf("expected interim update to move lastUpdateAt, got %v", buffer.lastUpdateAt)
	}

	buffer.appendFinal("the lights", start.Add(300*time.Millisecond))
	if buffer.interimText != "" {
		t.Fatalf("expected final fragment to clear interim text, got %q", buffer.interimText)
	}
}

func TestUtteranceBufferClear(t *testing.T) {
	buffer := utteranceBuffer{}
	buffer.appendFinal("hello", time.Now())
	buffer.setInterim("there", time.Now())

	buffer.clear()

	if !buffer.isEmpty() || buffer.display() != "" {
		t.Fatalf("expected empty buffer, got %q", buffer.display())
	}
}

func TestUtteranceBufferIgnoresBlankFinal(t *testing.T) {
	buffer := utteranceBuffer{}
	buffer.appendFinal("hello", time.Now())
	buffer.appendFinal("  ", time.Now())

	if got := buffer.snapshot(); got != "hello" {
		t.Fatalf("expected blank fragment to be ignored, got %q", got)
	}
}
