package events

import (
	"testing"

	"github.com/c360studio/artifactguard/validation"
)

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	p.PublishRun("artifact-1", "go", validation.RunStatus{
		ExecutionStatus: validation.StatusCompleted,
	})
}

func TestPublisherWithoutConnectionIsSafe(t *testing.T) {
	p := NewPublisher(nil, "", nil)
	p.PublishRun("artifact-1", "go", validation.RunStatus{
		ExecutionStatus: validation.StatusFailed,
	})
}

func TestNewPublisherDefaults(t *testing.T) {
	p := NewPublisher(nil, "", nil)
	if p.subject != DefaultSubject {
		t.Errorf("expected default subject %s, got %s", DefaultSubject, p.subject)
	}
	if p.logger == nil {
		t.Error("expected non-nil logger")
	}
}
