package timeouts

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure(t *testing.T) {
	defer Reset()

	Configure(Config{Fetch: time.Minute})
	if Fetch() != time.Minute {
		t.Errorf("Fetch() = %v", Fetch())
	}
	if Ping() != DefaultPing || Mutation() != DefaultMutation {
		t.Error("zero values should keep defaults")
	}

	Reset()
	if Current() != (Config{Ping: DefaultPing, Fetch: DefaultFetch, Mutation: DefaultMutation}) {
		t.Errorf("Reset did not restore defaults: %+v", Current())
	}
}

func TestWithTimeout_LogsDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	ctx, cancel := WithTimeout(context.Background(), time.Millisecond, log, "refresh")
	<-ctx.Done()
	cancel()
	if logs.FilterMessage("operation timed out").Len() != 1 {
		t.Errorf("expected a timeout warning, got %v", logs.All())
	}

	_, cancel = WithTimeout(context.Background(), time.Minute, log, "approve")
	cancel()
	if logs.Len() != 1 {
		t.Errorf("cancel before deadline should not log, got %d entries", logs.Len())
	}
}
