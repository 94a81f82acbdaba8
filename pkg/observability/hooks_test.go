package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnStageStart(ctx, "render_file", "parse")
	p.OnStageComplete(ctx, "render_file", "parse", time.Second, nil)

	f := NoopFontHooks{}
	f.OnScan(ctx, "system", 10, time.Second)
	f.OnSkip(ctx, "/fonts/bad.ttf", nil)

	h := NoopHostHooks{}
	h.OnCall(ctx, "1", "render_text")
	h.OnCallComplete(ctx, "1", "render_text", time.Second, "")
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Fonts().(NoopFontHooks); !ok {
		t.Error("Fonts() should return NoopFontHooks by default")
	}
	if _, ok := Host().(NoopHostHooks); !ok {
		t.Error("Host() should return NoopHostHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customFonts := &testFontHooks{}
	SetFontHooks(customFonts)
	if Fonts() != customFonts {
		t.Error("SetFontHooks should set custom hooks")
	}

	customHost := &testHostHooks{}
	SetHostHooks(customHost)
	if Host() != customHost {
		t.Error("SetHostHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Fonts().(NoopFontHooks); !ok {
		t.Error("Reset() should restore NoopFontHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)
	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}
}

type testPipelineHooks struct{ NoopPipelineHooks }

type testFontHooks struct{ NoopFontHooks }

type testHostHooks struct{ NoopHostHooks }
