package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCompositorErrorString(t *testing.T) {
	err := &CompositorError{
		Op:   "scene.Decode",
		Kind: KindScene,
		Err:  fmt.Errorf("missing root"),
	}
	got := err.Error()
	want := "scene.Decode [scene]: missing root"
	if got != want {
		t.Errorf("CompositorError.Error() = %q, want %q", got, want)
	}
}

func TestCompositorErrorWithLayer(t *testing.T) {
	err := &CompositorError{
		Op:    "compositing.UpdateBacking",
		Kind:  KindInvariant,
		Layer: 42,
		Err:   &InvariantError{Invariant: "reflection-matches-source", Layer: 42},
	}
	got := err.Error()
	if want := "layer=42"; !strings.Contains(got, want) {
		t.Errorf("error string %q should contain %q", got, want)
	}
	var inv *InvariantError
	if !stderrors.As(err, &inv) || inv.Layer != 42 {
		t.Errorf("Unwrap should expose the InvariantError")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindConfig, "config"},
		{KindScene, "scene"},
		{KindInvariant, "invariant"},
		{KindPanic, "panic"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{
		Value:     "test panic",
		Timestamp: time.Now(),
	}
	if got, want := err.Error(), "panic: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}

	err.Op = "compositing.UpdateCompositingLayers"
	if got, want := err.Error(), "panic in compositing.UpdateCompositingLayers: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestInvariantErrorString(t *testing.T) {
	err := &InvariantError{Invariant: "backing-matches-decision", Layer: 3}
	if got, want := err.Error(), `invariant "backing-matches-decision" violated at layer 3`; got != want {
		t.Errorf("InvariantError.Error() = %q, want %q", got, want)
	}
	err.Detail = "has backing but should not"
	if !strings.HasSuffix(err.Error(), ": has backing but should not") {
		t.Errorf("detail missing from %q", err.Error())
	}
}

func TestReport(t *testing.T) {
	var capturedErr *CompositorError
	handler := &testHandler{
		onError: func(err *CompositorError) {
			capturedErr = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	Report(&CompositorError{
		Op:   "test.op",
		Kind: KindConfig,
		Err:  fmt.Errorf("bad settings"),
	})

	if capturedErr == nil {
		t.Fatal("expected error to be captured")
	}
	if capturedErr.Op != "test.op" {
		t.Errorf("Op = %q, want %q", capturedErr.Op, "test.op")
	}
	if capturedErr.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportInvariant(t *testing.T) {
	var capturedErr *CompositorError
	handler := &testHandler{
		onError: func(err *CompositorError) {
			capturedErr = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	ReportInvariant("compositing.test", &InvariantError{Invariant: "x", Layer: 7})

	if capturedErr == nil {
		t.Fatal("expected invariant to be reported")
	}
	if capturedErr.Kind != KindInvariant || capturedErr.Layer != 7 {
		t.Errorf("got kind=%s layer=%d, want invariant/7", capturedErr.Kind, capturedErr.Layer)
	}
	if capturedErr.StackTrace == "" {
		t.Error("expected a stack trace")
	}
}

func TestRecover(t *testing.T) {
	var capturedPanic *PanicError
	handler := &testHandler{
		onPanic: func(err *PanicError) {
			capturedPanic = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if capturedPanic == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if capturedPanic.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", capturedPanic.Value, "intentional test panic")
	}
	if capturedPanic.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", capturedPanic.Op, "test.recover")
	}
}

func TestRecoverWithCallback(t *testing.T) {
	oldHandler := DefaultHandler
	SetHandler(&testHandler{})
	defer SetHandler(oldHandler)

	var got any
	func() {
		defer RecoverWithCallback("test.callback", func(r any) { got = r })
		panic(17)
	}()
	if got != 17 {
		t.Errorf("callback got %v, want 17", got)
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if stack == "" {
		t.Error("expected non-empty stack trace")
	}
	if !strings.Contains(stack, "testing") && !strings.Contains(stack, "runtime") {
		t.Errorf("stack trace should contain testing or runtime frames, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(nil)
	if DefaultHandler == nil {
		t.Error("SetHandler(nil) should set default LogHandler, not nil")
	}
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

func TestLogHandlerVerbose(t *testing.T) {
	var buf bytes.Buffer
	h := &LogHandler{Verbose: true, Out: &buf}
	h.HandleError(&CompositorError{
		Op:         "config.Resolve",
		Kind:       KindConfig,
		Layer:      5,
		Err:        fmt.Errorf("boom"),
		StackTrace: "frame",
	})
	out := buf.String()
	for _, want := range []string{"[compositor error] config.Resolve [config]", "layer=5", "boom", "Stack trace:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q should contain %q", out, want)
		}
	}

	buf.Reset()
	(&LogHandler{Out: &buf}).HandlePanic(&PanicError{Op: "op", Value: "v", StackTrace: "frame"})
	if got, want := buf.String(), "[compositor panic] op: v\n"; got != want {
		t.Errorf("HandlePanic wrote %q, want %q", got, want)
	}
}

type testHandler struct {
	onError func(*CompositorError)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *CompositorError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
