package stage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
)

func upper(_ context.Context, s string) (string, error) {
	return strings.ToUpper(s), nil
}

func TestFanOutForwardsSameValueOnce(t *testing.T) {
	var left, right Collector[string]
	head := New("upper", upper, &left, &right)

	for _, in := range []string{"a", "b", "c"} {
		if err := head.Process(context.Background(), in); err != nil {
			t.Fatalf("process %q: %v", in, err)
		}
	}

	want := []string{"A", "B", "C"}
	for name, c := range map[string]*Collector[string]{"left": &left, "right": &right} {
		got := c.Items()
		if len(got) != len(want) {
			t.Fatalf("%s: expected %d items, got %d", name, len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s[%d] = %q, want %q", name, i, got[i], want[i])
			}
		}
	}
}

func TestDownstreamRunsInRegistrationOrder(t *testing.T) {
	var order []string
	record := func(name string) Sink[string] {
		return SinkFunc[string](func(_ context.Context, s string) error {
			order = append(order, name+":"+s)
			return nil
		})
	}
	head := New("upper", upper, record("first")).Then(record("second"))

	if err := head.Process(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if err := head.Process(context.Background(), "y"); err != nil {
		t.Fatal(err)
	}

	want := []string{"first:X", "second:X", "first:Y", "second:Y"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestRunReturnsResultWithoutDownstream(t *testing.T) {
	s := New("upper", upper)
	out, err := s.Run(context.Background(), "sink")
	if err != nil {
		t.Fatal(err)
	}
	if out != "SINK" {
		t.Errorf("Run = %q, want SINK", out)
	}
}

func TestFailureCarriesStageAndItem(t *testing.T) {
	boom := errors.New("boom")
	failing := New("explode", func(_ context.Context, s string) (int, error) {
		return 0, boom
	})

	err := failing.Process(context.Background(), "item-7")
	var se *internalerr.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.Stage != "explode" {
		t.Errorf("stage = %q", se.Stage)
	}
	if se.Item != "item-7" {
		t.Errorf("item = %v", se.Item)
	}
	if !errors.Is(err, boom) {
		t.Error("cause should be preserved")
	}
}

func TestDownstreamFailureKeepsIdentityAndStopsForwarding(t *testing.T) {
	var after Collector[string]
	inner := New("inner", func(_ context.Context, s string) (string, error) {
		return "", errors.New("bad shape")
	})
	head := New("upper", upper, inner, &after)

	err := head.Process(context.Background(), "q")
	var se *internalerr.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.Stage != "inner" {
		t.Errorf("failing stage = %q, want inner", se.Stage)
	}
	if len(after.Items()) != 0 {
		t.Error("sinks after the failing one must not run")
	}
}

func TestPlainSinkErrorIsAttributedToForwardingStage(t *testing.T) {
	sink := SinkFunc[string](func(context.Context, string) error { return errors.New("disk full") })
	head := New("upper", upper, sink)

	err := head.Process(context.Background(), "z")
	var se *internalerr.StageError
	if !errors.As(err, &se) || se.Stage != "upper" {
		t.Fatalf("expected StageError from upper, got %v", err)
	}
}

func TestCollectorLast(t *testing.T) {
	var c Collector[int]
	if _, ok := c.Last(); ok {
		t.Fatal("empty collector should have no last item")
	}
	_ = c.Process(context.Background(), 1)
	_ = c.Process(context.Background(), 2)
	if v, ok := c.Last(); !ok || v != 2 {
		t.Errorf("Last = %d,%v", v, ok)
	}
	if err := Discard[int]().Process(context.Background(), 3); err != nil {
		t.Error(err)
	}
}
