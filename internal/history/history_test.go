package history

import (
	"testing"

	"ds-tutor/internal/chatlog"
	"ds-tutor/internal/llm"
)

func TestToMessages(t *testing.T) {
	turns := []chatlog.Turn{
		{User: "hello", AI: "hi"},
		{User: "foo", AI: ""},
		{User: "bar", AI: "baz"},
	}
	msgs := ToMessages(turns)

	want := []llm.Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "bar"},
		{Role: "assistant", Content: "baz"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("unexpected length: %d", len(msgs))
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Fatalf("msg %d: want %+v, got %+v", i, want[i], msgs[i])
		}
	}

	for i := 1; i < len(msgs); i++ {
		if msgs[i].Role == msgs[i-1].Role {
			t.Fatalf("roles must alternate at %d: %+v", i, msgs)
		}
	}

	if got := ToMessages(nil); len(got) != 0 {
		t.Fatalf("empty history should give no messages, got %+v", got)
	}
}

func TestAppendDoesNotMutateInput(t *testing.T) {
	base := make([]chatlog.Turn, 1, 4)
	base[0] = chatlog.Turn{User: "q1", AI: "a1"}

	a := Append(base, chatlog.Turn{User: "q2", AI: "a2"})
	b := Append(base, chatlog.Turn{User: "q3", AI: "a3"})

	if len(base) != 1 {
		t.Fatalf("input length changed: %d", len(base))
	}
	if len(a) != 2 || a[1].User != "q2" {
		t.Fatalf("unexpected a: %+v", a)
	}
	if len(b) != 2 || b[1].User != "q3" {
		t.Fatalf("appends share backing array: a=%+v b=%+v", a, b)
	}
}
