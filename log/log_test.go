package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseDirective(t *testing.T) {
	type spec struct {
		in      string
		exp     Directive
		expErr  bool
		expText string
	}
	specs := []spec{
		{"*=v,handshake=i", Directive{{"", Debug}, {"handshake", Info}}, false, "*=debug,handshake=info"},
		{" renderer = warning ", Directive{{"renderer", Warning}}, false, "renderer=warning"},
		{"", nil, false, ""},
		{"renderer", nil, true, ""},
		{"renderer=loud", nil, true, ""},
	}

	for index, s := range specs {
		d, err := ParseDirective(s.in)
		if s.expErr {
			if err == nil {
				t.Fatalf("[spec %d] expected an error", index)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		if len(d) != len(s.exp) {
			t.Fatalf("[spec %d] expected %d entries; got %d", index, len(s.exp), len(d))
		}
		for i := range d {
			if d[i] != s.exp[i] {
				t.Fatalf("[spec %d] expected entry %d to be %v; got %v", index, i, s.exp[i], d[i])
			}
		}
		if d.String() != s.expText {
			t.Fatalf("[spec %d] expected %q; got %q", index, s.expText, d.String())
		}
	}
}

func TestDirectiveApply(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(new(bytes.Buffer))

	d, err := ParseDirective("chatty=d,*=e")
	if err != nil {
		t.Fatal(err)
	}
	d.Apply()

	if !IsEnabled("chatty", Debug) {
		t.Fatal("expected debug level to be enabled for module chatty")
	}
	if IsEnabled("quiet", Warning) {
		t.Fatal("expected warning level to be disabled for module quiet")
	}
}

func TestLineWriter(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(new(bytes.Buffer))
	SetLevel(Debug)

	w := NewLineWriter(New("helper-test"), Info)
	w.Write([]byte("first line\nsecond "))
	w.Write([]byte("line\r\npartial"))

	out := buf.String()
	if !strings.Contains(out, "first line") || !strings.Contains(out, "second line") {
		t.Fatalf("expected both complete lines to be logged; got %q", out)
	}
	if strings.Contains(out, "partial") {
		t.Fatal("expected partial line to be buffered until close")
	}

	w.Close()
	if !strings.Contains(buf.String(), "partial") {
		t.Fatal("expected partial line to be flushed on close")
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("expected 3 log entries; got output %q", buf.String())
	}
}
