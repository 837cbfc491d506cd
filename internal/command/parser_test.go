package command

import "testing"

func TestO1PrefixDetection(t *testing.T) {
	p := New("f")
	cases := map[string]bool{
		"f hello world":        true,
		"f --model gpt-4 test": true,
		"f":                    true,
		"hello p world":        false,
		" p test":              false,
		"\\f escaped":          false,
		"":                     false,
	}
	for line, want := range cases {
		if got := p.IsAgentPrefix(line); got != want {
			t.Errorf("IsAgentPrefix(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestZeroFalsePositives(t *testing.T) {
	p := New("f")
	lines := []string{
		"ls -la",
		"cd /home/user",
		"grep pattern file.txt",
		"echo 'hello world'",
		"python script.py",
		" p test",
		"some p command",
		"\\p escaped",
		"",
		"pwd",
		"ps aux | grep process",
	}
	for _, line := range lines {
		got, err := p.Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", line, err)
		}
		if got.Kind != KindTerminal {
			t.Errorf("Parse(%q) = Agent, want Terminal", line)
		}
	}
}

func TestAgentCommandParsing(t *testing.T) {
	p := New("f")
	got, err := p.Parse("f hello world")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindAgent {
		t.Fatalf("Kind = %v, want KindAgent", got.Kind)
	}
	if got.Agent.Prompt != "hello world" {
		t.Errorf("Prompt = %q, want %q", got.Agent.Prompt, "hello world")
	}
	if got.Agent.HasModel || got.Agent.HasTemperature {
		t.Errorf("expected no model/temperature overrides, got %+v", got.Agent)
	}
}

func TestModelOverrideSyntax(t *testing.T) {
	p := New("f")
	got, err := p.Parse("f --model gpt-4 explain rust")
	if err != nil {
		t.Fatal(err)
	}
	if got.Agent.Prompt != "explain rust" {
		t.Errorf("Prompt = %q", got.Agent.Prompt)
	}
	if !got.Agent.HasModel || got.Agent.ModelOverride != "gpt-4" {
		t.Errorf("ModelOverride = %+v", got.Agent)
	}
}

func TestTemperatureParameter(t *testing.T) {
	p := New("f")
	got, err := p.Parse("f --temp 0.8 creative story")
	if err != nil {
		t.Fatal(err)
	}
	if got.Agent.Prompt != "creative story" {
		t.Errorf("Prompt = %q", got.Agent.Prompt)
	}
	if !got.Agent.HasTemperature || got.Agent.Temperature != 0.8 {
		t.Errorf("Temperature = %+v", got.Agent)
	}

	if _, err := p.Parse("f --temp 5.0 test"); err == nil {
		t.Fatal("expected out-of-range temperature to fail")
	}
}

func TestQuotedStrings(t *testing.T) {
	p := New("f")
	got, err := p.Parse(`f --model "gpt-4" "explain 'nested quotes'"`)
	if err != nil {
		t.Fatal(err)
	}
	if got.Agent.ModelOverride != "gpt-4" {
		t.Errorf("ModelOverride = %q", got.Agent.ModelOverride)
	}
	if got.Agent.Prompt != `"explain 'nested quotes'"` {
		// After the quoted --model value, the next token starts the
		// verbatim prompt tail: its own quotes carry no special meaning.
		t.Errorf("Prompt = %q", got.Agent.Prompt)
	}
}

func TestEscapeSequence(t *testing.T) {
	p := New("f")
	got, err := p.Parse("\\f literal prefix")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindTerminal || got.Terminal != "f literal prefix" {
		t.Errorf("got %+v", got)
	}
}

func TestEdgeCases(t *testing.T) {
	p := New("f")
	if _, err := p.Parse("f --model gpt-4"); err == nil {
		t.Fatal("expected missing prompt to fail")
	}
	if _, err := p.Parse("f"); err == nil {
		t.Fatal("expected bare prefix to fail")
	}
	if _, err := p.Parse("f --unknown-arg value test"); err == nil {
		t.Fatal("expected unknown argument to fail")
	}
}

func TestVerbatimPromptDoesNotRequireBalancedQuotes(t *testing.T) {
	p := New("f")
	got, err := p.Parse("f can't you help me")
	if err != nil {
		t.Fatalf("a lone apostrophe in the verbatim prompt must not error: %v", err)
	}
	if got.Agent.Prompt != "can't you help me" {
		t.Errorf("Prompt = %q", got.Agent.Prompt)
	}
}

func TestScrollbackManagement(t *testing.T) {
	p := NewWithConfig("f", 100, true)
	p.UpdateScrollback([]string{"line 1", "line 2", "line 3"})
	if len(p.scrollback) != 3 {
		t.Fatalf("scrollback len = %d, want 3", len(p.scrollback))
	}

	large := make([]string, 300)
	for i := range large {
		large[i] = "line"
	}
	p.UpdateScrollback(large)
	if len(p.scrollback) > 200 {
		t.Fatalf("scrollback len = %d, want <= 200", len(p.scrollback))
	}
}

func TestMultiLineContinuation(t *testing.T) {
	p := New("f")
	if !p.AddContinuation("first line \\") {
		t.Fatal("expected continuation to remain open")
	}
	if p.AddContinuation("second line") {
		t.Fatal("expected continuation to close")
	}
	got := p.GetContinuation()
	want := "first line \nsecond line"
	if got != want {
		t.Errorf("continuation = %q, want %q", got, want)
	}
}

func TestArgumentParsingEdgeCases(t *testing.T) {
	p := New("f")
	got, err := p.Parse("f --model gpt-4 --temp 0.5 --tokens 1000 complex prompt")
	if err != nil {
		t.Fatal(err)
	}
	if got.Agent.ModelOverride != "gpt-4" || got.Agent.Temperature != 0.5 || got.Agent.MaxTokens != 1000 {
		t.Fatalf("got %+v", got.Agent)
	}
	if got.Agent.Prompt != "complex prompt" {
		t.Errorf("Prompt = %q", got.Agent.Prompt)
	}

	got2, err := p.Parse("f --model=gpt-4 test prompt")
	if err != nil {
		t.Fatal(err)
	}
	if got2.Agent.ModelOverride != "gpt-4" {
		t.Errorf("ModelOverride = %q", got2.Agent.ModelOverride)
	}
}

func TestContextCollection(t *testing.T) {
	p := New("p")
	ctx, err := p.CollectContext()
	if err != nil {
		t.Fatal(err)
	}
	if ctx.WorkingDir == "" {
		t.Error("expected a non-empty working directory")
	}
}
