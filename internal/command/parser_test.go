package command

import "testing"

func TestParseSimpleCommand(t *testing.T) {
	cmd, err := Parse("list-clients")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "list-clients" || len(cmd.Args) != 0 {
		t.Fatalf("got %+v", cmd)
	}
}

func TestParseFlagWithValue(t *testing.T) {
	cmd, err := Parse("split-window -h -t %0")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "split-window" {
		t.Fatalf("got %q", cmd.Name)
	}
	if v, ok := cmd.Flag("h"); !ok || v != "" {
		t.Fatalf("h flag = %q, %v", v, ok)
	}
	if v, ok := cmd.Flag("t"); !ok || v != "%0" {
		t.Fatalf("t flag = %q, %v", v, ok)
	}
}

func TestParseQuotedArgument(t *testing.T) {
	cmd, err := Parse(`send-keys -t %0 "hello world"`)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmd.Args) != 1 || cmd.Args[0] != "hello world" {
		t.Fatalf("got %+v", cmd.Args)
	}
}

func TestParseDoubleQuoteEscapes(t *testing.T) {
	cmd, err := Parse(`send-keys -t %0 "say \"hi\" and \\run"`)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Args[0] != `say "hi" and \run` {
		t.Fatalf("got %q", cmd.Args[0])
	}
}

func TestParseSingleQuotedArgument(t *testing.T) {
	cmd, err := Parse(`rename-window 'my window'`)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Args[0] != "my window" {
		t.Fatalf("got %q", cmd.Args[0])
	}
}

func TestParseUnterminatedQuoteFails(t *testing.T) {
	if _, err := Parse(`send-keys "unterminated`); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestParseEmptyLineFails(t *testing.T) {
	if _, err := Parse("   "); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestParseNegativeNumberArgIsNotAFlag(t *testing.T) {
	cmd, err := Parse("resize-pane -t %0 -5")
	if err != nil {
		t.Fatal(err)
	}
	if len(cmd.Args) != 1 || cmd.Args[0] != "-5" {
		t.Fatalf("got %+v", cmd.Args)
	}
}

func TestParseTrailingFlagWithNoValue(t *testing.T) {
	cmd, err := Parse("split-window -v")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := cmd.Flag("v"); !ok || v != "" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func TestParseMultipleWhitespaceCollapses(t *testing.T) {
	cmd, err := Parse("kill-pane   -t   %1")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := cmd.Flag("t"); v != "%1" {
		t.Fatalf("got %q", v)
	}
}
