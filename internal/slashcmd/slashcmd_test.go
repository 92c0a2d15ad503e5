package slashcmd

import (
	"reflect"
	"testing"
)

func TestParseSlashCommand(t *testing.T) {
	p, ok := ParseSlashCommand(`/Autopilot go --goal "finish the thing"`)
	if !ok {
		t.Fatal("expected ok")
	}
	if p.Name != "autopilot" {
		t.Errorf("expected lowercased name, got %q", p.Name)
	}
	if p.Args != `go --goal "finish the thing"` {
		t.Errorf("unexpected args: %q", p.Args)
	}
}

func TestParseSlashCommandRejectsNonSlash(t *testing.T) {
	if _, ok := ParseSlashCommand("not a command"); ok {
		t.Error("expected non-slash input rejected")
	}
}

func TestParseAutopilotTemplateCommand(t *testing.T) {
	raw := `python3 "/opt/scripts/autopilot_command.py" go --goal "x" --json`
	p, ok := ParseAutopilotTemplateCommand(raw)
	if !ok {
		t.Fatal("expected template invocation recognized")
	}
	if p.Name != "autopilot-go" {
		t.Errorf("expected autopilot-go, got %q", p.Name)
	}
	if p.Args != `--goal "x" --json` {
		t.Errorf("unexpected args: %q", p.Args)
	}
}

func TestParseAutopilotTemplateCommandRejectsOther(t *testing.T) {
	if _, ok := ParseAutopilotTemplateCommand(`python3 "/opt/scripts/other.py" go`); ok {
		t.Error("expected non-autopilot script rejected")
	}
}

func TestCanonicalAutopilotCommandName(t *testing.T) {
	cases := map[string]string{
		"ralph-loop":   "autopilot-go",
		"cancel-ralph": "autopilot-stop",
		"RALPH-PAUSE":  "autopilot-pause",
		"autopilot-go": "autopilot-go",
		"something-else": "something-else",
	}
	for in, want := range cases {
		if got := CanonicalAutopilotCommandName(in); got != want {
			t.Errorf("CanonicalAutopilotCommandName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveAutopilotActionCanonicalNames(t *testing.T) {
	if a := ResolveAutopilotAction("autopilot-go", ""); a != ActionStart {
		t.Errorf("expected ActionStart, got %v", a)
	}
	if a := ResolveAutopilotAction("cancel-ralph", ""); a != ActionStop {
		t.Errorf("expected ActionStop via legacy alias, got %v", a)
	}
}

func TestResolveAutopilotActionBareFormInspectsFirstArg(t *testing.T) {
	if a := ResolveAutopilotAction("autopilot", "stop"); a != ActionStop {
		t.Errorf("expected ActionStop from positional arg, got %v", a)
	}
	if a := ResolveAutopilotAction("autopilot", "go --goal x"); a != ActionStart {
		t.Errorf("expected ActionStart from positional arg, got %v", a)
	}
}

func TestParseGoalQuotedAndBare(t *testing.T) {
	if g := ParseGoal(`--goal "finish the five items"`); g != "finish the five items" {
		t.Errorf("unexpected quoted goal: %q", g)
	}
	if g := ParseGoal(`--goal finishit`); g != "finishit" {
		t.Errorf("unexpected bare goal: %q", g)
	}
}

func TestParseCompletionModeDefaultsToPromise(t *testing.T) {
	if m := ParseCompletionMode(""); m != "promise" {
		t.Errorf("expected default promise, got %q", m)
	}
	if m := ParseCompletionMode("--completion-mode objective"); m != "objective" {
		t.Errorf("expected objective, got %q", m)
	}
	if m := ParseCompletionMode("--completion-mode bogus"); m != "promise" {
		t.Errorf("expected unrecognized value to fall back to promise, got %q", m)
	}
}

func TestParseCompletionPromiseFallback(t *testing.T) {
	if p := ParseCompletionPromise("", "DONE"); p != "DONE" {
		t.Errorf("expected default DONE, got %q", p)
	}
	if p := ParseCompletionPromise(`--completion-promise FINISHED`, "DONE"); p != "FINISHED" {
		t.Errorf("expected FINISHED, got %q", p)
	}
}

func TestParseMaxIterationsPreservesZero(t *testing.T) {
	if n := ParseMaxIterations("--max-iterations 0", 99); n != 0 {
		t.Errorf("expected 0 preserved, got %d", n)
	}
	if n := ParseMaxIterations("", 99); n != 99 {
		t.Errorf("expected default 99, got %d", n)
	}
	if n := ParseMaxIterations("--max-iterations 7", 99); n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
}

func TestParseDoneCriteria(t *testing.T) {
	got := ParseDoneCriteria(`--done-criteria "2x + 1;5x -2; ;x^2 + 1"`)
	want := []string{"2x + 1", "5x -2", "x^2 + 1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseDoneCriteriaAbsent(t *testing.T) {
	if got := ParseDoneCriteria(""); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
