package signals

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfirmerAnswers(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		want       Decision
		wantState  ConfirmState
		wantAlways bool
	}{
		{"yes short", "y", DecisionKill, Killed, false},
		{"yes long", "yes", DecisionKill, Killed, false},
		{"yes uppercase", "YES", DecisionKill, Killed, false},
		{"no short", "n", DecisionNone, Resumed, false},
		{"no long", "no", DecisionNone, Resumed, false},
		{"empty resumes", "", DecisionNone, Resumed, false},
		{"whitespace resumes", "   ", DecisionNone, Resumed, false},
		{"always short", "a", DecisionKill, Killed, true},
		{"always long", "always", DecisionKill, Killed, true},
		{"unknown re-asks", "maybe", DecisionAsk, AwaitingKillConfirmation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConfirmer(&out, false, testLogger())
			c.Begin(42)

			if got := c.Interrupt(); got != DecisionAsk {
				t.Fatalf("Interrupt() = %v, want %v", got, DecisionAsk)
			}
			if !c.Awaiting() {
				t.Fatal("expected a pending question after interrupt")
			}

			if got := c.Answer(tt.answer); got != tt.want {
				t.Errorf("Answer(%q) = %v, want %v", tt.answer, got, tt.want)
			}
			if got := c.State(); got != tt.wantState {
				t.Errorf("State() = %v, want %v", got, tt.wantState)
			}
			if got := c.AlwaysKill(); got != tt.wantAlways {
				t.Errorf("AlwaysKill() = %v, want %v", got, tt.wantAlways)
			}
			if !strings.Contains(out.String(), "kill foreground job 42?") {
				t.Errorf("question not printed, got %q", out.String())
			}
		})
	}
}

func TestConfirmerReAskRepeatsQuestion(t *testing.T) {
	var out bytes.Buffer
	c := NewConfirmer(&out, false, testLogger())
	c.Begin(7)
	c.Interrupt()
	c.Answer("what")

	if n := strings.Count(out.String(), "kill foreground job 7?"); n != 2 {
		t.Errorf("expected question twice, got %d times in %q", n, out.String())
	}
	if got := c.Answer("y"); got != DecisionKill {
		t.Errorf("Answer(y) after re-ask = %v, want kill", got)
	}
}

func TestConfirmerAlwaysKillsImmediately(t *testing.T) {
	var out bytes.Buffer
	c := NewConfirmer(&out, false, testLogger())

	c.Begin(1)
	c.Interrupt()
	c.Answer("always")
	c.End()

	out.Reset()
	c.Begin(2)
	if got := c.Interrupt(); got != DecisionKill {
		t.Fatalf("Interrupt() with always = %v, want kill", got)
	}
	if out.Len() != 0 {
		t.Errorf("expected no question in always mode, got %q", out.String())
	}
}

func TestConfirmerPreconfiguredAlways(t *testing.T) {
	c := NewConfirmer(io.Discard, true, testLogger())
	c.Begin(3)
	if got := c.Interrupt(); got != DecisionKill {
		t.Errorf("Interrupt() = %v, want kill", got)
	}
	c.SetAlwaysKill(false)
	if got := c.Interrupt(); got != DecisionAsk {
		t.Errorf("Interrupt() after disabling always = %v, want ask", got)
	}
}

func TestConfirmerAnswerWithoutQuestion(t *testing.T) {
	c := NewConfirmer(io.Discard, false, testLogger())
	c.Begin(5)
	if got := c.Answer("y"); got != DecisionNone {
		t.Errorf("Answer without question = %v, want none", got)
	}
	if got := c.State(); got != ForegroundActive {
		t.Errorf("State() = %v, want %v", got, ForegroundActive)
	}
}

func TestConfirmerResumeThenInterruptAsksAgain(t *testing.T) {
	c := NewConfirmer(io.Discard, false, testLogger())
	c.Begin(9)
	c.Interrupt()
	c.Answer("n")
	if got := c.Interrupt(); got != DecisionAsk {
		t.Errorf("second Interrupt() = %v, want ask", got)
	}
}

func TestConfirmerEndAbandonsQuestion(t *testing.T) {
	var out bytes.Buffer
	c := NewConfirmer(&out, false, testLogger())
	c.Begin(11)
	c.Interrupt()
	c.End()

	if c.Awaiting() {
		t.Error("expected no pending question after End")
	}
	if !strings.HasSuffix(out.String(), "\n") {
		t.Errorf("expected End to terminate the question line, got %q", out.String())
	}
}
