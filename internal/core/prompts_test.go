package core

import (
	"strings"
	"testing"

	"github.com/vampirenirmal/narratology/internal/pacing"
	"github.com/vampirenirmal/narratology/internal/reversal"
)

func TestBuildScenePromptEmbedsTemplate(t *testing.T) {
	planned := &reversal.Planned{
		Index:         3,
		Type:          reversal.PyrrhicVictory,
		Sign:          reversal.SignRise,
		TargetValence: 0.6,
	}
	prompt := BuildScenePrompt(PromptRequest{
		Premise:       "a war won with forbidden sorcery",
		SceneIndex:    3,
		SceneCount:    9,
		Planned:       planned,
		TargetValence: 0.6,
		Speed:         pacing.SpeedFast,
		PreviousTail:  "the gates held, barely.",
	})

	tpl := TemplateFor(reversal.PyrrhicVictory)
	for _, want := range []string{
		"scene 4 of 9",
		"a war won with forbidden sorcery",
		"pyrrhic victory",
		reversal.PyrrhicVictory.NarrativeFunction(),
		tpl.Setup,
		tpl.TurningPoint,
		tpl.Aftermath,
		strings.Join(tpl.Beats, ", "),
		"fast tempo",
		"the gates held, barely.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildScenePromptOpeningScene(t *testing.T) {
	prompt := BuildScenePrompt(PromptRequest{
		Premise:    "premise",
		SceneIndex: 0,
		SceneCount: 5,
		Speed:      pacing.SpeedSlow,
	})
	if !strings.Contains(prompt, "opening scene") {
		t.Error("opening prompt missing establishment directive")
	}
	if strings.Contains(prompt, "previous scene") {
		t.Error("opening prompt must not reference a previous scene")
	}
}

func TestBuildScenePromptRevision(t *testing.T) {
	req := PromptRequest{
		Premise:    "premise",
		SceneIndex: 2,
		SceneCount: 5,
		Speed:      pacing.SpeedModerate,
	}
	base := BuildScenePrompt(req)
	if strings.Contains(base, "refused") {
		t.Error("unrevised prompt must not carry the revision directive")
	}

	req.Revision = 1
	revised := BuildScenePrompt(req)
	if revised == base {
		t.Fatal("revision must change the prompt")
	}
	if !strings.Contains(revised, "refused") || !strings.Contains(revised, "different approach") {
		t.Errorf("revised prompt missing directive:\n%s", revised)
	}
}

func TestTailRunes(t *testing.T) {
	if got := TailRunes("abcdef", 3); got != "def" {
		t.Errorf("TailRunes = %q", got)
	}
	if got := TailRunes("ab", 3); got != "ab" {
		t.Errorf("short TailRunes = %q", got)
	}
	if got := TailRunes("héllo wörld", 5); got != "wörld" {
		t.Errorf("rune-aware TailRunes = %q", got)
	}
}
