package core

import (
	"fmt"
	"strings"

	"github.com/vampirenirmal/narratology/internal/pacing"
	"github.com/vampirenirmal/narratology/internal/reversal"
)

// SceneTemplate shapes a reversal scene in three movements, with the
// emotional beats the prose should hit in order.
type SceneTemplate struct {
	Setup        string
	TurningPoint string
	Aftermath    string
	Beats        []string
}

var SceneTemplates = map[reversal.Type]SceneTemplate{
	reversal.ClassicPeripeteia: {
		Setup:        "Show the protagonist at the height of confidence, the goal within reach.",
		TurningPoint: "A single revelation or act inverts their fortune completely.",
		Aftermath:    "Let the full weight of the fall land; no consolation yet.",
		Beats:        []string{"confidence", "shock", "denial", "collapse"},
	},
	reversal.FalseDefeat: {
		Setup:        "Everything the protagonist built appears destroyed.",
		TurningPoint: "In the wreckage, an overlooked detail hints the loss is not what it seems.",
		Aftermath:    "Despair gives way to a fragile, private resolve.",
		Beats:        []string{"devastation", "numbness", "spark", "resolve"},
	},
	reversal.BetrayalCascade: {
		Setup:        "Lean on the bond the protagonist trusts most.",
		TurningPoint: "That ally turns, and the turn exposes a second betrayal beneath it.",
		Aftermath:    "Each certainty falls in sequence; end with the protagonist alone.",
		Beats:        []string{"trust", "suspicion", "betrayal", "cascade", "isolation"},
	},
	reversal.PyrrhicVictory: {
		Setup:        "The decisive confrontation the whole arc has pointed toward.",
		TurningPoint: "The protagonist wins, and in the same stroke loses what the fight was for.",
		Aftermath:    "Triumph and grief in one breath; let neither cancel the other.",
		Beats:        []string{"determination", "victory", "realization", "hollowness"},
	},
	reversal.RecognitionScene: {
		Setup:        "Ordinary circumstances, guards lowered.",
		TurningPoint: "An identity or truth long hidden surfaces and recasts everything before it.",
		Aftermath:    "Old scenes replay in a new light; allegiances redraw themselves.",
		Beats:        []string{"ease", "glimpse", "recognition", "reappraisal"},
	},
	reversal.RoleReversal: {
		Setup:        "Establish the power imbalance plainly: who hunts, who hides.",
		TurningPoint: "One move flips the roles entirely.",
		Aftermath:    "The new holder of power discovers what the position costs.",
		Beats:        []string{"pressure", "gambit", "inversion", "consequence"},
	},
}

// TemplateFor returns the scene template for a reversal type. Unknown
// types get the classic shape.
func TemplateFor(t reversal.Type) SceneTemplate {
	if tpl, ok := SceneTemplates[t]; ok {
		return tpl
	}
	return SceneTemplates[reversal.ClassicPeripeteia]
}

// PromptRequest carries everything the builder needs for one scene.
type PromptRequest struct {
	Premise       string
	SceneIndex    int
	SceneCount    int
	Planned       *reversal.Planned // nil for the opening scene
	TargetValence float64
	Speed         pacing.Speed
	PreviousTail  string
	Revision      int // drafts of this scene the backend has refused
}

const previousTailRunes = 600

// BuildScenePrompt assembles the generation prompt for one scene:
// premise, position, the planned reversal's template and beats, the
// emotional target, and a pacing directive.
func BuildScenePrompt(req PromptRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are writing scene %d of %d in a fantasy novel.\n\n", req.SceneIndex+1, req.SceneCount)
	fmt.Fprintf(&b, "Premise: %s\n\n", req.Premise)

	if req.PreviousTail != "" {
		fmt.Fprintf(&b, "The previous scene ended:\n...%s\n\n", TailRunes(req.PreviousTail, previousTailRunes))
	}

	if req.Planned != nil {
		tpl := TemplateFor(req.Planned.Type)
		fmt.Fprintf(&b, "This scene is a %s: %s\n", strings.ReplaceAll(string(req.Planned.Type), "_", " "), req.Planned.Type.NarrativeFunction())
		fmt.Fprintf(&b, "Setup: %s\n", tpl.Setup)
		fmt.Fprintf(&b, "Turning point: %s\n", tpl.TurningPoint)
		fmt.Fprintf(&b, "Aftermath: %s\n", tpl.Aftermath)
		fmt.Fprintf(&b, "Emotional beats, in order: %s.\n\n", strings.Join(tpl.Beats, ", "))
	} else {
		b.WriteString("This is the opening scene. Establish the world, the protagonist, and the first stakes.\n\n")
	}

	fmt.Fprintf(&b, "Emotional target: the scene should land at %s (%.2f on a -1 to +1 scale).\n", valenceDescription(req.TargetValence), req.TargetValence)
	fmt.Fprintf(&b, "Pacing: write at a %s tempo.\n", req.Speed)
	if req.Revision > 0 {
		fmt.Fprintf(&b, "Earlier drafts of this scene were refused (%d so far). Take a substantially different approach to the same targets: new imagery, new staging.\n", req.Revision)
	}
	b.WriteString("Write only the scene prose, no headings or commentary.")
	return b.String()
}

func valenceDescription(v float64) string {
	switch {
	case v >= 0.7:
		return "strong triumph or joy"
	case v >= 0.3:
		return "cautious hope"
	case v > -0.3:
		return "ambivalence or quiet tension"
	case v > -0.7:
		return "loss and fear"
	}
	return "deep despair"
}

// TailRunes returns the last n runes of s, whole string when shorter.
func TailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
