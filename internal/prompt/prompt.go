// package prompt assembles the text sent to the child assistant each
// iteration. This is an external collaborator: its exact wording is not part
// of the core, but a default implementation is required to run end to end.
package prompt

import (
	"strings"
	"text/template"
)

// Record carries the fields the core supplies to prompt assembly.
type Record struct {
	Iteration     int
	MaxIterations int
	DoneCount     int
	Mode          string
	Goal          string
	Handoff       string
	Guardrails    string
	SpecPath      string
	HandoffPath   string
}

// Mode returns "REVIEW" once a spec has at least one recorded DONE
// confirmation, otherwise "IMPLEMENT".
func Mode(doneCount int) string {
	if doneCount > 0 {
		return "REVIEW"
	}
	return "IMPLEMENT"
}

var tmpl = template.Must(template.New("prompt").Parse(`# RALPH LOOP - ROTATION {{.Iteration}}/{{.MaxIterations}} [{{.Mode}}]

You are operating in a **Ralph Loop** - an autonomous development technique using context
rotation. Your progress persists in files. Each rotation starts fresh but continues from
where the last left off.

## YOUR GOAL

{{.Goal}}

## GUARDRAILS (lessons from previous rotations - MUST follow these)

{{.Guardrails}}

## CURRENT STATE (from previous rotation)

{{.Handoff}}

## YOUR INSTRUCTIONS

1. **Orient**: Read the handoff state. Understand where we are.
2. **Execute**: Work toward the goal. Make real progress.
3. **Test**: Run tests frequently to verify progress.
4. **Update State**: Keep {{.HandoffPath}} current with your progress.
5. **Learn**: If you discover something important, add it to the guardrails file.

## COMPLETION SIGNALS

Write ONE of these to .ralph/status:
- **CONTINUE** - Still working, making progress (default)
- **ROTATE** - Ready for fresh context (before yours gets too long/polluted)
- **DONE** - Goal fully achieved, all success criteria met
- **STUCK** - Blocked, need human help

## COMPLETION PROTOCOL

Signaling DONE triggers a verification cycle:
- You must confirm completion 3 times total
- Each review rotation checks your work thoroughly
- If you make changes during review, verification resets
- Only after 3 consecutive DONE signals (with no changes) is the task truly complete

## RULES

- NEVER ignore guardrails - they exist because previous rotations learned hard lessons
- ALWAYS update the handoff file before signaling ROTATE or DONE
- Keep the handoff detailed but concise - it's your memory across rotations
- Signal ROTATE proactively when you feel context getting cluttered
- Only signal DONE when ALL success criteria in {{.SpecPath}} are met
`))

// Assemble renders the default prompt template for one iteration.
func Assemble(rec Record) string {
	if rec.Mode == "" {
		rec.Mode = Mode(rec.DoneCount)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, rec); err != nil {
		// The template is a compile-time constant; a render failure here
		// means a programming error, not a runtime condition to recover from.
		panic(err)
	}
	return b.String()
}
