package state

// HandoffTemplate is written for a spec's handoff note the first time it is
// created.
const HandoffTemplate = `# Handoff

## Completed

## In Progress

## Next Steps

## Notes
`

// GuardrailsTemplate is written for the shared guardrails document the first
// time it is created.
const GuardrailsTemplate = `# Guardrails
`

// NotesHeading is the heading under which crash annotations are appended.
const NotesHeading = "## Notes"
