package types

// RefinementPrompt is the resolved instruction for one refinement call.
// System holds the policy, requirements and language instruction; User
// holds the document body (direct mode) or the document reference (tool mode).
type RefinementPrompt struct {
	System string
	User   string
}

// String joins both parts into the single instruction text.
func (p RefinementPrompt) String() string {
	if p.User == "" {
		return p.System
	}
	return p.System + "\n\n" + p.User
}
