package explain

import (
	"context"
	"fmt"
	"strings"

	"labz/internal/fheops"
	"labz/internal/solidity"
)

// HeuristicSummarizer produces deterministic prose from the operation table,
// used when no API key is configured. Same output for the same contract,
// which also makes it the testable default.
type HeuristicSummarizer struct{}

func NewHeuristicSummarizer() *HeuristicSummarizer {
	return &HeuristicSummarizer{}
}

func (s *HeuristicSummarizer) ExplainContract(_ context.Context, c *solidity.Contract) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", c.Name)

	if n := len(c.StateVariables); n > 0 {
		encrypted := 0
		for _, sv := range c.StateVariables {
			if strings.HasPrefix(sv.Type, "e") || strings.Contains(sv.Type, "euint") {
				encrypted++
			}
		}
		fmt.Fprintf(&sb, "The contract keeps %d state variable(s), %d of them encrypted.\n\n", n, encrypted)
	}

	for _, fn := range c.Functions {
		text, err := s.ExplainFunction(context.Background(), c, fn)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String()), nil
}

func (s *HeuristicSummarizer) ExplainFunction(_ context.Context, c *solidity.Contract, fn solidity.Function) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", fn.Name)

	if len(fn.FHEOperations) == 0 {
		sb.WriteString("This function performs no encrypted operations.\n")
		return sb.String(), nil
	}

	for i, op := range fn.FHEOperations {
		meta, known := fheops.Lookup(op.Name)
		fmt.Fprintf(&sb, "%d. `%s`", i+1, op.FullCall)
		if known {
			fmt.Fprintf(&sb, " — %s", meta.Description)
		}
		sb.WriteString("\n")
	}

	if summary := accessSummary(fn); summary != "" {
		sb.WriteString("\n")
		sb.WriteString(summary)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// accessSummary names who ends up able to use the function's results, based
// on the ACL and decrypt calls present.
func accessSummary(fn solidity.Function) string {
	var grants []string
	for _, op := range fn.FHEOperations {
		meta, ok := fheops.Lookup(op.Name)
		if !ok {
			continue
		}
		switch meta.Category {
		case fheops.CategoryACL:
			switch op.Name {
			case "allowThis":
				grants = append(grants, "the contract itself")
			case "allow", "allowTransient":
				grants = append(grants, "a named account")
			case "makePubliclyDecryptable":
				grants = append(grants, "anyone")
			}
		case fheops.CategoryDecrypt:
			grants = append(grants, "the decryption oracle")
		}
	}
	if len(grants) == 0 {
		return ""
	}
	return "Access to the results is granted to: " + strings.Join(dedupe(grants), ", ") + "."
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
