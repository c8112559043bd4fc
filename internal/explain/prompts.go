package explain

import (
	"fmt"
	"strings"

	"labz/internal/fheops"
	"labz/internal/solidity"
)

// PromptBuilder constructs standardized prompts for contract explanations.
type PromptBuilder struct{}

func (pb *PromptBuilder) BuildContractPrompt(c *solidity.Contract) string {
	var sb strings.Builder
	sb.WriteString("Role: Tutorial author for confidential smart contracts. Task: Explain this contract to a developer new to encrypted computation.\n")
	sb.WriteString("\nDo not invent functionality beyond the listed operations. Output plain Markdown prose, no front matter.\n")

	fmt.Fprintf(&sb, "\nContract: %s\n", c.Name)
	if len(c.Inherits) > 0 {
		fmt.Fprintf(&sb, "Inherits: %s\n", strings.Join(c.Inherits, ", "))
	}
	if len(c.StateVariables) > 0 {
		sb.WriteString("State variables:\n")
		for _, sv := range c.StateVariables {
			fmt.Fprintf(&sb, "- %s %s\n", sv.Type, sv.Name)
		}
	}

	sb.WriteString("\nFunctions and their encrypted operations, in execution order:\n")
	for _, fn := range c.Functions {
		fmt.Fprintf(&sb, "\n## %s\n", fn.Name)
		for _, op := range fn.FHEOperations {
			fmt.Fprintf(&sb, "- %s", op.FullCall)
			if meta, ok := fheops.Lookup(op.Name); ok {
				fmt.Fprintf(&sb, " — %s", meta.Description)
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n**INSTRUCTION**:\n")
	sb.WriteString("Write a short walkthrough: what the contract stores, what each function computes on encrypted values, and who is granted access to results.\n")

	return sb.String()
}

func (pb *PromptBuilder) BuildFunctionPrompt(c *solidity.Contract, fn solidity.Function) string {
	var sb strings.Builder
	sb.WriteString("Role: Tutorial author for confidential smart contracts. Task: Explain one function step by step.\n")

	fmt.Fprintf(&sb, "\nContract: %s\nFunction: %s\n", c.Name, fn.Name)
	if len(fn.Parameters) > 0 {
		sb.WriteString("Parameters:\n")
		for _, p := range fn.Parameters {
			fmt.Fprintf(&sb, "- %s %s\n", p.Type, p.Name)
		}
	}

	sb.WriteString("\nEncrypted operations, in execution order:\n")
	for _, op := range fn.FHEOperations {
		fmt.Fprintf(&sb, "- line %d: %s", op.Line, op.FullCall)
		if meta, ok := fheops.Lookup(op.Name); ok {
			fmt.Fprintf(&sb, " — %s", meta.Description)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n**INSTRUCTION**:\n")
	sb.WriteString("Explain each operation in order, then summarize what the caller learns and what stays encrypted. Plain Markdown, no headings above ##.\n")

	return sb.String()
}
