// Package explain turns a parsed contract into tutorial prose describing
// what each function does with its encrypted values.
package explain

import (
	"context"

	"labz/internal/solidity"
)

// Summarizer defines the interface for generating contract explanations.
type Summarizer interface {
	// ExplainContract generates a high-level walkthrough of the contract.
	ExplainContract(ctx context.Context, c *solidity.Contract) (string, error)
	// ExplainFunction provides a deep dive into one function's operations.
	ExplainFunction(ctx context.Context, c *solidity.Contract, fn solidity.Function) (string, error)
}
