package provider

import "fmt"

// Factory builds a Generator for a catalog descriptor.
type Factory func(Descriptor) (Generator, error)

// New constructs the Generator implementation selected by the descriptor's
// vendor. It is the default Factory used by the orchestrator.
func New(d Descriptor) (Generator, error) {
	switch d.Vendor {
	case VendorAnthropic:
		return NewAnthropicGenerator(d)
	case VendorOpenAI:
		return NewOpenAIGenerator(d)
	default:
		return nil, fmt.Errorf("unknown provider vendor %q for %s", d.Vendor, d.Slug)
	}
}
