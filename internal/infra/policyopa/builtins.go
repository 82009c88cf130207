package policyopa

import "github.com/open-policy-agent/opa/ast"

// Authorization policies must be pure functions of their input, so anything
// that reaches the network, the clock or randomness is left out.
var allowedBuiltins = map[string]struct{}{
	"assign":            {},
	"concat":            {},
	"contains":          {},
	"count":             {},
	"endswith":          {},
	"eq":                {},
	"equal":             {},
	"gt":                {},
	"gte":               {},
	"internal.member_2": {},
	"lower":             {},
	"lt":                {},
	"lte":               {},
	"neq":               {},
	"object.get":        {},
	"split":             {},
	"sprintf":           {},
	"startswith":        {},
	"trim":              {},
	"upper":             {},
}

func restrictedCapabilities() *ast.Capabilities {
	capabilities := ast.CapabilitiesForThisVersion()
	allowed := make([]*ast.Builtin, 0, len(allowedBuiltins))
	for _, builtin := range capabilities.Builtins {
		if _, ok := allowedBuiltins[builtin.Name]; ok {
			allowed = append(allowed, builtin)
		}
	}
	capabilities.Builtins = allowed
	return capabilities
}
