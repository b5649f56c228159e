package resolve

// RequiredInputsResolved reports whether every port named in required is
// present in resolved and not the Unresolved sentinel. Ports not in
// required are ignored even if unresolved — only required ports gate
// executability.
func RequiredInputsResolved(resolved map[string]any, required []string) bool {
	for _, port := range required {
		v, ok := resolved[port]
		if !ok || IsUnresolved(v) {
			return false
		}
	}
	return true
}
