//go:build !js_filter

package foundry

// NewJSFilter is unavailable without the js_filter build tag.
func NewJSFilter(opts ...JSFilterOption) Filter {
	_ = applyJSFilterOptions(opts)
	return nil
}

func jsFilterAvailable() bool {
	return false
}
