package bind_group_provider

// BindGroupProviderOption configures a BindGroupProvider in NewBindGroupProvider.
type BindGroupProviderOption func(*bindGroupProvider)

// WithDynamicSlots makes the provider's buffers per-draw slot arrays bound at a dynamic offset.
// The Renderer sizes each buffer for slots * stride bytes and binds one stride at a time.
//
// Parameters:
//   - stride: the byte distance between slots, a multiple of the uniform offset alignment
//   - slots: the number of draws one frame can address
//
// Returns:
//   - BindGroupProviderOption: option function to apply
func WithDynamicSlots(stride uint64, slots int) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.stride = stride
		p.slots = max(slots, 1)
	}
}
