package bind_group_provider

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset. Writes are queued by the Scene while it
// plans a frame and flushed by Renderer.WriteBuffers before the frame is submitted.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// End returns the first byte past the write.
func (w BufferWrite) End() uint64 {
	return w.Offset + uint64(len(w.Data))
}
