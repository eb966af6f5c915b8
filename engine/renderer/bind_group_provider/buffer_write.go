package bind_group_provider

import "fmt"

// BufferWrite describes a single buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Apply performs the write against its provider.
//
// Returns:
//   - error: if the provider is nil or the write is rejected
func (w BufferWrite) Apply() error {
	if w.Provider == nil {
		return fmt.Errorf("buffer write to binding %d has no provider", w.Binding)
	}
	return w.Provider.Write(w.Binding, w.Offset, w.Data)
}
