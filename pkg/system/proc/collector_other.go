//go:build !linux

package proc

// NewSelfCollector has no backend outside Linux.
func NewSelfCollector(alpha float64) (Collector, error) {
	return nil, ErrUnsupported
}
