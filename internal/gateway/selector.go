package gateway

import (
	"net/http"
	"strings"
)

// Selector resolves operations to their descriptors. The table is fixed when the
// Selector is built; lookups never fail for a registered operation.
type Selector struct {
	table map[Operation]Descriptor
	order []Operation
}

// NewSelector validates the descriptors and builds the lookup table. Any
// descriptor without a usable target is a configuration error.
func NewSelector(descriptors []Descriptor) (*Selector, error) {
	s := &Selector{
		table: make(map[Operation]Descriptor, len(descriptors)),
		order: make([]Operation, 0, len(descriptors)),
	}

	for i := range descriptors {
		desc := descriptors[i]
		if desc.Operation == "" {
			return nil, NewConfigurationError("", "descriptor %d has no operation name", i)
		}
		if _, dup := s.table[desc.Operation]; dup {
			return nil, NewConfigurationError(desc.Operation, "registered twice")
		}
		if err := checkTarget(desc); err != nil {
			return nil, err
		}
		s.table[desc.Operation] = desc
		s.order = append(s.order, desc.Operation)
	}

	return s, nil
}

func checkTarget(desc Descriptor) error {
	if desc.FailureMessage == "" {
		return NewConfigurationError(desc.Operation, "missing failure message")
	}

	t := desc.Target
	switch t.Kind {
	case BackendLocal:
		if t.Local == nil || strings.TrimSpace(t.Local.Query) == "" {
			return NewConfigurationError(desc.Operation, "local target without a query")
		}
		if t.Remote != nil {
			return NewConfigurationError(desc.Operation, "local target also declares a remote endpoint")
		}
		switch t.Local.Shape {
		case ShapeAggregate, ShapeRows:
		case ShapeSingle:
			if t.Local.Field == "" {
				return NewConfigurationError(desc.Operation, "single-value target without a field name")
			}
		default:
			return NewConfigurationError(desc.Operation, "unknown reshape mode %d", t.Local.Shape)
		}
	case BackendRemote:
		if t.Remote == nil || !strings.HasPrefix(t.Remote.Path, "/") {
			return NewConfigurationError(desc.Operation, "remote target without an absolute path")
		}
		if t.Remote.Method != http.MethodGet && t.Remote.Method != http.MethodPost {
			return NewConfigurationError(desc.Operation, "unsupported remote method %q", t.Remote.Method)
		}
		if t.Local != nil {
			return NewConfigurationError(desc.Operation, "remote target also declares a local query")
		}
	default:
		return NewConfigurationError(desc.Operation, "no backend target registered")
	}
	return nil
}

// Descriptor returns the descriptor for op.
func (s *Selector) Descriptor(op Operation) (Descriptor, bool) {
	desc, ok := s.table[op]
	return desc, ok
}

// Target returns the backend target for op.
func (s *Selector) Target(op Operation) (Target, error) {
	desc, ok := s.table[op]
	if !ok {
		return Target{}, NewConfigurationError(op, "no backend target registered")
	}
	return desc.Target, nil
}

// Operations lists the registered operations in registration order.
func (s *Selector) Operations() []Operation {
	out := make([]Operation, len(s.order))
	copy(out, s.order)
	return out
}
