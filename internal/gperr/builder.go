package gperr

// Builder collects errors under an optional heading.
//
// It is not safe for concurrent use.
type Builder struct {
	about string
	errs  []error
}

// NewBuilder creates a new Builder.
//
// Without about, the collected errors are listed flat when the result is
// added to another Builder.
func NewBuilder(about ...string) *Builder {
	b := new(Builder)
	if len(about) > 0 {
		b.about = about[0]
	}
	return b
}

func (b *Builder) HasError() bool {
	return len(b.errs) > 0
}

// Error returns nil when nothing was added.
func (b *Builder) Error() Error {
	if len(b.errs) == 0 {
		return nil
	}
	if b.about == "" {
		return &nestedError{Extras: b.errs}
	}
	return &nestedError{Err: newError(b.about), Extras: b.errs}
}

// Add appends err, adding nil is a no-op.
//
// An Error without a heading is flattened into b.
func (b *Builder) Add(err error) *Builder {
	switch err := err.(type) {
	case nil:
	case *nestedError:
		if err.Err == nil {
			b.errs = append(b.errs, err.Extras...)
		} else {
			b.errs = append(b.errs, err)
		}
	default:
		b.errs = append(b.errs, err)
	}
	return b
}
