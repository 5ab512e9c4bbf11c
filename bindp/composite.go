package bindp

import (
	"fmt"

	"github.com/greghart/daop/typep"
)

// compositeBinder stores a host type through another Binder, converting on the way in and out.
// Its SQL type is always the inner Binder's.
type compositeBinder struct {
	vt    typep.ValueType
	inner Binder
	write Converter // host -> storage
	read  Converter // storage -> host
}

func (b compositeBinder) SQLType() typep.SQLType { return b.inner.SQLType() }
func (b compositeBinder) Type() typep.ValueType  { return b.vt }

func (b compositeBinder) String() string {
	return fmt.Sprintf("composite(%s via %s)", b.vt.Key(), b.inner)
}

func (b compositeBinder) Read(row Row, i int) (any, error) {
	if _, ok := value(row, i); !ok {
		return b.vt.Zero(), nil
	}
	v, err := b.inner.Read(row, i)
	if err != nil || v == nil {
		return nil, err
	}
	return b.read.Convert(v)
}

func (b compositeBinder) Write(v any) (any, error) {
	if isNil(v) {
		return b.inner.Write(nil)
	}
	mid, err := b.write.Convert(deref(v))
	if err != nil {
		return nil, err
	}
	return b.inner.Write(mid)
}
