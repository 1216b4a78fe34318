package pv

import "fmt"

// Типизированные обёртки над Read/Write для частых случаев.
// Несовпадение фактического типа значения — ErrTypeMismatch.

// ReadFloat читает float-переменную.
func (ns *Namespace) ReadFloat(name string) (float64, error) {
	v, err := ns.Read(name)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s holds %T, want float64", ErrTypeMismatch, name, v)
	}
	return f, nil
}

// ReadInt читает целочисленную переменную.
func (ns *Namespace) ReadInt(name string) (int64, error) {
	v, err := ns.Read(name)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %s holds %T, want int64", ErrTypeMismatch, name, v)
	}
	return n, nil
}

// ReadString читает строковую переменную.
func (ns *Namespace) ReadString(name string) (string, error) {
	v, err := ns.Read(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s holds %T, want string", ErrTypeMismatch, name, v)
	}
	return s, nil
}

// ReadBool читает булеву переменную.
func (ns *Namespace) ReadBool(name string) (bool, error) {
	v, err := ns.Read(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s holds %T, want bool", ErrTypeMismatch, name, v)
	}
	return b, nil
}
