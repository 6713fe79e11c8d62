package control

import E "github.com/sagernet/sing-fetch/common/exceptions"

// Func adjusts a raw socket before it is bound, connected or handed to a
// connection.
type Func = func(fd int) error

func Append(oldFunc Func, newFunc Func) Func {
	if oldFunc == nil {
		return newFunc
	} else if newFunc == nil {
		return oldFunc
	}
	return func(fd int) error {
		if err := oldFunc(fd); err != nil {
			return err
		}
		return newFunc(fd)
	}
}

func Apply(fd int, funcs ...Func) error {
	for _, f := range funcs {
		if f == nil {
			continue
		}
		if err := f(fd); err != nil {
			return E.Cause(err, "set socket option")
		}
	}
	return nil
}
