//go:build !linux && !darwin

package control

import "time"

func ReuseAddr() Func { return nil }

func NoDelay() Func { return nil }

func NonBlock() Func { return nil }

func SetKeepAlivePeriod(idle time.Duration, interval time.Duration) Func { return nil }
