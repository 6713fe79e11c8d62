//go:build debug

package main

import (
	"net/http"
	_ "net/http/pprof"
)

func init() {
	go func() {
		err := http.ListenAndServe("127.0.0.1:8964", nil)
		if err != nil {
			logger.Warn("pprof: ", err)
		}
	}()
}
