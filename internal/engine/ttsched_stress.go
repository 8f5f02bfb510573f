//go:build ttstress

package engine

import "runtime"

// goschedScheduler yields between the two slot writes so concurrent tests
// observe torn entries far more often. Build with -tags ttstress.
type goschedScheduler struct{}

func (goschedScheduler) Yield() { runtime.Gosched() }

var ttScheduler scheduler = goschedScheduler{}
