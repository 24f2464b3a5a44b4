//go:build lobdebug

package orderbook

import "fmt"

// assertf panics on a broken book invariant. Only compiled with -tags lobdebug;
// release builds clamp and carry on.
func assertf(ok bool, format string, args ...any) {
	if !ok {
		panic(fmt.Sprintf("orderbook: "+format, args...))
	}
}
